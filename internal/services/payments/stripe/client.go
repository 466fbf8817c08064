package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/roleandroll/internal/platform/timeouts"
	stripeapi "github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the Stripe API root.
const DefaultBaseURL = stripeapi.APIURL

// Config configures the Stripe adapter.
type Config struct {
	SecretKey     string `env:"ROLEANDROLL_STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"ROLEANDROLL_STRIPE_WEBHOOK_SECRET"`
	BaseURL       string `env:"ROLEANDROLL_STRIPE_BASE_URL" envDefault:"https://api.stripe.com"`
	// SuccessURL and CancelURL receive the buyer after checkout.
	SuccessURL string `env:"ROLEANDROLL_STRIPE_SUCCESS_URL" envDefault:"http://localhost:8080/checkout/success"`
	CancelURL  string `env:"ROLEANDROLL_STRIPE_CANCEL_URL" envDefault:"http://localhost:8080/checkout/cancel"`
	// ConnectReturnURL and ConnectRefreshURL receive sellers after onboarding.
	ConnectReturnURL  string `env:"ROLEANDROLL_STRIPE_CONNECT_RETURN_URL" envDefault:"http://localhost:8080/seller"`
	ConnectRefreshURL string `env:"ROLEANDROLL_STRIPE_CONNECT_REFRESH_URL" envDefault:"http://localhost:8080/seller/refresh"`
}

// Enabled reports whether API calls can be made.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.SecretKey) != ""
}

// Error is an error response returned by the Stripe API.
type Error struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("stripe: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// Retryable reports whether the request may succeed when retried.
func (e *Error) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client wraps the stripe-go API client.
type Client struct {
	cfg Config
	api *stripeclient.API
}

// NewClient builds a Stripe client. A nil httpClient uses a client with the
// provider request timeout. Network retries are left to the caller.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeouts.ProviderRequest,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	backends := stripeapi.NewBackendsWithConfig(&stripeapi.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripeapi.Int64(0),
		URL:               stripeapi.String(baseURL),
	})
	return &Client{cfg: cfg, api: stripeclient.New(cfg.SecretKey, backends)}
}

// CheckoutParams describes a one-item checkout.
type CheckoutParams struct {
	ProductName       string
	AmountCents       int64
	Currency          string
	CustomerEmail     string
	ClientReferenceID string
	Metadata          map[string]string
}

// CheckoutSession is a created Checkout session.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession starts a hosted payment page for one listing.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error) {
	if err := c.ready(); err != nil {
		return CheckoutSession{}, err
	}
	req := &stripeapi.CheckoutSessionParams{
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL: stripeapi.String(c.cfg.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripeapi.String(c.cfg.CancelURL),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{{
			Quantity: stripeapi.Int64(1),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(params.Currency),
				UnitAmount: stripeapi.Int64(params.AmountCents),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(params.ProductName),
				},
			},
		}},
		PaymentIntentData: &stripeapi.CheckoutSessionPaymentIntentDataParams{},
	}
	req.Context = ctx
	if params.CustomerEmail != "" {
		req.CustomerEmail = stripeapi.String(params.CustomerEmail)
	}
	if params.ClientReferenceID != "" {
		req.ClientReferenceID = stripeapi.String(params.ClientReferenceID)
	}
	for key, value := range params.Metadata {
		req.AddMetadata(key, value)
		req.PaymentIntentData.AddMetadata(key, value)
	}

	session, err := c.api.CheckoutSessions.New(req)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", apiError(err))
	}
	return CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CreateConnectAccount creates an Express account able to receive transfers
// and returns its id.
func (c *Client) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	req := &stripeapi.AccountParams{
		Type: stripeapi.String(string(stripeapi.AccountTypeExpress)),
		Capabilities: &stripeapi.AccountCapabilitiesParams{
			Transfers: &stripeapi.AccountCapabilitiesTransfersParams{Requested: stripeapi.Bool(true)},
		},
	}
	req.Context = ctx
	if email != "" {
		req.Email = stripeapi.String(email)
	}
	account, err := c.api.Accounts.New(req)
	if err != nil {
		return "", fmt.Errorf("create connect account: %w", apiError(err))
	}
	return account.ID, nil
}

// CreateAccountLink returns an onboarding URL for a Connect account.
func (c *Client) CreateAccountLink(ctx context.Context, accountID string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	req := &stripeapi.AccountLinkParams{
		Account:    stripeapi.String(accountID),
		Type:       stripeapi.String(string(stripeapi.AccountLinkTypeAccountOnboarding)),
		ReturnURL:  stripeapi.String(c.cfg.ConnectReturnURL),
		RefreshURL: stripeapi.String(c.cfg.ConnectRefreshURL),
	}
	req.Context = ctx
	link, err := c.api.AccountLinks.New(req)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", apiError(err))
	}
	return link.URL, nil
}

// TransferParams describes a payout to a connected account.
type TransferParams struct {
	AmountCents   int64
	Currency      string
	Destination   string
	TransferGroup string
	Metadata      map[string]string
	// IdempotencyKey makes retried transfers safe.
	IdempotencyKey string
}

// Transfer is a created transfer.
type Transfer struct {
	ID      string
	Amount  int64
	Created int64
}

// CreatedAt returns the transfer creation time.
func (t Transfer) CreatedAt() time.Time {
	return time.Unix(t.Created, 0).UTC()
}

// CreateTransfer moves funds from the platform balance to a seller.
func (c *Client) CreateTransfer(ctx context.Context, params TransferParams) (Transfer, error) {
	if err := c.ready(); err != nil {
		return Transfer{}, err
	}
	req := &stripeapi.TransferParams{
		Amount:      stripeapi.Int64(params.AmountCents),
		Currency:    stripeapi.String(params.Currency),
		Destination: stripeapi.String(params.Destination),
	}
	req.Context = ctx
	if params.TransferGroup != "" {
		req.TransferGroup = stripeapi.String(params.TransferGroup)
	}
	if params.IdempotencyKey != "" {
		req.SetIdempotencyKey(params.IdempotencyKey)
	}
	for key, value := range params.Metadata {
		req.AddMetadata(key, value)
	}

	transfer, err := c.api.Transfers.New(req)
	if err != nil {
		return Transfer{}, fmt.Errorf("create transfer: %w", apiError(err))
	}
	return Transfer{ID: transfer.ID, Amount: transfer.Amount, Created: transfer.Created}, nil
}

func (c *Client) ready() error {
	if c == nil || !c.cfg.Enabled() {
		return fmt.Errorf("stripe is not configured")
	}
	return nil
}

// apiError converts stripe-go errors into *Error so callers can classify
// them without importing the SDK.
func apiError(err error) error {
	var sdkErr *stripeapi.Error
	if !errors.As(err, &sdkErr) {
		return err
	}
	return &Error{
		StatusCode: sdkErr.HTTPStatusCode,
		Type:       string(sdkErr.Type),
		Code:       string(sdkErr.Code),
		Message:    sdkErr.Msg,
	}
}
