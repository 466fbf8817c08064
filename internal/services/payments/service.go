package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/id"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
	"github.com/louisbranch/roleandroll/internal/services/payments/stripe"
)

// Checkout metadata keys carried through Stripe.
const (
	metaBuyerID   = "buyer_id"
	metaKind      = "kind"
	metaListingID = "listing_id"
	metaFeeBPS    = "fee_bps"
)

// Store is the persistence surface used by payments.
type Store interface {
	GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error)
	CountConfirmedBookings(ctx context.Context, campaignID string) (int, error)
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
	HasPurchase(ctx context.Context, userID string, kind domain.ListingKind, listingID string) (bool, error)
	GrantListing(ctx context.Context, req storage.GrantRequest) error
	FulfillCheckout(ctx context.Context, f storage.Fulfillment) (storage.FulfillmentResult, error)
	GetSiteConfig(ctx context.Context) (domain.SiteConfig, error)
	ListPurchases(ctx context.Context, userID string) ([]domain.Purchase, error)
}

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (stripe.CheckoutSession, error)
}

// Config holds webhook verification settings.
type Config struct {
	WebhookSecret string
	Tolerance     time.Duration
}

// Service runs checkout and webhook fulfillment.
type Service struct {
	store    Store
	checkout CheckoutProvider
	cfg      Config
	clock    func() time.Time
	idGen    func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(idGen func() (string, error)) Option {
	return func(s *Service) {
		if idGen != nil {
			s.idGen = idGen
		}
	}
}

// NewService builds a payments service. A nil checkout provider disables
// paid checkout; free listings still work.
func NewService(store Store, checkout CheckoutProvider, cfg Config, opts ...Option) *Service {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = stripe.DefaultTolerance
	}
	s := &Service{store: store, checkout: checkout, cfg: cfg, clock: time.Now, idGen: id.NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Buyer identifies the purchasing user.
type Buyer struct {
	UserID string
	Email  string
}

// CheckoutResult is either a direct grant or a checkout session to follow.
type CheckoutResult struct {
	// Granted is set when the listing was free and is now owned.
	Granted    bool
	PurchaseID string
	SessionID  string
	URL        string
}

// Purchases returns what userID owns, newest first.
func (s *Service) Purchases(ctx context.Context, userID string) ([]domain.Purchase, error) {
	return s.store.ListPurchases(ctx, userID)
}

// Checkout starts a purchase of a campaign seat or an item.
func (s *Service) Checkout(ctx context.Context, buyer Buyer, kind domain.ListingKind, listingID string) (CheckoutResult, error) {
	cfg, err := s.store.GetSiteConfig(ctx)
	if err != nil {
		return CheckoutResult{}, err
	}
	if cfg.Maintenance {
		return CheckoutResult{}, apperrors.New(apperrors.CodeMaintenance, "checkout is paused for maintenance")
	}

	target, err := s.loadPurchasable(ctx, kind, listingID)
	if err != nil {
		return CheckoutResult{}, err
	}
	listing := target.listing
	owned, err := s.store.HasPurchase(ctx, buyer.UserID, listing.Kind, listing.ID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if err := domain.ValidatePurchase(buyer.UserID, listing, owned); err != nil {
		return CheckoutResult{}, err
	}
	// Ownership is reported before capacity.
	if err := s.checkAvailable(ctx, target); err != nil {
		return CheckoutResult{}, err
	}

	if listing.Free() {
		return s.grantFree(ctx, buyer.UserID, listing)
	}
	if s.checkout == nil {
		return CheckoutResult{}, apperrors.New(apperrors.CodeUnavailable, "payments are not configured")
	}
	session, err := s.checkout.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		ProductName:       listing.Title,
		AmountCents:       listing.PriceCents,
		Currency:          listing.Currency,
		CustomerEmail:     buyer.Email,
		ClientReferenceID: buyer.UserID,
		Metadata: map[string]string{
			metaBuyerID:   buyer.UserID,
			metaKind:      string(listing.Kind),
			metaListingID: listing.ID,
			metaFeeBPS:    strconv.Itoa(cfg.FeeBasisPoints),
		},
	})
	if err != nil {
		return CheckoutResult{}, apperrors.Wrap(apperrors.CodePaymentProviderFailed, "could not start checkout", err)
	}
	log.Printf("checkout started session_id=%s buyer_id=%s kind=%s listing_id=%s", session.ID, buyer.UserID, listing.Kind, listing.ID)
	return CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

// purchasable is a loaded listing together with the record it came from.
type purchasable struct {
	listing  domain.Listing
	campaign *domain.Campaign
	item     *domain.Item
}

func (s *Service) loadPurchasable(ctx context.Context, kind domain.ListingKind, listingID string) (purchasable, error) {
	switch kind {
	case domain.ListingCampaign:
		campaign, err := s.store.GetCampaign(ctx, listingID)
		if err != nil {
			return purchasable{}, err
		}
		return purchasable{listing: domain.CampaignListing(campaign), campaign: &campaign}, nil
	case domain.ListingItem:
		item, err := s.store.GetItem(ctx, listingID)
		if err != nil {
			return purchasable{}, err
		}
		return purchasable{listing: domain.ItemListing(item), item: &item}, nil
	default:
		return purchasable{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "unknown listing kind", map[string]string{"Field": "kind"})
	}
}

func (s *Service) checkAvailable(ctx context.Context, target purchasable) error {
	switch {
	case target.campaign != nil:
		seats, err := s.store.CountConfirmedBookings(ctx, target.campaign.ID)
		if err != nil {
			return err
		}
		return domain.CheckCampaignPurchasable(*target.campaign, seats)
	case target.item != nil:
		return domain.CheckItemPurchasable(*target.item)
	default:
		return nil
	}
}

func (s *Service) grantFree(ctx context.Context, buyerID string, listing domain.Listing) (CheckoutResult, error) {
	now := s.clock().UTC()
	grant, err := domain.NewGrant(buyerID, listing, "", now, s.idGen)
	if err != nil {
		return CheckoutResult{}, err
	}
	event, err := storage.NewOutboxEvent(domain.EventListingGranted, "grant:"+grant.Purchase.ID, domain.ListingGrantedPayload{
		PurchaseID: grant.Purchase.ID,
		UserID:     buyerID,
		Kind:       string(listing.Kind),
		ListingID:  listing.ID,
	}, now, s.idGen)
	if err != nil {
		return CheckoutResult{}, err
	}
	err = s.store.GrantListing(ctx, storage.GrantRequest{Grant: grant, Event: &event})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return CheckoutResult{}, apperrors.New(apperrors.CodePurchaseAlreadyOwned, "listing is already owned")
	}
	if err != nil {
		return CheckoutResult{}, err
	}
	log.Printf("free listing granted purchase_id=%s buyer_id=%s kind=%s listing_id=%s", grant.Purchase.ID, buyerID, listing.Kind, listing.ID)
	return CheckoutResult{Granted: true, PurchaseID: grant.Purchase.ID}, nil
}

// HandleWebhook verifies and processes one Stripe webhook delivery. Errors
// without a domain code should be answered with a 5xx so Stripe retries.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := stripe.VerifySignature(payload, signature, s.cfg.WebhookSecret, s.clock(), s.cfg.Tolerance); err != nil {
		return apperrors.Wrap(apperrors.CodePaymentSignatureInvalid, "invalid webhook signature", err)
	}
	event, err := stripe.ParseEvent(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid webhook payload", err)
	}
	switch event.Type {
	case stripe.EventCheckoutSessionCompleted:
		session, err := event.CompletedSession()
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid checkout session", err)
		}
		return s.fulfill(ctx, event.ID, session)
	default:
		log.Printf("stripe webhook ignored event_id=%s type=%s", event.ID, event.Type)
		return nil
	}
}

func (s *Service) fulfill(ctx context.Context, eventID string, session stripe.CompletedSession) error {
	if !session.Paid() {
		log.Printf("stripe checkout not paid event_id=%s session_id=%s status=%s", eventID, session.ID, session.PaymentStatus)
		return nil
	}
	buyerID := strings.TrimSpace(session.Metadata[metaBuyerID])
	kind, kindOK := domain.ParseListingKind(session.Metadata[metaKind])
	listingID := strings.TrimSpace(session.Metadata[metaListingID])
	if buyerID == "" || !kindOK || listingID == "" {
		log.Printf("stripe checkout missing metadata event_id=%s session_id=%s", eventID, session.ID)
		return nil
	}

	listing, err := s.loadListing(ctx, kind, listingID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("stripe checkout for unknown listing session_id=%s kind=%s listing_id=%s", session.ID, kind, listingID)
			return nil
		}
		return fmt.Errorf("load listing %s: %w", listingID, err)
	}
	feeBPS, err := s.feeFor(ctx, session.Metadata[metaFeeBPS])
	if err != nil {
		return err
	}

	now := s.clock().UTC()
	currency := strings.ToLower(strings.TrimSpace(session.Currency))
	if currency == "" {
		currency = listing.Currency
	}
	listing.Currency = currency
	grant, err := domain.NewGrant(buyerID, listing, session.ID, now, s.idGen)
	if err != nil {
		return err
	}
	grant.Purchase.AmountCents = session.AmountTotal
	txn, err := domain.NewTransaction(session.ID, session.PaymentIntent, buyerID, listing, session.AmountTotal, feeBPS, now, s.idGen)
	if err != nil {
		return err
	}
	event, err := storage.NewOutboxEvent(domain.EventPurchaseCompleted, "purchase:"+session.ID, domain.PurchaseCompletedPayload{
		TransactionID: txn.ID,
		BuyerID:       buyerID,
		SellerID:      txn.SellerID,
		Kind:          string(kind),
		ListingID:     listing.ID,
		AmountCents:   txn.AmountCents,
		PayoutCents:   txn.PayoutCents,
		Currency:      txn.Currency,
	}, now, s.idGen)
	if err != nil {
		return err
	}

	result, err := s.store.FulfillCheckout(ctx, storage.Fulfillment{Grant: grant, Transaction: txn, Event: event})
	if err != nil {
		log.Printf("stripe checkout fulfillment failed session_id=%s: %v", session.ID, err)
		return fmt.Errorf("fulfill checkout %s: %w", session.ID, err)
	}
	switch {
	case result.Duplicate:
		log.Printf("stripe checkout already fulfilled session_id=%s transaction_id=%s", session.ID, result.Transaction.ID)
	case result.Transaction.Status == domain.TransactionNeedsRefund:
		log.Printf("stripe checkout needs refund session_id=%s transaction_id=%s buyer_id=%s listing_id=%s", session.ID, result.Transaction.ID, buyerID, listing.ID)
	default:
		log.Printf("stripe checkout fulfilled session_id=%s transaction_id=%s amount=%d fee=%d", session.ID, result.Transaction.ID, result.Transaction.AmountCents, result.Transaction.FeeCents)
	}
	return nil
}

// loadListing loads a listing regardless of its current status; paid
// checkouts are settled even if the listing closed meanwhile.
func (s *Service) loadListing(ctx context.Context, kind domain.ListingKind, listingID string) (domain.Listing, error) {
	if kind == domain.ListingCampaign {
		campaign, err := s.store.GetCampaign(ctx, listingID)
		if err != nil {
			return domain.Listing{}, err
		}
		return domain.CampaignListing(campaign), nil
	}
	item, err := s.store.GetItem(ctx, listingID)
	if err != nil {
		return domain.Listing{}, err
	}
	return domain.ItemListing(item), nil
}

// feeFor uses the fee recorded at checkout, falling back to the current one.
func (s *Service) feeFor(ctx context.Context, recorded string) (int, error) {
	if bps, err := strconv.Atoi(strings.TrimSpace(recorded)); err == nil && bps >= 0 {
		return bps, nil
	}
	cfg, err := s.store.GetSiteConfig(ctx)
	if err != nil {
		return 0, fmt.Errorf("load site config: %w", err)
	}
	return cfg.FeeBasisPoints, nil
}
