package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// SignatureHeader is the webhook signature header name.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is the maximum accepted age of a signed webhook.
const DefaultTolerance = webhook.DefaultTolerance

var (
	// ErrInvalidHeader indicates a malformed signature header.
	ErrInvalidHeader = webhook.ErrInvalidHeader
	// ErrNotSigned indicates the signature header is missing.
	ErrNotSigned = webhook.ErrNotSigned
	// ErrNoValidSignature indicates no v1 signature matched the payload.
	ErrNoValidSignature = webhook.ErrNoValidSignature
	// ErrTooOld indicates the signed timestamp is outside the tolerance.
	ErrTooOld = webhook.ErrTooOld
)

// VerifySignature checks a Stripe-Signature header of the form
// "t=<unix>,v1=<hex>[,v1=<hex>...]" against payload. The signature is
// checked by stripe-go; the tolerance window is measured against now, in
// both directions.
func VerifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	if secret == "" {
		return fmt.Errorf("stripe: webhook secret is not configured")
	}
	if strings.TrimSpace(header) == "" {
		return ErrNotSigned
	}
	signedAt, ok := signedTimestamp(header)
	if !ok {
		return ErrInvalidHeader
	}
	if err := webhook.ValidatePayloadIgnoringTolerance(payload, header, secret); err != nil {
		return err
	}
	if tolerance > 0 {
		if now.Sub(signedAt) > tolerance || signedAt.Sub(now) > tolerance {
			return ErrTooOld
		}
	}
	return nil
}

func signedTimestamp(header string) (time.Time, bool) {
	for _, part := range strings.Split(header, ",") {
		value, ok := strings.CutPrefix(strings.TrimSpace(part), "t=")
		if !ok {
			continue
		}
		unix, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(unix, 0), true
	}
	return time.Time{}, false
}

// SignPayload builds a signature header for payload, as Stripe does.
func SignPayload(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}

// Event types handled by the platform.
const (
	EventCheckoutSessionCompleted = string(stripeapi.EventTypeCheckoutSessionCompleted)
	EventAccountUpdated           = string(stripeapi.EventTypeAccountUpdated)
)

// Event is a webhook event envelope.
type Event struct {
	ID      string
	Type    string
	Created int64
	Data    struct {
		Object json.RawMessage
	}
}

// CompletedSession is the checkout session carried by
// checkout.session.completed events.
type CompletedSession struct {
	ID                string
	PaymentIntent     string
	PaymentStatus     string
	AmountTotal       int64
	Currency          string
	ClientReferenceID string
	Metadata          map[string]string
}

// Paid reports whether the session collected payment.
func (s CompletedSession) Paid() bool {
	switch stripeapi.CheckoutSessionPaymentStatus(s.PaymentStatus) {
	case stripeapi.CheckoutSessionPaymentStatusPaid, stripeapi.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true
	default:
		return false
	}
}

// ParseEvent decodes a verified webhook payload.
func ParseEvent(payload []byte) (Event, error) {
	var raw stripeapi.Event
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("decode stripe event: %w", err)
	}
	if raw.ID == "" || raw.Type == "" {
		return Event{}, errors.New("decode stripe event: missing id or type")
	}
	event := Event{ID: raw.ID, Type: string(raw.Type), Created: raw.Created}
	if raw.Data != nil {
		event.Data.Object = raw.Data.Raw
	}
	return event, nil
}

// CompletedSession decodes the event object as a checkout session.
func (e Event) CompletedSession() (CompletedSession, error) {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return CompletedSession{}, fmt.Errorf("decode checkout session: %w", err)
	}
	if session.ID == "" {
		return CompletedSession{}, errors.New("decode checkout session: missing id")
	}
	completed := CompletedSession{
		ID:                session.ID,
		PaymentStatus:     string(session.PaymentStatus),
		AmountTotal:       session.AmountTotal,
		Currency:          string(session.Currency),
		ClientReferenceID: session.ClientReferenceID,
		Metadata:          session.Metadata,
	}
	if session.PaymentIntent != nil {
		completed.PaymentIntent = session.PaymentIntent.ID
	}
	return completed, nil
}
