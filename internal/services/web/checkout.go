package web

import (
	"errors"
	"io"
	"log"
	"net/http"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/requestctx"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/payments"
	"github.com/louisbranch/roleandroll/internal/services/payments/stripe"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/httpx"
)

const (
	listingCampaign = domain.ListingCampaign
	listingItem     = domain.ListingItem

	maxWebhookBytes = 512 << 10
)

var errPaymentsUnavailable = apperrors.New(apperrors.CodeUnavailable, "payments are not configured")

type checkoutJSON struct {
	Granted    bool   `json:"granted"`
	PurchaseID string `json:"purchase_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	URL        string `json:"url,omitempty"`
}

func (h *handler) handleCheckout(kind domain.ListingKind) viewerHandler {
	return func(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
		if h.deps.Payments == nil {
			httpx.WriteError(w, r, errPaymentsUnavailable)
			return
		}
		result, err := h.deps.Payments.Checkout(r.Context(),
			payments.Buyer{UserID: viewer.UserID, Email: viewer.Email},
			kind, r.PathValue("id"),
		)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		status := http.StatusOK
		if result.Granted {
			status = http.StatusCreated
		}
		_ = httpx.WriteJSON(w, status, checkoutJSON{
			Granted:    result.Granted,
			PurchaseID: result.PurchaseID,
			SessionID:  result.SessionID,
			URL:        result.URL,
		})
	}
}

// handleStripeWebhook verifies and fulfills a Stripe event. Storage failures
// answer 500 so Stripe redelivers the event.
func (h *handler) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.deps.Payments == nil {
		httpx.WriteError(w, r, errPaymentsUnavailable)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "webhook payload is too large"))
			return
		}
		httpx.WriteError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "read webhook payload", err))
		return
	}
	if err := h.deps.Payments.HandleWebhook(r.Context(), payload, r.Header.Get(stripe.SignatureHeader)); err != nil {
		if apperrors.CodeOf(err) == apperrors.CodePaymentSignatureInvalid {
			log.Printf("stripe webhook rejected err=%v", err)
		}
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *handler) handleMyPurchases(w http.ResponseWriter, r *http.Request, viewer requestctx.Viewer) {
	if h.deps.Payments == nil {
		httpx.WriteError(w, r, errPaymentsUnavailable)
		return
	}
	owned, err := h.deps.Payments.Purchases(r.Context(), viewer.UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	tag := priceTag(r.Header.Get("Accept-Language"))
	views := make([]purchaseJSON, 0, len(owned))
	for _, p := range owned {
		views = append(views, purchaseView(p, tag))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string][]purchaseJSON{"purchases": views})
}
