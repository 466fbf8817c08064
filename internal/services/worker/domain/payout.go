package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	marketdomain "github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
	"github.com/louisbranch/roleandroll/internal/services/payments/stripe"
)

// PayoutStore is the marketplace persistence the payout handler needs.
type PayoutStore interface {
	GetTransaction(ctx context.Context, transactionID string) (marketdomain.Transaction, error)
	GetSellerProfile(ctx context.Context, userID string) (marketdomain.SellerProfile, error)
	MarkTransactionPaidOut(ctx context.Context, transactionID, transferID string, now time.Time) error
}

// Transferer moves funds to a connected account.
type Transferer interface {
	CreateTransfer(ctx context.Context, params stripe.TransferParams) (stripe.Transfer, error)
}

// PayoutHandler pays sellers their share of completed purchases.
type PayoutHandler struct {
	store     PayoutStore
	transfers Transferer
	clock     func() time.Time
}

// NewPayoutHandler creates a payout handler for purchase completed events.
func NewPayoutHandler(store PayoutStore, transfers Transferer, clock func() time.Time) *PayoutHandler {
	if clock == nil {
		clock = time.Now
	}
	return &PayoutHandler{store: store, transfers: transfers, clock: clock}
}

// Handle transfers the payout for the transaction named in event.
func (h *PayoutHandler) Handle(ctx context.Context, event storage.OutboxEvent) error {
	if h == nil || h.store == nil || h.transfers == nil {
		return Permanent(fmt.Errorf("payout handler is not configured"))
	}
	payload, err := decodePurchaseCompletedPayload(event)
	if err != nil {
		return Permanent(err)
	}

	txn, err := h.store.GetTransaction(ctx, payload.TransactionID)
	if errors.Is(err, storage.ErrNotFound) {
		return Permanent(fmt.Errorf("transaction %s not found", payload.TransactionID))
	}
	if err != nil {
		return err
	}
	switch txn.Status {
	case marketdomain.TransactionPaidOut:
		return nil
	case marketdomain.TransactionCompleted:
	default:
		return Permanent(fmt.Errorf("transaction %s is %s, not payable", txn.ID, txn.Status))
	}

	transferID := ""
	if txn.PayoutCents > 0 {
		seller, err := h.store.GetSellerProfile(ctx, txn.SellerID)
		if errors.Is(err, storage.ErrNotFound) {
			return Permanent(fmt.Errorf("seller %s not found", txn.SellerID))
		}
		if err != nil {
			return err
		}
		if seller.StripeAccountID == "" {
			return Permanent(fmt.Errorf("seller %s has no connected account", seller.UserID))
		}
		transfer, err := h.transfers.CreateTransfer(ctx, stripe.TransferParams{
			AmountCents:    txn.PayoutCents,
			Currency:       txn.Currency,
			Destination:    seller.StripeAccountID,
			TransferGroup:  txn.CheckoutSessionID,
			Metadata:       map[string]string{"transaction_id": txn.ID},
			IdempotencyKey: payoutIdempotencyKey(txn.ID),
		})
		if err != nil {
			if isPermanentTransferError(err) {
				return Permanent(err)
			}
			return err
		}
		transferID = transfer.ID
	}

	err = h.store.MarkTransactionPaidOut(ctx, txn.ID, transferID, h.clock().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		// Another worker settled it first.
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("payout sent transaction_id=%s seller_id=%s transfer_id=%s amount=%d", txn.ID, txn.SellerID, transferID, txn.PayoutCents)
	return nil
}

func payoutIdempotencyKey(transactionID string) string {
	return "payout:" + transactionID
}

func isPermanentTransferError(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && !stripeErr.Retryable()
}
