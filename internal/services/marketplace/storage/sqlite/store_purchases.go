package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
)

// HasPurchase reports whether userID owns the listing.
func (s *Store) HasPurchase(ctx context.Context, userID string, kind domain.ListingKind, listingID string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	return hasPurchase(ctx, s.sqlDB, userID, kind, listingID)
}

func hasPurchase(ctx context.Context, q queryer, userID string, kind domain.ListingKind, listingID string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = ? AND kind = ? AND listing_id = ?)
`, userID, string(kind), listingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return exists == 1, nil
}

// GetBooking returns the booking of userID in a campaign.
func (s *Store) GetBooking(ctx context.Context, campaignID, userID string) (domain.Booking, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Booking{}, err
	}
	var booking domain.Booking
	var status string
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, campaign_id, user_id, status, created_at
FROM bookings
WHERE campaign_id = ? AND user_id = ?
`, strings.TrimSpace(campaignID), strings.TrimSpace(userID)).Scan(
		&booking.ID,
		&booking.CampaignID,
		&booking.UserID,
		&status,
		&createdAt,
	)
	if err != nil {
		return domain.Booking{}, notFound(err, "get booking")
	}
	booking.Status = domain.BookingStatus(status)
	booking.CreatedAt = fromMillis(createdAt)
	return booking, nil
}

// ListPurchases returns the purchases of userID, newest first.
func (s *Store) ListPurchases(ctx context.Context, userID string) ([]domain.Purchase, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, user_id, kind, listing_id, amount_cents, currency, checkout_session_id, created_at
FROM purchases
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []domain.Purchase{}
	for rows.Next() {
		var p domain.Purchase
		var kind string
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.UserID, &kind, &p.ListingID, &p.AmountCents, &p.Currency, &p.CheckoutSessionID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.Kind = domain.ListingKind(kind)
		p.CreatedAt = fromMillis(createdAt)
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return purchases, nil
}

// GrantListing records a free grant in one transaction.
func (s *Store) GrantListing(ctx context.Context, req storage.GrantRequest) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start grant transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := checkGrantable(ctx, tx, req.Grant); err != nil {
		return err
	}
	if err := insertGrant(ctx, tx, req.Grant); err != nil {
		return err
	}
	if req.Event != nil {
		if err := enqueueOutboxEvent(ctx, tx, *req.Event); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grant transaction: %w", err)
	}
	return nil
}

// checkGrantable returns ErrAlreadyExists for owned listings and the
// campaign purchasability error for campaigns that cannot take a booking.
func checkGrantable(ctx context.Context, q queryer, grant domain.Grant) error {
	p := grant.Purchase
	owned, err := hasPurchase(ctx, q, p.UserID, p.Kind, p.ListingID)
	if err != nil {
		return err
	}
	if owned {
		return storage.ErrAlreadyExists
	}
	if grant.Booking == nil {
		return nil
	}
	row := q.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, grant.Booking.CampaignID)
	campaign, err := scanCampaign(row.Scan)
	if err != nil {
		return notFound(err, "load campaign for booking")
	}
	seats, err := countConfirmedBookings(ctx, q, campaign.ID)
	if err != nil {
		return err
	}
	return domain.CheckCampaignPurchasable(campaign, seats)
}

func insertGrant(ctx context.Context, q queryer, grant domain.Grant) error {
	p := grant.Purchase
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.ListingID) == "" {
		return fmt.Errorf("purchase id, user id, and listing id are required")
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO purchases (id, user_id, kind, listing_id, amount_cents, currency, checkout_session_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, p.ID, p.UserID, string(p.Kind), p.ListingID, p.AmountCents, p.Currency, p.CheckoutSessionID, toMillis(p.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	if b := grant.Booking; b != nil {
		_, err := q.ExecContext(ctx, `
INSERT INTO bookings (id, campaign_id, user_id, status, created_at)
VALUES (?, ?, ?, ?, ?)
`, b.ID, b.CampaignID, b.UserID, string(b.Status), toMillis(b.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("insert booking: %w", err)
		}
	}
	return nil
}

// FulfillCheckout records a paid checkout exactly once per session id.
func (s *Store) FulfillCheckout(ctx context.Context, f storage.Fulfillment) (storage.FulfillmentResult, error) {
	if err := s.ready(ctx); err != nil {
		return storage.FulfillmentResult{}, err
	}
	sessionID := strings.TrimSpace(f.Transaction.CheckoutSessionID)
	if sessionID == "" {
		return storage.FulfillmentResult{}, fmt.Errorf("checkout session id is required")
	}

	result, err := s.fulfillCheckout(ctx, f)
	if err != nil && isUniqueViolation(err) {
		// A concurrent delivery of the same session won the insert.
		existing, getErr := s.GetTransactionBySession(ctx, sessionID)
		if getErr != nil {
			return storage.FulfillmentResult{}, getErr
		}
		return storage.FulfillmentResult{Transaction: existing, Duplicate: true}, nil
	}
	return result, err
}

func (s *Store) fulfillCheckout(ctx context.Context, f storage.Fulfillment) (storage.FulfillmentResult, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.FulfillmentResult{}, fmt.Errorf("start fulfillment transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := scanTransaction(tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE checkout_session_id = ?`,
		f.Transaction.CheckoutSessionID,
	).Scan)
	if err == nil {
		return storage.FulfillmentResult{Transaction: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return storage.FulfillmentResult{}, fmt.Errorf("lookup transaction: %w", err)
	}

	record := f.Transaction
	grantErr := checkGrantable(ctx, tx, f.Grant)
	switch {
	case grantErr == nil:
		if err := insertGrant(ctx, tx, f.Grant); err != nil {
			return storage.FulfillmentResult{}, err
		}
	case apperrors.CodeOf(grantErr) != apperrors.CodeUnknown:
		// Paid but not grantable: already owned, or the campaign closed or
		// filled up while the buyer was at checkout.
		record.Status = domain.TransactionNeedsRefund
	default:
		return storage.FulfillmentResult{}, grantErr
	}

	if err := insertTransaction(ctx, tx, record); err != nil {
		return storage.FulfillmentResult{}, err
	}
	if record.Status == domain.TransactionCompleted {
		if err := enqueueOutboxEvent(ctx, tx, f.Event); err != nil {
			return storage.FulfillmentResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return storage.FulfillmentResult{}, fmt.Errorf("commit fulfillment transaction: %w", err)
	}
	return storage.FulfillmentResult{Transaction: record}, nil
}

const transactionColumns = `id, checkout_session_id, payment_intent_id, buyer_id, seller_id, kind, listing_id, amount_cents, fee_cents, payout_cents, currency, status, transfer_id, created_at, updated_at`

func insertTransaction(ctx context.Context, q queryer, t domain.Transaction) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction id is required")
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO transactions (`+transactionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		t.ID,
		t.CheckoutSessionID,
		t.PaymentIntentID,
		t.BuyerID,
		t.SellerID,
		string(t.Kind),
		t.ListingID,
		t.AmountCents,
		t.FeeCents,
		t.PayoutCents,
		t.Currency,
		string(t.Status),
		t.TransferID,
		toMillis(t.CreatedAt),
		toMillis(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetTransaction returns one transaction by id.
func (s *Store) GetTransaction(ctx context.Context, transactionID string) (domain.Transaction, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Transaction{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, strings.TrimSpace(transactionID))
	t, err := scanTransaction(row.Scan)
	if err != nil {
		return domain.Transaction{}, notFound(err, "get transaction")
	}
	return t, nil
}

// GetTransactionBySession returns the transaction of a checkout session.
func (s *Store) GetTransactionBySession(ctx context.Context, checkoutSessionID string) (domain.Transaction, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Transaction{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE checkout_session_id = ?`, strings.TrimSpace(checkoutSessionID))
	t, err := scanTransaction(row.Scan)
	if err != nil {
		return domain.Transaction{}, notFound(err, "get transaction by session")
	}
	return t, nil
}

// MarkTransactionPaidOut records the seller transfer of a completed transaction.
func (s *Store) MarkTransactionPaidOut(ctx context.Context, transactionID, transferID string, now time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	transactionID = strings.TrimSpace(transactionID)
	transferID = strings.TrimSpace(transferID)
	if transactionID == "" {
		return fmt.Errorf("transaction id is required")
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE transactions
SET status = ?, transfer_id = ?, updated_at = ?
WHERE id = ? AND status = ?
`, string(domain.TransactionPaidOut), transferID, toMillis(now), transactionID, string(domain.TransactionCompleted))
	if err != nil {
		return fmt.Errorf("mark transaction paid out: %w", err)
	}
	return requireAffected(result, "mark transaction paid out")
}

func scanTransaction(scan scanner) (domain.Transaction, error) {
	var t domain.Transaction
	var kind, status string
	var createdAt, updatedAt int64
	if err := scan(
		&t.ID,
		&t.CheckoutSessionID,
		&t.PaymentIntentID,
		&t.BuyerID,
		&t.SellerID,
		&kind,
		&t.ListingID,
		&t.AmountCents,
		&t.FeeCents,
		&t.PayoutCents,
		&t.Currency,
		&status,
		&t.TransferID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Transaction{}, err
	}
	t.Kind = domain.ListingKind(kind)
	t.Status = domain.TransactionStatus(status)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}
