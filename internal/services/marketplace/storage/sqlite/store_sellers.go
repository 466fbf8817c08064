package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
)

const sellerColumns = `user_id, display_name, bio, stripe_account_id, status, rejection_reason, submitted_at, decided_at, decided_by, created_at, updated_at`

// PutSellerProfile inserts or updates a seller profile keyed by user id.
func (s *Store) PutSellerProfile(ctx context.Context, profile domain.SellerProfile) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	profile.UserID = strings.TrimSpace(profile.UserID)
	if profile.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if profile.Status == "" {
		return fmt.Errorf("seller status is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO seller_profiles (`+sellerColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	display_name = excluded.display_name,
	bio = excluded.bio,
	stripe_account_id = excluded.stripe_account_id,
	status = excluded.status,
	rejection_reason = excluded.rejection_reason,
	submitted_at = excluded.submitted_at,
	decided_at = excluded.decided_at,
	decided_by = excluded.decided_by,
	updated_at = excluded.updated_at
`,
		profile.UserID,
		profile.DisplayName,
		profile.Bio,
		profile.StripeAccountID,
		string(profile.Status),
		profile.RejectionReason,
		nullMillis(profile.SubmittedAt),
		nullMillis(profile.DecidedAt),
		profile.DecidedBy,
		toMillis(profile.CreatedAt),
		toMillis(profile.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put seller profile: %w", err)
	}
	return nil
}

// GetSellerProfile returns the seller profile for userID.
func (s *Store) GetSellerProfile(ctx context.Context, userID string) (domain.SellerProfile, error) {
	if err := s.ready(ctx); err != nil {
		return domain.SellerProfile{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.SellerProfile{}, fmt.Errorf("user id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+sellerColumns+` FROM seller_profiles WHERE user_id = ?`, userID)
	profile, err := scanSeller(row.Scan)
	if err != nil {
		return domain.SellerProfile{}, notFound(err, "get seller profile")
	}
	return profile, nil
}

// ListSellerProfiles pages seller profiles ordered by user id.
func (s *Store) ListSellerProfiles(ctx context.Context, status domain.SellerStatus, pageSize int, pageToken string) (storage.SellerPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SellerPage{}, err
	}
	if pageSize <= 0 {
		return storage.SellerPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+sellerColumns+`
FROM seller_profiles
WHERE (? = '' OR status = ?)
AND (? = '' OR user_id > ?)
ORDER BY user_id ASC
LIMIT ?
`, string(status), string(status), pageToken, pageToken, pageSize+1)
	if err != nil {
		return storage.SellerPage{}, fmt.Errorf("list seller profiles: %w", err)
	}
	defer rows.Close()

	page := storage.SellerPage{Sellers: make([]domain.SellerProfile, 0, pageSize)}
	for rows.Next() {
		profile, err := scanSeller(rows.Scan)
		if err != nil {
			return storage.SellerPage{}, fmt.Errorf("scan seller profile: %w", err)
		}
		page.Sellers = append(page.Sellers, profile)
	}
	if err := rows.Err(); err != nil {
		return storage.SellerPage{}, fmt.Errorf("iterate seller profiles: %w", err)
	}
	if len(page.Sellers) > pageSize {
		page.NextPageToken = page.Sellers[pageSize-1].UserID
		page.Sellers = page.Sellers[:pageSize]
	}
	return page, nil
}

func scanSeller(scan scanner) (domain.SellerProfile, error) {
	var profile domain.SellerProfile
	var status string
	var submittedAt, decidedAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.Bio,
		&profile.StripeAccountID,
		&status,
		&profile.RejectionReason,
		&submittedAt,
		&decidedAt,
		&profile.DecidedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.SellerProfile{}, err
	}
	profile.Status = domain.SellerStatus(status)
	profile.SubmittedAt = fromNullMillis(submittedAt)
	profile.DecidedAt = fromNullMillis(decidedAt)
	profile.CreatedAt = fromMillis(createdAt)
	profile.UpdatedAt = fromMillis(updatedAt)
	return profile, nil
}
