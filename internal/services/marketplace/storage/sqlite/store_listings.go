package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/roleandroll/internal/services/game/core/dice"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
)

const campaignColumns = `id, seller_id, title, description, scene, price_cents, currency, capacity, dice_system, starts_at, image_url, status, created_at, updated_at`

// PutCampaign inserts or updates a campaign keyed by id.
func (s *Store) PutCampaign(ctx context.Context, c domain.Campaign) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("campaign id is required")
	}
	if strings.TrimSpace(c.SellerID) == "" {
		return fmt.Errorf("seller id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO campaigns (`+campaignColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	scene = excluded.scene,
	price_cents = excluded.price_cents,
	currency = excluded.currency,
	capacity = excluded.capacity,
	dice_system = excluded.dice_system,
	starts_at = excluded.starts_at,
	image_url = excluded.image_url,
	status = excluded.status,
	updated_at = excluded.updated_at
`,
		c.ID,
		c.SellerID,
		c.Title,
		c.Description,
		c.Scene,
		c.PriceCents,
		c.Currency,
		c.Capacity,
		string(c.DiceSystem),
		nullMillis(c.StartsAt),
		c.ImageURL,
		string(c.Status),
		toMillis(c.CreatedAt),
		toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put campaign: %w", err)
	}
	return nil
}

// GetCampaign returns one campaign by id.
func (s *Store) GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Campaign{}, err
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return domain.Campaign{}, fmt.Errorf("campaign id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, campaignID)
	c, err := scanCampaign(row.Scan)
	if err != nil {
		return domain.Campaign{}, notFound(err, "get campaign")
	}
	return c, nil
}

// ListCampaigns pages campaigns ordered by id.
func (s *Store) ListCampaigns(ctx context.Context, filter storage.CampaignFilter, pageSize int, pageToken string) (storage.CampaignPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.CampaignPage{}, err
	}
	if pageSize <= 0 {
		return storage.CampaignPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)
	status := string(filter.Status)
	sellerID := strings.TrimSpace(filter.SellerID)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+campaignColumns+`
FROM campaigns
WHERE (? = '' OR status = ?)
AND (? = '' OR seller_id = ?)
AND (? = '' OR id > ?)
ORDER BY id ASC
LIMIT ?
`, status, status, sellerID, sellerID, pageToken, pageToken, pageSize+1)
	if err != nil {
		return storage.CampaignPage{}, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	page := storage.CampaignPage{Campaigns: make([]domain.Campaign, 0, pageSize)}
	for rows.Next() {
		c, err := scanCampaign(rows.Scan)
		if err != nil {
			return storage.CampaignPage{}, fmt.Errorf("scan campaign: %w", err)
		}
		page.Campaigns = append(page.Campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return storage.CampaignPage{}, fmt.Errorf("iterate campaigns: %w", err)
	}
	if len(page.Campaigns) > pageSize {
		page.NextPageToken = page.Campaigns[pageSize-1].ID
		page.Campaigns = page.Campaigns[:pageSize]
	}
	return page, nil
}

// CountConfirmedBookings returns the number of seats taken in a campaign.
func (s *Store) CountConfirmedBookings(ctx context.Context, campaignID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return countConfirmedBookings(ctx, s.sqlDB, campaignID)
}

func countConfirmedBookings(ctx context.Context, q queryer, campaignID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE campaign_id = ? AND status = ?`,
		campaignID, string(domain.BookingConfirmed)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

func scanCampaign(scan scanner) (domain.Campaign, error) {
	var c domain.Campaign
	var system, status string
	var startsAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := scan(
		&c.ID,
		&c.SellerID,
		&c.Title,
		&c.Description,
		&c.Scene,
		&c.PriceCents,
		&c.Currency,
		&c.Capacity,
		&system,
		&startsAt,
		&c.ImageURL,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Campaign{}, err
	}
	c.DiceSystem = dice.System(system)
	c.Status = domain.CampaignStatus(status)
	c.StartsAt = fromNullMillis(startsAt)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

const itemColumns = `id, seller_id, title, description, price_cents, currency, image_url, archived, created_at, updated_at`

// PutItem inserts or updates an item keyed by id.
func (s *Store) PutItem(ctx context.Context, item domain.Item) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("item id is required")
	}
	if strings.TrimSpace(item.SellerID) == "" {
		return fmt.Errorf("seller id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO items (`+itemColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	price_cents = excluded.price_cents,
	currency = excluded.currency,
	image_url = excluded.image_url,
	archived = excluded.archived,
	updated_at = excluded.updated_at
`,
		item.ID,
		item.SellerID,
		item.Title,
		item.Description,
		item.PriceCents,
		item.Currency,
		item.ImageURL,
		boolToInt(item.Archived),
		toMillis(item.CreatedAt),
		toMillis(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// GetItem returns one item by id, archived or not.
func (s *Store) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Item{}, err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.Item{}, fmt.Errorf("item id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, itemID)
	item, err := scanItem(row.Scan)
	if err != nil {
		return domain.Item{}, notFound(err, "get item")
	}
	return item, nil
}

// ListItems pages listed items ordered by id.
func (s *Store) ListItems(ctx context.Context, sellerID string, pageSize int, pageToken string) (storage.ItemPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ItemPage{}, err
	}
	if pageSize <= 0 {
		return storage.ItemPage{}, fmt.Errorf("page size must be greater than zero")
	}
	sellerID = strings.TrimSpace(sellerID)
	pageToken = strings.TrimSpace(pageToken)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+itemColumns+`
FROM items
WHERE archived = 0
AND (? = '' OR seller_id = ?)
AND (? = '' OR id > ?)
ORDER BY id ASC
LIMIT ?
`, sellerID, sellerID, pageToken, pageToken, pageSize+1)
	if err != nil {
		return storage.ItemPage{}, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	page := storage.ItemPage{Items: make([]domain.Item, 0, pageSize)}
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return storage.ItemPage{}, fmt.Errorf("scan item: %w", err)
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return storage.ItemPage{}, fmt.Errorf("iterate items: %w", err)
	}
	if len(page.Items) > pageSize {
		page.NextPageToken = page.Items[pageSize-1].ID
		page.Items = page.Items[:pageSize]
	}
	return page, nil
}

func scanItem(scan scanner) (domain.Item, error) {
	var item domain.Item
	var archived int
	var createdAt, updatedAt int64
	if err := scan(
		&item.ID,
		&item.SellerID,
		&item.Title,
		&item.Description,
		&item.PriceCents,
		&item.Currency,
		&item.ImageURL,
		&archived,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Item{}, err
	}
	item.Archived = archived != 0
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}
