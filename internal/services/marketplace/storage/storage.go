package storage

import (
	"context"
	"time"

	"github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New(errors.CodeNotFound, "record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New(errors.CodeAlreadyExists, "record already exists")
)

// SellerStore persists seller profiles.
type SellerStore interface {
	PutSellerProfile(ctx context.Context, profile domain.SellerProfile) error
	GetSellerProfile(ctx context.Context, userID string) (domain.SellerProfile, error)
	// ListSellerProfiles pages profiles ordered by user id. An empty status
	// lists every profile.
	ListSellerProfiles(ctx context.Context, status domain.SellerStatus, pageSize int, pageToken string) (SellerPage, error)
}

// SellerPage describes a page of seller profiles.
type SellerPage struct {
	Sellers       []domain.SellerProfile
	NextPageToken string
}

// CampaignFilter narrows campaign listings. Empty fields match everything.
type CampaignFilter struct {
	Status   domain.CampaignStatus
	SellerID string
}

// CampaignStore persists campaign listings.
type CampaignStore interface {
	PutCampaign(ctx context.Context, campaign domain.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter, pageSize int, pageToken string) (CampaignPage, error)
	CountConfirmedBookings(ctx context.Context, campaignID string) (int, error)
}

// CampaignPage describes a page of campaigns.
type CampaignPage struct {
	Campaigns     []domain.Campaign
	NextPageToken string
}

// ItemStore persists marketplace items.
type ItemStore interface {
	PutItem(ctx context.Context, item domain.Item) error
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
	// ListItems pages non-archived items, optionally for one seller.
	ListItems(ctx context.Context, sellerID string, pageSize int, pageToken string) (ItemPage, error)
}

// ItemPage describes a page of items.
type ItemPage struct {
	Items         []domain.Item
	NextPageToken string
}

// GrantRequest records a listing grant.
type GrantRequest struct {
	Grant domain.Grant
	// Event is enqueued in the same transaction when set.
	Event *OutboxEvent
}

// PurchaseStore persists ownership records.
type PurchaseStore interface {
	HasPurchase(ctx context.Context, userID string, kind domain.ListingKind, listingID string) (bool, error)
	GetBooking(ctx context.Context, campaignID, userID string) (domain.Booking, error)
	ListPurchases(ctx context.Context, userID string) ([]domain.Purchase, error)
	// GrantListing atomically records a purchase and, for campaigns, a
	// booking. It returns ErrAlreadyExists when the user owns the listing and
	// the campaign purchasability error when the campaign is closed or full.
	GrantListing(ctx context.Context, req GrantRequest) error
}

// Fulfillment is one paid checkout to record.
type Fulfillment struct {
	Grant       domain.Grant
	Transaction domain.Transaction
	Event       OutboxEvent
}

// FulfillmentResult reports what FulfillCheckout recorded.
type FulfillmentResult struct {
	Transaction domain.Transaction
	// Duplicate is set when the checkout session was already fulfilled.
	Duplicate bool
}

// TransactionStore persists paid checkouts.
type TransactionStore interface {
	// FulfillCheckout records the grant, the transaction and the outbox event
	// in one transaction. It is idempotent on the checkout session id. When
	// the buyer already owns the listing or the campaign can no longer take
	// the booking, only the transaction is recorded with status NEEDS_REFUND.
	FulfillCheckout(ctx context.Context, f Fulfillment) (FulfillmentResult, error)
	GetTransaction(ctx context.Context, transactionID string) (domain.Transaction, error)
	GetTransactionBySession(ctx context.Context, checkoutSessionID string) (domain.Transaction, error)
	// MarkTransactionPaidOut moves a COMPLETED transaction to PAID_OUT. transferID
	// is empty when nothing was owed to the seller.
	MarkTransactionPaidOut(ctx context.Context, transactionID, transferID string, now time.Time) error
}

// SiteConfigStore persists the singleton site configuration.
type SiteConfigStore interface {
	// GetSiteConfig returns the stored configuration or the defaults.
	GetSiteConfig(ctx context.Context) (domain.SiteConfig, error)
	PutSiteConfig(ctx context.Context, cfg domain.SiteConfig) error
}

// RoomTurnStore persists the append-only room log.
type RoomTurnStore interface {
	AppendRoomTurn(ctx context.Context, turn domain.RoomTurn) error
	// ListRoomTurns returns up to limit most recent turns, oldest first.
	ListRoomTurns(ctx context.Context, campaignID string, limit int) ([]domain.RoomTurn, error)
}

// OutboxStatus is the processing state of an outbox event.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusLeased    OutboxStatus = "leased"
	OutboxStatusSucceeded OutboxStatus = "succeeded"
	OutboxStatusDead      OutboxStatus = "dead"
)

// OutboxEvent is one durable integration event.
type OutboxEvent struct {
	ID             string
	EventType      string
	PayloadJSON    string
	DedupeKey      string
	Status         OutboxStatus
	AttemptCount   int32
	NextAttemptAt  time.Time
	LeaseOwner     string
	LeaseExpiresAt *time.Time
	LastError      string
	ProcessedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OutboxStore persists and leases integration events.
type OutboxStore interface {
	// EnqueueOutboxEvent stores a pending event. Events sharing a dedupe key
	// are stored once.
	EnqueueOutboxEvent(ctx context.Context, event OutboxEvent) error
	GetOutboxEvent(ctx context.Context, eventID string) (OutboxEvent, error)
	LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]OutboxEvent, error)
	MarkOutboxSucceeded(ctx context.Context, eventID, consumer string, processedAt time.Time) error
	MarkOutboxRetry(ctx context.Context, eventID, consumer string, nextAttemptAt time.Time, lastError string) error
	MarkOutboxDead(ctx context.Context, eventID, consumer, lastError string, processedAt time.Time) error
}

// Store is the full marketplace persistence surface.
type Store interface {
	SellerStore
	CampaignStore
	ItemStore
	PurchaseStore
	TransactionStore
	SiteConfigStore
	RoomTurnStore
	OutboxStore
}
