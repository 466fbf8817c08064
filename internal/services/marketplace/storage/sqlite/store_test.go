package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/services/game/core/dice"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
)

var baseTime = time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "marketplace.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func putSeller(t *testing.T, store *Store, userID string, status domain.SellerStatus) domain.SellerProfile {
	t.Helper()
	profile := domain.SellerProfile{
		UserID:          userID,
		DisplayName:     "GM " + userID,
		Bio:             "bio",
		StripeAccountID: "acct_" + userID,
		Status:          status,
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
	if err := store.PutSellerProfile(context.Background(), profile); err != nil {
		t.Fatalf("put seller: %v", err)
	}
	return profile
}

func putCampaign(t *testing.T, store *Store, id, sellerID string, capacity int, status domain.CampaignStatus) domain.Campaign {
	t.Helper()
	c := domain.Campaign{
		ID:         id,
		SellerID:   sellerID,
		Title:      "Campaign " + id,
		PriceCents: 1000,
		Currency:   "usd",
		Capacity:   capacity,
		DiceSystem: dice.SystemD20,
		Status:     status,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
	if err := store.PutCampaign(context.Background(), c); err != nil {
		t.Fatalf("put campaign: %v", err)
	}
	return c
}

func campaignGrant(t *testing.T, c domain.Campaign, buyerID, sessionID string) domain.Grant {
	t.Helper()
	n := 0
	grant, err := domain.NewGrant(buyerID, domain.CampaignListing(c), sessionID, baseTime, func() (string, error) {
		n++
		return fmt.Sprintf("%s-%s-%d", buyerID, c.ID, n), nil
	})
	if err != nil {
		t.Fatalf("new grant: %v", err)
	}
	return grant
}

func TestSellerProfileRoundTripAndListing(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	pending := putSeller(t, store, "seller-b", domain.SellerPending)
	putSeller(t, store, "seller-a", domain.SellerApproved)
	putSeller(t, store, "seller-c", domain.SellerPending)

	submitted := baseTime.Add(time.Hour)
	pending.SubmittedAt = &submitted
	pending.UpdatedAt = submitted
	if err := store.PutSellerProfile(ctx, pending); err != nil {
		t.Fatalf("update seller: %v", err)
	}
	got, err := store.GetSellerProfile(ctx, "seller-b")
	if err != nil {
		t.Fatalf("get seller: %v", err)
	}
	if got.SubmittedAt == nil || !got.SubmittedAt.Equal(submitted) || got.DecidedAt != nil {
		t.Fatalf("timestamps = %v / %v", got.SubmittedAt, got.DecidedAt)
	}
	if got.StripeAccountID != "acct_seller-b" || got.Status != domain.SellerPending {
		t.Fatalf("seller = %+v", got)
	}

	page, err := store.ListSellerProfiles(ctx, domain.SellerPending, 1, "")
	if err != nil {
		t.Fatalf("list sellers: %v", err)
	}
	if len(page.Sellers) != 1 || page.Sellers[0].UserID != "seller-b" || page.NextPageToken != "seller-b" {
		t.Fatalf("first page = %+v", page)
	}
	page, err = store.ListSellerProfiles(ctx, domain.SellerPending, 1, page.NextPageToken)
	if err != nil {
		t.Fatalf("list sellers page 2: %v", err)
	}
	if len(page.Sellers) != 1 || page.Sellers[0].UserID != "seller-c" || page.NextPageToken != "" {
		t.Fatalf("second page = %+v", page)
	}

	all, err := store.ListSellerProfiles(ctx, "", 10, "")
	if err != nil {
		t.Fatalf("list all sellers: %v", err)
	}
	if len(all.Sellers) != 3 {
		t.Fatalf("all sellers = %d, want 3", len(all.Sellers))
	}

	if _, err := store.GetSellerProfile(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing seller err = %v", err)
	}
}

func TestListCampaignsFilters(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	putSeller(t, store, "s1", domain.SellerApproved)
	putSeller(t, store, "s2", domain.SellerApproved)

	putCampaign(t, store, "c1", "s1", 4, domain.CampaignPublished)
	putCampaign(t, store, "c2", "s1", 4, domain.CampaignDraft)
	putCampaign(t, store, "c3", "s2", 4, domain.CampaignPublished)

	published, err := store.ListCampaigns(ctx, storage.CampaignFilter{Status: domain.CampaignPublished}, 10, "")
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(published.Campaigns) != 2 || published.Campaigns[0].ID != "c1" || published.Campaigns[1].ID != "c3" {
		t.Fatalf("published = %+v", published.Campaigns)
	}

	mine, err := store.ListCampaigns(ctx, storage.CampaignFilter{SellerID: "s1"}, 10, "")
	if err != nil {
		t.Fatalf("list by seller: %v", err)
	}
	if len(mine.Campaigns) != 2 {
		t.Fatalf("seller campaigns = %d, want 2", len(mine.Campaigns))
	}

	got, err := store.GetCampaign(ctx, "c1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.DiceSystem != dice.SystemD20 || got.StartsAt != nil || got.Capacity != 4 {
		t.Fatalf("campaign = %+v", got)
	}
}

func TestItemsHideArchived(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	putSeller(t, store, "s1", domain.SellerApproved)

	for _, item := range []domain.Item{
		{ID: "i1", SellerID: "s1", Title: "Map", Currency: "usd", CreatedAt: baseTime, UpdatedAt: baseTime},
		{ID: "i2", SellerID: "s1", Title: "Old map", Currency: "usd", Archived: true, CreatedAt: baseTime, UpdatedAt: baseTime},
	} {
		if err := store.PutItem(ctx, item); err != nil {
			t.Fatalf("put item: %v", err)
		}
	}
	page, err := store.ListItems(ctx, "", 10, "")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "i1" {
		t.Fatalf("items = %+v", page.Items)
	}
	archived, err := store.GetItem(ctx, "i2")
	if err != nil {
		t.Fatalf("get archived item: %v", err)
	}
	if !archived.Archived {
		t.Fatal("expected archived flag")
	}
}

func TestGrantListingEnforcesOwnershipAndCapacity(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	putSeller(t, store, "s1", domain.SellerApproved)
	c := putCampaign(t, store, "c1", "s1", 1, domain.CampaignPublished)

	if err := store.GrantListing(ctx, storage.GrantRequest{Grant: campaignGrant(t, c, "u1", "")}); err != nil {
		t.Fatalf("grant u1: %v", err)
	}
	owned, err := store.HasPurchase(ctx, "u1", domain.ListingCampaign, "c1")
	if err != nil || !owned {
		t.Fatalf("has purchase = %v, %v", owned, err)
	}
	booking, err := store.GetBooking(ctx, "c1", "u1")
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if booking.Status != domain.BookingConfirmed {
		t.Fatalf("booking status = %s", booking.Status)
	}

	err = store.GrantListing(ctx, storage.GrantRequest{Grant: campaignGrant(t, c, "u1", "")})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate grant err = %v", err)
	}

	err = store.GrantListing(ctx, storage.GrantRequest{Grant: campaignGrant(t, c, "u2", "")})
	if got := apperrors.CodeOf(err); got != apperrors.CodeCampaignFull {
		t.Fatalf("full campaign code = %s (err %v)", got, err)
	}
	seats, err := store.CountConfirmedBookings(ctx, "c1")
	if err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if seats != 1 {
		t.Fatalf("seats = %d, want 1", seats)
	}
}

func TestGrantListingEnqueuesEvent(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	putSeller(t, store, "s1", domain.SellerApproved)
	item := domain.Item{ID: "i1", SellerID: "s1", Title: "Map", Currency: "usd", CreatedAt: baseTime, UpdatedAt: baseTime}
	if err := store.PutItem(ctx, item); err != nil {
		t.Fatalf("put item: %v", err)
	}
	grant, err := domain.NewGrant("u1", domain.ItemListing(item), "", baseTime, func() (string, error) { return "p1", nil })
	if err != nil {
		t.Fatalf("new grant: %v", err)
	}
	event := storage.OutboxEvent{ID: "evt-1", EventType: domain.EventListingGranted, DedupeKey: "grant:p1", CreatedAt: baseTime}
	if err := store.GrantListing(ctx, storage.GrantRequest{Grant: grant, Event: &event}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	stored, err := store.GetOutboxEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if stored.Status != storage.OutboxStatusPending || stored.PayloadJSON != "{}" {
		t.Fatalf("event = %+v", stored)
	}
	purchases, err := store.ListPurchases(ctx, "u1")
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(purchases) != 1 || purchases[0].Kind != domain.ListingItem {
		t.Fatalf("purchases = %+v", purchases)
	}
}

func fulfillment(t *testing.T, c domain.Campaign, buyerID, sessionID string) storage.Fulfillment {
	t.Helper()
	listing := domain.CampaignListing(c)
	txn, err := domain.NewTransaction(sessionID, "pi_"+sessionID, buyerID, listing, c.PriceCents, 1000, baseTime, func() (string, error) {
		return "tx-" + sessionID, nil
	})
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}
	event, err := storage.NewOutboxEvent(domain.EventPurchaseCompleted, "purchase:"+sessionID, domain.PurchaseCompletedPayload{TransactionID: txn.ID}, baseTime, func() (string, error) {
		return "evt-" + sessionID, nil
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	return storage.Fulfillment{Grant: campaignGrant(t, c, buyerID, sessionID), Transaction: txn, Event: event}
}

func TestFulfillCheckoutIsIdempotent(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	putSeller(t, store, "s1", domain.SellerApproved)
	c := putCampaign(t, store, "c1", "s1", 2, domain.CampaignPublished)

	f := fulfillment(t, c, "u1", "cs_1")
	first, err := store.FulfillCheckout(ctx, f)
	if err != nil {
		t.Fatalf("first fulfillment: %v", err)
	}
	if first.Duplicate || first.Transaction.Status != domain.TransactionCompleted {
		t.Fatalf("first = %+v", first)
	}
	if first.Transaction.FeeCents != 100 || first.Transaction.PayoutCents != 900 {
		t.Fatalf("split = %d/%d", first.Transaction.FeeCents, first.Transaction.PayoutCents)
	}

	second, err := store.FulfillCheckout(ctx, f)
	if err != nil {
		t.Fatalf("second fulfillment: %v", err)
	}
	if !second.Duplicate || second.Transaction.ID != first.Transaction.ID {
		t.Fatalf("second = %+v", second)
	}

	seats, err := store.CountConfirmedBookings(ctx, "c1")
	if err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if seats != 1 {
		t.Fatalf("seats = %d, want 1", seats)
	}
	events, err := store.LeaseOutboxEvents(ctx, "test", 10, baseTime.Add(time.Minute), time.Minute)
	if err != nil {
		t.Fatalf("lease events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != domain.EventPurchaseCompleted {
		t.Fatalf("events = %+v", events)
	}
}

func TestFulfillCheckoutFullCampaignNeedsRefund(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	putSeller(t, store, "s1", domain.SellerApproved)
	c := putCampaign(t, store, "c1", "s1", 1, domain.CampaignPublished)

	if _, err := store.FulfillCheckout(ctx, fulfillment(t, c, "u1", "cs_1")); err != nil {
		t.Fatalf("fulfill u1: %v", err)
	}
	result, err := store.FulfillCheckout(ctx, fulfillment(t, c, "u2", "cs_2"))
	if err != nil {
		t.Fatalf("fulfill u2: %v", err)
	}
	if result.Transaction.Status != domain.TransactionNeedsRefund {
		t.Fatalf("status = %s, want NEEDS_REFUND", result.Transaction.Status)
	}
	if _, err := store.GetBooking(ctx, "c1", "u2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("u2 booking err = %v", err)
	}
	stored, err := store.GetTransactionBySession(ctx, "cs_2")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if stored.Status != domain.TransactionNeedsRefund {
		t.Fatalf("stored status = %s", stored.Status)
	}
	if _, err := store.GetOutboxEvent(ctx, "evt-cs_2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("refund transaction should not enqueue payout, err = %v", err)
	}
}

func TestMarkTransactionPaidOut(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	putSeller(t, store, "s1", domain.SellerApproved)
	c := putCampaign(t, store, "c1", "s1", 1, domain.CampaignPublished)
	result, err := store.FulfillCheckout(ctx, fulfillment(t, c, "u1", "cs_1"))
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	if err := store.MarkTransactionPaidOut(ctx, result.Transaction.ID, "tr_1", baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("mark paid out: %v", err)
	}
	got, err := store.GetTransaction(ctx, result.Transaction.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Status != domain.TransactionPaidOut || got.TransferID != "tr_1" {
		t.Fatalf("transaction = %+v", got)
	}
	if err := store.MarkTransactionPaidOut(ctx, result.Transaction.ID, "tr_2", baseTime); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second payout err = %v", err)
	}
}

func TestSiteConfigDefaultsAndUpdate(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	cfg, err := store.GetSiteConfig(ctx)
	if err != nil {
		t.Fatalf("get default config: %v", err)
	}
	if cfg.FeeBasisPoints != domain.DefaultFeeBasisPoints || cfg.Maintenance {
		t.Fatalf("default config = %+v", cfg)
	}

	cfg.FeeBasisPoints = 750
	cfg.Maintenance = true
	cfg.UpdatedBy = "admin-1"
	cfg.UpdatedAt = baseTime
	if err := store.PutSiteConfig(ctx, cfg); err != nil {
		t.Fatalf("put config: %v", err)
	}
	got, err := store.GetSiteConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if got.FeeBasisPoints != 750 || !got.Maintenance || got.UpdatedBy != "admin-1" || !got.UpdatedAt.Equal(baseTime) {
		t.Fatalf("config = %+v", got)
	}
}

func TestRoomTurnsReturnLatestInOrder(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	putSeller(t, store, "s1", domain.SellerApproved)
	putCampaign(t, store, "c1", "s1", 4, domain.CampaignPublished)

	for i := 0; i < 5; i++ {
		turn := domain.RoomTurn{
			ID:          fmt.Sprintf("turn-%d", i),
			CampaignID:  "c1",
			UserID:      "u1",
			ActorName:   "Ada",
			Kind:        "say",
			Description: fmt.Sprintf("line %d", i),
			Narration:   "ok",
			CreatedAt:   baseTime.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AppendRoomTurn(ctx, turn); err != nil {
			t.Fatalf("append turn %d: %v", i, err)
		}
	}
	turns, err := store.ListRoomTurns(ctx, "c1", 3)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("turns = %d, want 3", len(turns))
	}
	for i, want := range []string{"turn-2", "turn-3", "turn-4"} {
		if turns[i].ID != want {
			t.Fatalf("turns[%d] = %s, want %s", i, turns[i].ID, want)
		}
	}
}
