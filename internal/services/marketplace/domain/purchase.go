package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/id"
	"github.com/louisbranch/roleandroll/internal/platform/money"
)

// Listing is the purchasable view shared by campaigns and items.
type Listing struct {
	Kind       ListingKind
	ID         string
	SellerID   string
	Title      string
	PriceCents int64
	Currency   string
}

// CampaignListing returns the purchasable view of c.
func CampaignListing(c Campaign) Listing {
	return Listing{Kind: ListingCampaign, ID: c.ID, SellerID: c.SellerID, Title: c.Title, PriceCents: c.PriceCents, Currency: c.Currency}
}

// ItemListing returns the purchasable view of item.
func ItemListing(item Item) Listing {
	return Listing{Kind: ListingItem, ID: item.ID, SellerID: item.SellerID, Title: item.Title, PriceCents: item.PriceCents, Currency: item.Currency}
}

// Free reports whether the listing can be granted without checkout.
func (l Listing) Free() bool {
	return l.PriceCents == 0
}

// Purchase records that a user owns a listing.
type Purchase struct {
	ID                string
	UserID            string
	Kind              ListingKind
	ListingID         string
	AmountCents       int64
	Currency          string
	CheckoutSessionID string
	CreatedAt         time.Time
}

// BookingStatus is the state of a campaign seat.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking reserves one seat in a live campaign.
type Booking struct {
	ID         string
	CampaignID string
	UserID     string
	Status     BookingStatus
	CreatedAt  time.Time
}

// TransactionStatus is the settlement state of a paid checkout.
type TransactionStatus string

const (
	// TransactionCompleted means the buyer paid and the seller payout is due.
	TransactionCompleted TransactionStatus = "COMPLETED"
	// TransactionPaidOut means the seller transfer was created.
	TransactionPaidOut TransactionStatus = "PAID_OUT"
	// TransactionNeedsRefund means payment arrived for a seat that was no
	// longer available.
	TransactionNeedsRefund TransactionStatus = "NEEDS_REFUND"
)

// Transaction is the financial record of one paid checkout.
type Transaction struct {
	ID                string
	CheckoutSessionID string
	PaymentIntentID   string
	BuyerID           string
	SellerID          string
	Kind              ListingKind
	ListingID         string
	AmountCents       int64
	FeeCents          int64
	PayoutCents       int64
	Currency          string
	Status            TransactionStatus
	TransferID        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ValidatePurchase checks that buyerID may buy listing. Seat availability is
// checked separately by the store inside a transaction.
func ValidatePurchase(buyerID string, listing Listing, alreadyOwned bool) error {
	if strings.TrimSpace(buyerID) == "" {
		return apperrors.New(apperrors.CodeUnauthenticated, "sign in to purchase")
	}
	if listing.SellerID == buyerID {
		return apperrors.New(apperrors.CodePurchaseOwnListing, "sellers cannot buy their own listings")
	}
	if alreadyOwned {
		return apperrors.WithMetadata(
			apperrors.CodePurchaseAlreadyOwned,
			"listing is already owned",
			map[string]string{"Kind": string(listing.Kind), "ListingID": listing.ID},
		)
	}
	return nil
}

// CheckCampaignPurchasable rejects campaigns that are not open for booking.
func CheckCampaignPurchasable(c Campaign, confirmedSeats int) error {
	if c.Status != CampaignPublished {
		return apperrors.New(apperrors.CodeCampaignNotPublished, "campaign is not open for booking")
	}
	if confirmedSeats >= c.Capacity {
		return apperrors.WithMetadata(
			apperrors.CodeCampaignFull,
			"campaign has no seats left",
			map[string]string{"Capacity": fmt.Sprint(c.Capacity)},
		)
	}
	return nil
}

// CheckItemPurchasable rejects archived items.
func CheckItemPurchasable(item Item) error {
	if item.Archived {
		return apperrors.New(apperrors.CodeNotFound, "item is no longer available")
	}
	return nil
}

// Grant is the set of records produced when a buyer acquires a listing.
type Grant struct {
	Purchase Purchase
	// Booking is set for campaign listings.
	Booking *Booking
}

// NewGrant builds the purchase and, for campaigns, the booking for buyerID.
func NewGrant(buyerID string, listing Listing, checkoutSessionID string, now time.Time, idGenerator func() (string, error)) (Grant, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	purchaseID, err := idGenerator()
	if err != nil {
		return Grant{}, fmt.Errorf("generate purchase id: %w", err)
	}
	now = now.UTC()
	grant := Grant{Purchase: Purchase{
		ID:                purchaseID,
		UserID:            buyerID,
		Kind:              listing.Kind,
		ListingID:         listing.ID,
		AmountCents:       listing.PriceCents,
		Currency:          listing.Currency,
		CheckoutSessionID: checkoutSessionID,
		CreatedAt:         now,
	}}
	if listing.Kind == ListingCampaign {
		bookingID, err := idGenerator()
		if err != nil {
			return Grant{}, fmt.Errorf("generate booking id: %w", err)
		}
		grant.Booking = &Booking{
			ID:         bookingID,
			CampaignID: listing.ID,
			UserID:     buyerID,
			Status:     BookingConfirmed,
			CreatedAt:  now,
		}
	}
	return grant, nil
}

// NewTransaction computes the fee split for a paid checkout.
func NewTransaction(checkoutSessionID, paymentIntentID, buyerID string, listing Listing, amountCents int64, feeBasisPoints int, now time.Time, idGenerator func() (string, error)) (Transaction, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if strings.TrimSpace(checkoutSessionID) == "" {
		return Transaction{}, fmt.Errorf("checkout session id is required")
	}
	fee, payout, err := money.SplitFee(amountCents, feeBasisPoints)
	if err != nil {
		return Transaction{}, err
	}
	txID, err := idGenerator()
	if err != nil {
		return Transaction{}, fmt.Errorf("generate transaction id: %w", err)
	}
	now = now.UTC()
	return Transaction{
		ID:                txID,
		CheckoutSessionID: checkoutSessionID,
		PaymentIntentID:   paymentIntentID,
		BuyerID:           buyerID,
		SellerID:          listing.SellerID,
		Kind:              listing.Kind,
		ListingID:         listing.ID,
		AmountCents:       amountCents,
		FeeCents:          fee,
		PayoutCents:       payout,
		Currency:          listing.Currency,
		Status:            TransactionCompleted,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
