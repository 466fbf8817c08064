package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/id"
	"github.com/louisbranch/roleandroll/internal/platform/money"
	"github.com/louisbranch/roleandroll/internal/services/game/core/dice"
)

// CampaignStatus is the lifecycle state of a campaign listing.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignPublished CampaignStatus = "PUBLISHED"
	CampaignArchived  CampaignStatus = "ARCHIVED"
)

// ParseCampaignStatus normalizes a campaign status label.
func ParseCampaignStatus(value string) (CampaignStatus, bool) {
	switch status := CampaignStatus(strings.ToUpper(strings.TrimSpace(value))); status {
	case CampaignDraft, CampaignPublished, CampaignArchived:
		return status, true
	default:
		return "", false
	}
}

// ListingKind distinguishes what a purchase refers to.
type ListingKind string

const (
	ListingCampaign ListingKind = "campaign"
	ListingItem     ListingKind = "item"
)

// ParseListingKind normalizes a listing kind label.
func ParseListingKind(value string) (ListingKind, bool) {
	switch kind := ListingKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case ListingCampaign, ListingItem:
		return kind, true
	default:
		return "", false
	}
}

const (
	// MaxPriceCents caps a single listing price.
	MaxPriceCents = 1_000_000
	// MaxCapacity caps the seats of a live campaign.
	MaxCapacity = 50

	maxTitle       = 120
	maxDescription = 5000
	maxScene       = 2000
)

// Campaign is a sellable live game run by a seller acting as GM.
type Campaign struct {
	ID          string
	SellerID    string
	Title       string
	Description string
	Scene       string
	PriceCents  int64
	Currency    string
	Capacity    int
	DiceSystem  dice.System
	StartsAt    *time.Time
	ImageURL    string
	Status      CampaignStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CampaignInput carries seller-provided campaign fields.
type CampaignInput struct {
	Title       string
	Description string
	Scene       string
	PriceCents  int64
	Currency    string
	Capacity    int
	DiceSystem  string
	StartsAt    *time.Time
	ImageURL    string
}

// Item is a sellable digital product.
type Item struct {
	ID          string
	SellerID    string
	Title       string
	Description string
	PriceCents  int64
	Currency    string
	ImageURL    string
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemInput carries seller-provided item fields.
type ItemInput struct {
	Title       string
	Description string
	PriceCents  int64
	Currency    string
	ImageURL    string
}

// NewCampaign validates input and creates a DRAFT campaign owned by seller.
func NewCampaign(seller SellerProfile, input CampaignInput, now time.Time, idGenerator func() (string, error)) (Campaign, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if err := requireApproved(seller); err != nil {
		return Campaign{}, err
	}
	title, description, err := normalizeListingText(input.Title, input.Description)
	if err != nil {
		return Campaign{}, err
	}
	scene := strings.TrimSpace(input.Scene)
	if len([]rune(scene)) > maxScene {
		return Campaign{}, fieldError("scene is too long", "scene")
	}
	currency, err := normalizePrice(input.PriceCents, input.Currency)
	if err != nil {
		return Campaign{}, err
	}
	if input.Capacity < 1 || input.Capacity > MaxCapacity {
		return Campaign{}, fieldError(fmt.Sprintf("capacity must be between 1 and %d", MaxCapacity), "capacity")
	}
	system, ok := dice.ParseSystem(input.DiceSystem)
	if !ok {
		return Campaign{}, fieldError("dice system must be d20 or role_and_roll", "dice_system")
	}
	imageURL, err := normalizeImageURL(input.ImageURL)
	if err != nil {
		return Campaign{}, err
	}
	campaignID, err := idGenerator()
	if err != nil {
		return Campaign{}, fmt.Errorf("generate campaign id: %w", err)
	}
	now = now.UTC()
	var startsAt *time.Time
	if input.StartsAt != nil {
		value := input.StartsAt.UTC()
		startsAt = &value
	}
	return Campaign{
		ID:          campaignID,
		SellerID:    seller.UserID,
		Title:       title,
		Description: description,
		Scene:       scene,
		PriceCents:  input.PriceCents,
		Currency:    currency,
		Capacity:    input.Capacity,
		DiceSystem:  system,
		StartsAt:    startsAt,
		ImageURL:    imageURL,
		Status:      CampaignDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

var campaignTransitions = map[CampaignStatus]CampaignStatus{
	CampaignDraft:     CampaignPublished,
	CampaignPublished: CampaignArchived,
}

// TransitionCampaign moves a campaign forward in its lifecycle. Only the owning
// seller may do so, and publishing requires an approved seller.
func TransitionCampaign(c Campaign, seller SellerProfile, to CampaignStatus, now time.Time) (Campaign, error) {
	if c.SellerID != seller.UserID {
		return Campaign{}, apperrors.New(apperrors.CodePermissionDenied, "only the campaign owner can change its status")
	}
	if next, ok := campaignTransitions[c.Status]; !ok || next != to {
		return Campaign{}, apperrors.WithMetadata(
			apperrors.CodeCampaignInvalidStatusTransition,
			"campaign cannot move from "+string(c.Status)+" to "+string(to),
			map[string]string{"From": string(c.Status), "To": string(to)},
		)
	}
	if to == CampaignPublished {
		if err := requireApproved(seller); err != nil {
			return Campaign{}, err
		}
	}
	c.Status = to
	c.UpdatedAt = now.UTC()
	return c, nil
}

// NewItem validates input and creates a listed item. Items are visible as
// soon as they are created, so the seller must be approved.
func NewItem(seller SellerProfile, input ItemInput, now time.Time, idGenerator func() (string, error)) (Item, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if err := requireApproved(seller); err != nil {
		return Item{}, err
	}
	title, description, err := normalizeListingText(input.Title, input.Description)
	if err != nil {
		return Item{}, err
	}
	currency, err := normalizePrice(input.PriceCents, input.Currency)
	if err != nil {
		return Item{}, err
	}
	imageURL, err := normalizeImageURL(input.ImageURL)
	if err != nil {
		return Item{}, err
	}
	itemID, err := idGenerator()
	if err != nil {
		return Item{}, fmt.Errorf("generate item id: %w", err)
	}
	now = now.UTC()
	return Item{
		ID:          itemID,
		SellerID:    seller.UserID,
		Title:       title,
		Description: description,
		PriceCents:  input.PriceCents,
		Currency:    currency,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func requireApproved(seller SellerProfile) error {
	if !seller.CanPublish() {
		return apperrors.WithMetadata(
			apperrors.CodeSellerNotApproved,
			"seller must be approved to publish",
			map[string]string{"Status": string(seller.Status)},
		)
	}
	return nil
}

func normalizeListingText(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return "", "", fieldError("title is required", "title")
	}
	if len([]rune(title)) > maxTitle {
		return "", "", fieldError("title is too long", "title")
	}
	if len([]rune(description)) > maxDescription {
		return "", "", fieldError("description is too long", "description")
	}
	return title, description, nil
}

func normalizePrice(cents int64, currency string) (string, error) {
	if cents < 0 || cents > MaxPriceCents {
		return "", apperrors.WithMetadata(
			apperrors.CodeListingInvalidPrice,
			fmt.Sprintf("price must be between 0 and %d cents", MaxPriceCents),
			map[string]string{"Field": "price_cents"},
		)
	}
	code, err := money.NormalizeCurrency(currency)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeListingInvalidPrice, "currency is invalid", err)
	}
	return code, nil
}

func normalizeImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return "", fieldError("image url must be an https url", "image_url")
	}
	return raw, nil
}

func fieldError(message, field string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, message, map[string]string{"Field": field})
}
