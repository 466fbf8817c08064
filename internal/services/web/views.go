package web

import (
	"encoding/json"
	"time"

	"golang.org/x/text/language"

	"github.com/louisbranch/roleandroll/internal/platform/money"
	"github.com/louisbranch/roleandroll/internal/services/auth/user"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
)

type userJSON struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func userView(u user.User) userJSON {
	return userJSON{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

type sellerJSON struct {
	UserID          string     `json:"user_id"`
	DisplayName     string     `json:"display_name"`
	Bio             string     `json:"bio"`
	Status          string     `json:"status"`
	PayoutsLinked   bool       `json:"payouts_linked"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	OnboardingURL   string     `json:"onboarding_url,omitempty"`
}

func sellerView(p domain.SellerProfile) sellerJSON {
	return sellerJSON{
		UserID:          p.UserID,
		DisplayName:     p.DisplayName,
		Bio:             p.Bio,
		Status:          string(p.Status),
		PayoutsLinked:   p.StripeAccountID != "",
		RejectionReason: p.RejectionReason,
		SubmittedAt:     p.SubmittedAt,
		DecidedAt:       p.DecidedAt,
	}
}

type campaignJSON struct {
	ID          string     `json:"id"`
	SellerID    string     `json:"seller_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Scene       string     `json:"scene,omitempty"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	Price       string     `json:"price"`
	Capacity    int        `json:"capacity"`
	SeatsTaken  *int       `json:"seats_taken,omitempty"`
	DiceSystem  string     `json:"dice_system"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

func campaignView(c domain.Campaign, tag language.Tag) campaignJSON {
	return campaignJSON{
		ID:          c.ID,
		SellerID:    c.SellerID,
		Title:       c.Title,
		Description: c.Description,
		Scene:       c.Scene,
		PriceCents:  c.PriceCents,
		Currency:    c.Currency,
		Price:       money.Format(tag, c.PriceCents, c.Currency),
		Capacity:    c.Capacity,
		DiceSystem:  string(c.DiceSystem),
		StartsAt:    c.StartsAt,
		ImageURL:    c.ImageURL,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
	}
}

type itemJSON struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	Price       string    `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func itemView(i domain.Item, tag language.Tag) itemJSON {
	return itemJSON{
		ID:          i.ID,
		SellerID:    i.SellerID,
		Title:       i.Title,
		Description: i.Description,
		PriceCents:  i.PriceCents,
		Currency:    i.Currency,
		Price:       money.Format(tag, i.PriceCents, i.Currency),
		ImageURL:    i.ImageURL,
		CreatedAt:   i.CreatedAt,
	}
}

type purchaseJSON struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	ListingID   string    `json:"listing_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

func purchaseView(p domain.Purchase, tag language.Tag) purchaseJSON {
	return purchaseJSON{
		ID:          p.ID,
		Kind:        string(p.Kind),
		ListingID:   p.ListingID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Amount:      money.Format(tag, p.AmountCents, p.Currency),
		CreatedAt:   p.CreatedAt,
	}
}

type turnJSON struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ActorName   string          `json:"actor_name"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Check       json.RawMessage `json:"check,omitempty"`
	Narration   string          `json:"narration"`
	CreatedAt   time.Time       `json:"created_at"`
}

func turnView(t domain.RoomTurn) turnJSON {
	view := turnJSON{
		ID:          t.ID,
		UserID:      t.UserID,
		ActorName:   t.ActorName,
		Kind:        t.Kind,
		Description: t.Description,
		Narration:   t.Narration,
		CreatedAt:   t.CreatedAt,
	}
	if t.CheckJSON != "" {
		view.Check = json.RawMessage(t.CheckJSON)
	}
	return view
}

type siteConfigJSON struct {
	FeeBasisPoints int        `json:"fee_bps"`
	Maintenance    bool       `json:"maintenance"`
	UpdatedBy      string     `json:"updated_by,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func siteConfigView(c domain.SiteConfig) siteConfigJSON {
	view := siteConfigJSON{FeeBasisPoints: c.FeeBasisPoints, Maintenance: c.Maintenance, UpdatedBy: c.UpdatedBy}
	if !c.UpdatedAt.IsZero() {
		updated := c.UpdatedAt
		view.UpdatedAt = &updated
	}
	return view
}

type pageJSON[T any] struct {
	Results       []T    `json:"results"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

func pageOf[S any, T any](items []S, next string, view func(S) T) pageJSON[T] {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, view(item))
	}
	return pageJSON[T]{Results: out, NextPageToken: next}
}

var priceLanguages = language.NewMatcher([]language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.BrazilianPortuguese,
	language.German,
	language.French,
	language.Spanish,
})

// priceTag picks the locale used to format prices from Accept-Language.
func priceTag(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.AmericanEnglish
	}
	tag, _, _ := priceLanguages.Match(tags...)
	return tag
}
