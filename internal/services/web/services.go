package web

import (
	"context"

	"github.com/louisbranch/roleandroll/internal/services/auth/user"
	marketapp "github.com/louisbranch/roleandroll/internal/services/marketplace/app"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
	"github.com/louisbranch/roleandroll/internal/services/media"
	"github.com/louisbranch/roleandroll/internal/services/payments"
	roomapp "github.com/louisbranch/roleandroll/internal/services/room/app"
	"github.com/louisbranch/roleandroll/internal/services/room/voice"
)

// UserReader loads the account behind a session.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (user.User, error)
}

// SignInService drives the provider sign-in flow.
type SignInService interface {
	Start(ctx context.Context, redirectPath string) (string, error)
	Complete(ctx context.Context, state, code string) (user.User, string, error)
}

// MarketplaceService covers sellers, listings and site configuration.
type MarketplaceService interface {
	RegisterSeller(ctx context.Context, account marketapp.SellerAccount, input domain.SellerInput) (marketapp.SellerRegistration, error)
	GetSeller(ctx context.Context, userID string) (domain.SellerProfile, error)
	SubmitSeller(ctx context.Context, userID string) (domain.SellerProfile, error)
	ListSellers(ctx context.Context, status domain.SellerStatus, pageSize int, pageToken string) (storage.SellerPage, error)
	ApproveSeller(ctx context.Context, adminID, userID string) (domain.SellerProfile, error)
	RejectSeller(ctx context.Context, adminID, userID, reason string) (domain.SellerProfile, error)

	CreateCampaign(ctx context.Context, sellerID string, input domain.CampaignInput) (domain.Campaign, error)
	PublishCampaign(ctx context.Context, sellerID, campaignID string) (domain.Campaign, error)
	ArchiveCampaign(ctx context.Context, sellerID, campaignID string) (domain.Campaign, error)
	GetCampaign(ctx context.Context, viewerID, campaignID string) (marketapp.CampaignView, error)
	ListCampaigns(ctx context.Context, sellerID string, pageSize int, pageToken string) (storage.CampaignPage, error)
	CreateItem(ctx context.Context, sellerID string, input domain.ItemInput) (domain.Item, error)
	ListItems(ctx context.Context, sellerID string, pageSize int, pageToken string) (storage.ItemPage, error)

	SiteConfig(ctx context.Context) (domain.SiteConfig, error)
	UpdateSiteConfig(ctx context.Context, adminID string, patch domain.SiteConfigPatch) (domain.SiteConfig, error)
}

// PaymentsService starts checkouts and fulfills provider webhooks.
type PaymentsService interface {
	Checkout(ctx context.Context, buyer payments.Buyer, kind domain.ListingKind, listingID string) (payments.CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Purchases(ctx context.Context, userID string) ([]domain.Purchase, error)
}

// RoomService runs campaign rooms.
type RoomService interface {
	VoiceToken(ctx context.Context, member roomapp.Member, campaignID string) (voice.Token, error)
	PlayTurn(ctx context.Context, member roomapp.Member, campaignID string, input roomapp.TurnInput) (domain.RoomTurn, error)
	Turns(ctx context.Context, userID, campaignID string, limit int) ([]domain.RoomTurn, error)
}

// ImageUploader stores user images.
type ImageUploader interface {
	UploadImage(ctx context.Context, ownerID string, data []byte) (media.Upload, error)
}
