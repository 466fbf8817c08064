package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/id"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
)

const (
	// DefaultPageSize is used when a caller does not ask for a page size.
	DefaultPageSize = 20
	// MaxPageSize caps listing pages.
	MaxPageSize = 100
)

// Store is the persistence surface used by the marketplace service.
type Store interface {
	storage.SellerStore
	storage.CampaignStore
	storage.ItemStore
	storage.SiteConfigStore
	storage.OutboxStore
}

// ConnectProvider creates payout accounts for sellers.
type ConnectProvider interface {
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID string) (string, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.idGen = gen
		}
	}
}

// WithConnectProvider enables payout account onboarding.
func WithConnectProvider(provider ConnectProvider) Option {
	return func(s *Service) {
		s.connect = provider
	}
}

// Service implements marketplace use cases.
type Service struct {
	store   Store
	connect ConnectProvider
	clock   func() time.Time
	idGen   func() (string, error)
}

// NewService builds a marketplace service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, clock: time.Now, idGen: id.NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// NormalizePageSize clamps a requested page size.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// SellerAccount identifies the user registering as a seller.
type SellerAccount struct {
	UserID string
	Email  string
}

// SellerRegistration is the outcome of registering or updating a seller.
type SellerRegistration struct {
	Profile domain.SellerProfile
	// OnboardingURL is the payout account onboarding link, when payouts are
	// configured and the seller is not approved yet.
	OnboardingURL string
}

// RegisterSeller creates or updates the caller's seller profile and connects
// a payout account when a provider is configured.
func (s *Service) RegisterSeller(ctx context.Context, account SellerAccount, input domain.SellerInput) (SellerRegistration, error) {
	now := s.now()
	profile, err := s.store.GetSellerProfile(ctx, account.UserID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		profile, err = domain.RegisterSeller(account.UserID, input, now)
	case err == nil:
		profile, err = domain.UpdateSellerProfile(profile, input, now)
	}
	if err != nil {
		return SellerRegistration{}, err
	}

	var onboardingURL string
	if s.connect != nil && profile.Status != domain.SellerApproved {
		if profile.StripeAccountID == "" {
			accountID, err := s.connect.CreateConnectAccount(ctx, account.Email)
			if err != nil {
				return SellerRegistration{}, apperrors.Wrap(apperrors.CodePaymentProviderFailed, "could not create payout account", err)
			}
			profile.StripeAccountID = accountID
		}
		onboardingURL, err = s.connect.CreateAccountLink(ctx, profile.StripeAccountID)
		if err != nil {
			return SellerRegistration{}, apperrors.Wrap(apperrors.CodePaymentProviderFailed, "could not create onboarding link", err)
		}
	}

	if err := s.store.PutSellerProfile(ctx, profile); err != nil {
		return SellerRegistration{}, err
	}
	log.Printf("seller registered user_id=%s status=%s", profile.UserID, profile.Status)
	return SellerRegistration{Profile: profile, OnboardingURL: onboardingURL}, nil
}

// GetSeller returns the seller profile of userID.
func (s *Service) GetSeller(ctx context.Context, userID string) (domain.SellerProfile, error) {
	return s.store.GetSellerProfile(ctx, userID)
}

// SubmitSeller sends the caller's profile to admin review.
func (s *Service) SubmitSeller(ctx context.Context, userID string) (domain.SellerProfile, error) {
	profile, err := s.store.GetSellerProfile(ctx, userID)
	if err != nil {
		return domain.SellerProfile{}, err
	}
	profile, err = domain.SubmitSeller(profile, s.now())
	if err != nil {
		return domain.SellerProfile{}, err
	}
	if err := s.store.PutSellerProfile(ctx, profile); err != nil {
		return domain.SellerProfile{}, err
	}
	log.Printf("seller submitted user_id=%s", profile.UserID)
	return profile, nil
}

// ListSellers pages seller profiles, optionally filtered by status.
func (s *Service) ListSellers(ctx context.Context, status domain.SellerStatus, pageSize int, pageToken string) (storage.SellerPage, error) {
	return s.store.ListSellerProfiles(ctx, status, NormalizePageSize(pageSize), pageToken)
}

// ApproveSeller records an admin approval.
func (s *Service) ApproveSeller(ctx context.Context, adminID, userID string) (domain.SellerProfile, error) {
	return s.decideSeller(ctx, userID, func(profile domain.SellerProfile, now time.Time) (domain.SellerProfile, error) {
		return domain.ApproveSeller(profile, adminID, now)
	})
}

// RejectSeller records an admin rejection with a reason.
func (s *Service) RejectSeller(ctx context.Context, adminID, userID, reason string) (domain.SellerProfile, error) {
	return s.decideSeller(ctx, userID, func(profile domain.SellerProfile, now time.Time) (domain.SellerProfile, error) {
		return domain.RejectSeller(profile, adminID, reason, now)
	})
}

func (s *Service) decideSeller(ctx context.Context, userID string, decide func(domain.SellerProfile, time.Time) (domain.SellerProfile, error)) (domain.SellerProfile, error) {
	profile, err := s.store.GetSellerProfile(ctx, userID)
	if err != nil {
		return domain.SellerProfile{}, err
	}
	now := s.now()
	profile, err = decide(profile, now)
	if err != nil {
		return domain.SellerProfile{}, err
	}
	if err := s.store.PutSellerProfile(ctx, profile); err != nil {
		return domain.SellerProfile{}, err
	}
	log.Printf("seller decided user_id=%s status=%s by=%s", profile.UserID, profile.Status, profile.DecidedBy)

	dedupe := fmt.Sprintf("seller:%s:%s:%d", profile.UserID, profile.Status, now.UnixMilli())
	event, err := storage.NewOutboxEvent(domain.EventSellerDecided, dedupe, domain.SellerDecidedPayload{
		UserID:    profile.UserID,
		Status:    string(profile.Status),
		Reason:    profile.RejectionReason,
		DecidedBy: profile.DecidedBy,
	}, now, s.idGen)
	if err == nil {
		err = s.store.EnqueueOutboxEvent(ctx, event)
	}
	if err != nil {
		log.Printf("enqueue seller decision event user_id=%s: %v", profile.UserID, err)
	}
	return profile, nil
}

// CreateCampaign creates a draft campaign for an approved seller.
func (s *Service) CreateCampaign(ctx context.Context, sellerID string, input domain.CampaignInput) (domain.Campaign, error) {
	seller, err := s.sellerForListing(ctx, sellerID)
	if err != nil {
		return domain.Campaign{}, err
	}
	campaign, err := domain.NewCampaign(seller, input, s.now(), s.idGen)
	if err != nil {
		return domain.Campaign{}, err
	}
	if err := s.store.PutCampaign(ctx, campaign); err != nil {
		return domain.Campaign{}, err
	}
	log.Printf("campaign created campaign_id=%s seller_id=%s", campaign.ID, sellerID)
	return campaign, nil
}

// PublishCampaign opens a draft campaign for booking.
func (s *Service) PublishCampaign(ctx context.Context, sellerID, campaignID string) (domain.Campaign, error) {
	return s.transitionCampaign(ctx, sellerID, campaignID, domain.CampaignPublished)
}

// ArchiveCampaign closes a published campaign.
func (s *Service) ArchiveCampaign(ctx context.Context, sellerID, campaignID string) (domain.Campaign, error) {
	return s.transitionCampaign(ctx, sellerID, campaignID, domain.CampaignArchived)
}

func (s *Service) transitionCampaign(ctx context.Context, sellerID, campaignID string, to domain.CampaignStatus) (domain.Campaign, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return domain.Campaign{}, err
	}
	seller, err := s.sellerForListing(ctx, sellerID)
	if err != nil {
		return domain.Campaign{}, err
	}
	campaign, err = domain.TransitionCampaign(campaign, seller, to, s.now())
	if err != nil {
		return domain.Campaign{}, err
	}
	if err := s.store.PutCampaign(ctx, campaign); err != nil {
		return domain.Campaign{}, err
	}
	log.Printf("campaign status changed campaign_id=%s status=%s", campaign.ID, campaign.Status)
	return campaign, nil
}

// CampaignView is a campaign with its seat usage.
type CampaignView struct {
	Campaign   domain.Campaign
	SeatsTaken int
}

// GetCampaign returns a campaign visible to viewerID. Drafts are only
// visible to their owner.
func (s *Service) GetCampaign(ctx context.Context, viewerID, campaignID string) (CampaignView, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return CampaignView{}, err
	}
	if campaign.Status == domain.CampaignDraft && campaign.SellerID != viewerID {
		return CampaignView{}, storage.ErrNotFound
	}
	seats, err := s.store.CountConfirmedBookings(ctx, campaign.ID)
	if err != nil {
		return CampaignView{}, err
	}
	return CampaignView{Campaign: campaign, SeatsTaken: seats}, nil
}

// ListCampaigns pages published campaigns, or every campaign of sellerID
// when set.
func (s *Service) ListCampaigns(ctx context.Context, sellerID string, pageSize int, pageToken string) (storage.CampaignPage, error) {
	filter := storage.CampaignFilter{Status: domain.CampaignPublished}
	if sellerID = strings.TrimSpace(sellerID); sellerID != "" {
		filter = storage.CampaignFilter{SellerID: sellerID}
	}
	return s.store.ListCampaigns(ctx, filter, NormalizePageSize(pageSize), pageToken)
}

// CreateItem lists a digital item for an approved seller.
func (s *Service) CreateItem(ctx context.Context, sellerID string, input domain.ItemInput) (domain.Item, error) {
	seller, err := s.sellerForListing(ctx, sellerID)
	if err != nil {
		return domain.Item{}, err
	}
	item, err := domain.NewItem(seller, input, s.now(), s.idGen)
	if err != nil {
		return domain.Item{}, err
	}
	if err := s.store.PutItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	log.Printf("item created item_id=%s seller_id=%s", item.ID, sellerID)
	return item, nil
}

// ListItems pages listed items, optionally for one seller.
func (s *Service) ListItems(ctx context.Context, sellerID string, pageSize int, pageToken string) (storage.ItemPage, error) {
	return s.store.ListItems(ctx, sellerID, NormalizePageSize(pageSize), pageToken)
}

// SiteConfig returns the current site configuration.
func (s *Service) SiteConfig(ctx context.Context) (domain.SiteConfig, error) {
	return s.store.GetSiteConfig(ctx)
}

// UpdateSiteConfig applies an admin patch to the site configuration.
func (s *Service) UpdateSiteConfig(ctx context.Context, adminID string, patch domain.SiteConfigPatch) (domain.SiteConfig, error) {
	current, err := s.store.GetSiteConfig(ctx)
	if err != nil {
		return domain.SiteConfig{}, err
	}
	updated, err := domain.ApplySiteConfig(current, patch, adminID, s.now())
	if err != nil {
		return domain.SiteConfig{}, err
	}
	if err := s.store.PutSiteConfig(ctx, updated); err != nil {
		return domain.SiteConfig{}, err
	}
	log.Printf("site config updated fee_bps=%d maintenance=%t by=%s", updated.FeeBasisPoints, updated.Maintenance, adminID)
	return updated, nil
}

// sellerForListing loads the seller profile, reporting a missing profile as
// an unapproved seller.
func (s *Service) sellerForListing(ctx context.Context, sellerID string) (domain.SellerProfile, error) {
	seller, err := s.store.GetSellerProfile(ctx, sellerID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.SellerProfile{}, apperrors.New(apperrors.CodeSellerNotApproved, "register as a seller first")
	}
	return seller, err
}
