package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/services/auth/storage"
	"github.com/louisbranch/roleandroll/internal/services/auth/user"
)

// Store is the persistence the sign-in flow needs.
type Store interface {
	storage.UserStore
	storage.IdentityStore
	storage.OAuthStateStore
}

// Service drives sign-in: it starts provider flows and turns completed flows
// into local users.
type Service struct {
	provider Provider
	store    Store
	stateTTL time.Duration
	admins   map[string]struct{}
	clock    func() time.Time
}

// NewService builds a sign-in service.
func NewService(cfg Config, provider Provider, store Store) *Service {
	return &Service{
		provider: provider,
		store:    store,
		stateTTL: cfg.stateTTL(),
		admins:   cfg.adminSet(),
		clock:    time.Now,
	}
}

// Start records a pending authorization and returns the provider consent URL.
// redirectPath must be a local absolute path; anything else is dropped.
func (s *Service) Start(ctx context.Context, redirectPath string) (string, error) {
	if s == nil || s.provider == nil || s.store == nil {
		return "", apperrors.New(apperrors.CodeUnavailable, "sign-in is not configured")
	}
	state, err := generateToken(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()
	now := s.clock().UTC()
	if err := s.store.PutOAuthState(ctx, storage.OAuthState{
		State:        state,
		CodeVerifier: verifier,
		RedirectPath: SafeRedirectPath(redirectPath),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.stateTTL),
	}); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.provider.AuthCodeURL(state, verifier), nil
}

// Complete validates state, exchanges the code, and returns the signed-in user
// with the redirect path recorded at Start.
func (s *Service) Complete(ctx context.Context, state, code string) (user.User, string, error) {
	if s == nil || s.provider == nil || s.store == nil {
		return user.User{}, "", apperrors.New(apperrors.CodeUnavailable, "sign-in is not configured")
	}
	if strings.TrimSpace(state) == "" || strings.TrimSpace(code) == "" {
		return user.User{}, "", apperrors.New(apperrors.CodeInvalidArgument, "missing code or state")
	}
	pending, err := s.store.ConsumeOAuthState(ctx, state, s.clock())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, "", apperrors.New(apperrors.CodeUnauthenticated, "sign-in state is invalid or expired")
		}
		return user.User{}, "", fmt.Errorf("consume oauth state: %w", err)
	}

	profile, err := s.provider.Exchange(ctx, code, pending.CodeVerifier)
	if err != nil {
		log.Printf("oauth exchange failed provider=%s err=%v", ProviderGoogle, err)
		return user.User{}, "", apperrors.Wrap(apperrors.CodeUnauthenticated, "failed to sign in with provider", err)
	}
	if !profile.EmailVerified {
		return user.User{}, "", apperrors.New(apperrors.CodeUnauthenticated, "provider email is not verified")
	}

	u, err := s.ensureUser(ctx, profile)
	if err != nil {
		return user.User{}, "", err
	}
	return u, pending.RedirectPath, nil
}

func (s *Service) ensureUser(ctx context.Context, profile Profile) (user.User, error) {
	now := s.clock().UTC()
	identity, err := s.store.GetExternalIdentity(ctx, ProviderGoogle, profile.Subject)
	switch {
	case err == nil:
		existing, err := s.store.GetUser(ctx, identity.UserID)
		if err != nil {
			return user.User{}, fmt.Errorf("get linked user: %w", err)
		}
		return s.refreshUser(ctx, existing, profile, now)
	case !errors.Is(err, storage.ErrNotFound):
		return user.User{}, fmt.Errorf("get external identity: %w", err)
	}

	// First sign-in with this Google account: link to an existing user with
	// the same email, or create one.
	u, err := s.store.GetUserByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		u, err = s.refreshUser(ctx, u, profile, now)
		if err != nil {
			return user.User{}, err
		}
	case errors.Is(err, storage.ErrNotFound):
		role := user.RoleUser
		if s.isAdminEmail(profile.Email) {
			role = user.RoleAdmin
		}
		u, err = user.CreateUser(user.CreateUserInput{
			Email:       profile.Email,
			DisplayName: profile.Name,
			AvatarURL:   profile.Picture,
			Role:        role,
		}, s.clock, nil)
		if err != nil {
			return user.User{}, err
		}
		if err := s.store.PutUser(ctx, u); err != nil {
			return user.User{}, fmt.Errorf("put user: %w", err)
		}
		log.Printf("user created user_id=%s role=%s", u.ID, u.Role)
	default:
		return user.User{}, fmt.Errorf("get user by email: %w", err)
	}

	if err := s.store.PutExternalIdentity(ctx, storage.ExternalIdentity{
		Provider:       ProviderGoogle,
		ProviderUserID: profile.Subject,
		UserID:         u.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		return user.User{}, fmt.Errorf("link identity: %w", err)
	}
	return u, nil
}

// refreshUser copies provider profile changes and admin promotion onto u.
func (s *Service) refreshUser(ctx context.Context, u user.User, profile Profile, now time.Time) (user.User, error) {
	changed := false
	if name := strings.TrimSpace(profile.Name); name != "" && name != u.DisplayName {
		u.DisplayName = name
		changed = true
	}
	if picture := strings.TrimSpace(profile.Picture); picture != u.AvatarURL {
		u.AvatarURL = picture
		changed = true
	}
	if !u.IsAdmin() && s.isAdminEmail(u.Email) {
		u.Role = user.RoleAdmin
		changed = true
	}
	if !changed {
		return u, nil
	}
	u.UpdatedAt = now
	if err := s.store.PutUser(ctx, u); err != nil {
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *Service) isAdminEmail(email string) bool {
	_, ok := s.admins[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// SafeRedirectPath keeps only local absolute paths, preventing open redirects.
func SafeRedirectPath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return "/"
	}
	return path
}

func generateToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
