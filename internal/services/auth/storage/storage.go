package storage

import (
	"context"
	"time"

	"github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/services/auth/user"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New(errors.CodeNotFound, "record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New(errors.CodeAlreadyExists, "record already exists")
)

// UserStore persists auth user records.
type UserStore interface {
	PutUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, userID string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context, pageSize int, pageToken string) (UserPage, error)
}

// UserPage describes a page of user records.
type UserPage struct {
	Users         []user.User
	NextPageToken string
}

// ExternalIdentity links a provider account to a local user.
type ExternalIdentity struct {
	Provider       string
	ProviderUserID string
	UserID         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IdentityStore persists linked provider identities.
type IdentityStore interface {
	PutExternalIdentity(ctx context.Context, identity ExternalIdentity) error
	GetExternalIdentity(ctx context.Context, provider, providerUserID string) (ExternalIdentity, error)
}

// OAuthState stores one pending provider authorization.
type OAuthState struct {
	State        string
	CodeVerifier string
	RedirectPath string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// OAuthStateStore persists pending provider authorizations.
type OAuthStateStore interface {
	PutOAuthState(ctx context.Context, state OAuthState) error
	// ConsumeOAuthState deletes and returns a state. Expired states are
	// deleted and reported as ErrNotFound.
	ConsumeOAuthState(ctx context.Context, state string, now time.Time) (OAuthState, error)
	DeleteExpiredOAuthStates(ctx context.Context, now time.Time) error
}
