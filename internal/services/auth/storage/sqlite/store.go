package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/roleandroll/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/roleandroll/internal/services/auth/storage"
	"github.com/louisbranch/roleandroll/internal/services/auth/storage/sqlite/migrations"
	"github.com/louisbranch/roleandroll/internal/services/auth/user"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements auth persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens an auth SQLite store and applies bundled migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitemigrate.Open(ctx, path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// PutUser inserts or updates a user record keyed by id.
func (s *Store) PutUser(ctx context.Context, u user.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	role := u.Role
	if role == "" {
		role = user.RoleUser
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, email, display_name, avatar_url, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	email = excluded.email,
	display_name = excluded.display_name,
	avatar_url = excluded.avatar_url,
	role = excluded.role,
	updated_at = excluded.updated_at
`,
		u.ID,
		u.Email,
		u.DisplayName,
		u.AvatarURL,
		string(role),
		toMillis(u.CreatedAt),
		toMillis(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

const userColumns = `id, email, display_name, avatar_url, role, created_at, updated_at`

// GetUser returns one user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.User{}, fmt.Errorf("user id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns one user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return user.User{}, fmt.Errorf("email is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ListUsers pages users ordered by id.
func (s *Store) ListUsers(ctx context.Context, pageSize int, pageToken string) (storage.UserPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.UserPage{}, err
	}
	if pageSize <= 0 {
		return storage.UserPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE (? = '' OR id > ?)
ORDER BY id ASC
LIMIT ?
`, pageToken, pageToken, pageSize+1)
	if err != nil {
		return storage.UserPage{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	page := storage.UserPage{Users: make([]user.User, 0, pageSize)}
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return storage.UserPage{}, fmt.Errorf("scan user: %w", err)
		}
		page.Users = append(page.Users, u)
	}
	if err := rows.Err(); err != nil {
		return storage.UserPage{}, fmt.Errorf("iterate users: %w", err)
	}
	if len(page.Users) > pageSize {
		page.NextPageToken = page.Users[pageSize-1].ID
		page.Users = page.Users[:pageSize]
	}
	return page, nil
}

// PutExternalIdentity links a provider account to a user.
func (s *Store) PutExternalIdentity(ctx context.Context, identity storage.ExternalIdentity) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	identity.Provider = strings.TrimSpace(identity.Provider)
	identity.ProviderUserID = strings.TrimSpace(identity.ProviderUserID)
	identity.UserID = strings.TrimSpace(identity.UserID)
	if identity.Provider == "" || identity.ProviderUserID == "" || identity.UserID == "" {
		return fmt.Errorf("provider, provider user id, and user id are required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO external_identities (provider, provider_user_id, user_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(provider, provider_user_id) DO UPDATE SET
	user_id = excluded.user_id,
	updated_at = excluded.updated_at
`,
		identity.Provider,
		identity.ProviderUserID,
		identity.UserID,
		toMillis(identity.CreatedAt),
		toMillis(identity.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put external identity: %w", err)
	}
	return nil
}

// GetExternalIdentity returns the identity for a provider account.
func (s *Store) GetExternalIdentity(ctx context.Context, provider, providerUserID string) (storage.ExternalIdentity, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ExternalIdentity{}, err
	}
	var identity storage.ExternalIdentity
	var createdAt, updatedAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT provider, provider_user_id, user_id, created_at, updated_at
FROM external_identities
WHERE provider = ? AND provider_user_id = ?
`, strings.TrimSpace(provider), strings.TrimSpace(providerUserID)).Scan(
		&identity.Provider,
		&identity.ProviderUserID,
		&identity.UserID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ExternalIdentity{}, storage.ErrNotFound
		}
		return storage.ExternalIdentity{}, fmt.Errorf("get external identity: %w", err)
	}
	identity.CreatedAt = fromMillis(createdAt)
	identity.UpdatedAt = fromMillis(updatedAt)
	return identity, nil
}

// PutOAuthState stores a pending provider authorization.
func (s *Store) PutOAuthState(ctx context.Context, state storage.OAuthState) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(state.State) == "" {
		return fmt.Errorf("state is required")
	}
	if strings.TrimSpace(state.CodeVerifier) == "" {
		return fmt.Errorf("code verifier is required")
	}
	if state.ExpiresAt.IsZero() {
		return fmt.Errorf("expires at is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO oauth_states (state, code_verifier, redirect_path, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)
`,
		state.State,
		state.CodeVerifier,
		state.RedirectPath,
		toMillis(state.CreatedAt),
		toMillis(state.ExpiresAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put oauth state: %w", err)
	}
	return nil
}

// ConsumeOAuthState deletes and returns a pending authorization.
func (s *Store) ConsumeOAuthState(ctx context.Context, state string, now time.Time) (storage.OAuthState, error) {
	if err := s.ready(ctx); err != nil {
		return storage.OAuthState{}, err
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return storage.OAuthState{}, storage.ErrNotFound
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.OAuthState{}, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var stored storage.OAuthState
	var createdAt, expiresAt int64
	err = tx.QueryRowContext(ctx, `
SELECT state, code_verifier, redirect_path, created_at, expires_at
FROM oauth_states
WHERE state = ?
`, state).Scan(&stored.State, &stored.CodeVerifier, &stored.RedirectPath, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.OAuthState{}, storage.ErrNotFound
		}
		return storage.OAuthState{}, fmt.Errorf("get oauth state: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_states WHERE state = ?`, state); err != nil {
		return storage.OAuthState{}, fmt.Errorf("delete oauth state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return storage.OAuthState{}, fmt.Errorf("commit oauth state: %w", err)
	}

	stored.CreatedAt = fromMillis(createdAt)
	stored.ExpiresAt = fromMillis(expiresAt)
	if !now.IsZero() && !stored.ExpiresAt.After(now.UTC()) {
		return storage.OAuthState{}, storage.ErrNotFound
	}
	return stored, nil
}

// DeleteExpiredOAuthStates removes abandoned authorizations.
func (s *Store) DeleteExpiredOAuthStates(ctx context.Context, now time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at <= ?`, toMillis(now)); err != nil {
		return fmt.Errorf("delete expired oauth states: %w", err)
	}
	return nil
}

type scanner func(dest ...any) error

func scanUser(scan scanner) (user.User, error) {
	var u user.User
	var role string
	var createdAt, updatedAt int64
	if err := scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &role, &createdAt, &updatedAt); err != nil {
		return user.User{}, err
	}
	u.Role = user.Role(role)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.IdentityStore = (*Store)(nil)
var _ storage.OAuthStateStore = (*Store)(nil)
