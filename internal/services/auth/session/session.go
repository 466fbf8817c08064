// Package session issues and verifies signed web session tokens.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/id"
)

const (
	// DefaultTTL is the lifetime of a web session token.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultIssuer is stamped into every session token.
	DefaultIssuer = "roleandroll"
	// MinSecretLength is the minimum HMAC key length accepted.
	MinSecretLength = 32
)

// Config defines how session tokens are signed.
type Config struct {
	Secret string        `env:"ROLEANDROLL_SESSION_SECRET"`
	Issuer string        `env:"ROLEANDROLL_SESSION_ISSUER" envDefault:"roleandroll"`
	TTL    time.Duration `env:"ROLEANDROLL_SESSION_TTL"    envDefault:"168h"`
	Now    func() time.Time
}

// Claims captures validated session claims.
type Claims struct {
	SessionID string
	UserID    string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Token is a signed session token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Manager signs and verifies HS256 session tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: now}, nil
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a session token for userID.
func (m *Manager) Issue(userID, role string) (Token, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Token{}, errors.New("user id is required")
	}
	sessionID, err := id.NewID()
	if err != nil {
		return Token{}, fmt.Errorf("generate session id: %w", err)
	}
	issuedAt := m.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses a session token and validates signature, issuer, and expiry.
func (m *Manager) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "session is required")
	}
	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "session subject is required")
	}
	claims := Claims{
		SessionID: parsed.ID,
		UserID:    parsed.Subject,
		Role:      parsed.Role,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "session is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "session signature is invalid", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "session is invalid", err)
	}
}
