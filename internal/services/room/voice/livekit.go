// Package voice issues LiveKit access tokens for campaign rooms.
package voice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a voice access token.
const DefaultTTL = 6 * time.Hour

// Config holds LiveKit credentials.
type Config struct {
	URL       string        `env:"ROLEANDROLL_LIVEKIT_URL"`
	APIKey    string        `env:"ROLEANDROLL_LIVEKIT_API_KEY"`
	APISecret string        `env:"ROLEANDROLL_LIVEKIT_API_SECRET"`
	TTL       time.Duration `env:"ROLEANDROLL_LIVEKIT_TOKEN_TTL" envDefault:"6h"`
}

// Enabled reports whether voice credentials are configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.APISecret) != ""
}

// VideoGrant is the LiveKit room permission block.
type VideoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

// Claims is the LiveKit access token payload.
type Claims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
}

// Participant identifies who joins a room.
type Participant struct {
	Identity string
	Name     string
}

// Token is a signed access token plus the server to dial.
type Token struct {
	Token     string
	URL       string
	Room      string
	ExpiresAt time.Time
}

// Issuer signs LiveKit access tokens.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer validates cfg.
func NewIssuer(cfg Config) (*Issuer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("livekit api key and secret are required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// RoomName maps a campaign to its LiveKit room.
func RoomName(campaignID string) string {
	return "campaign-" + campaignID
}

// Issue signs a token letting p join, publish, and subscribe in room.
func (i *Issuer) Issue(room string, p Participant) (Token, error) {
	room = strings.TrimSpace(room)
	identity := strings.TrimSpace(p.Identity)
	if room == "" || identity == "" {
		return Token{}, errors.New("room and identity are required")
	}
	now := i.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(i.cfg.TTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.APIKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name: strings.TrimSpace(p.Name),
		Video: VideoGrant{
			Room:         room,
			RoomJoin:     true,
			CanPublish:   true,
			CanSubscribe: true,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.APISecret))
	if err != nil {
		return Token{}, fmt.Errorf("sign livekit token: %w", err)
	}
	return Token{Token: signed, URL: i.cfg.URL, Room: room, ExpiresAt: expiresAt}, nil
}
