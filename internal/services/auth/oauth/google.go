package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Profile is the subset of the Google userinfo response used to sign in.
type Profile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Provider runs the authorization code flow against an identity provider.
type Provider interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (Profile, error)
}

// Google is the Google OAuth 2.0 provider.
type Google struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogle builds a Google provider. A nil httpClient uses http.DefaultClient.
func NewGoogle(cfg Config, httpClient *http.Client) *Google {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Google{
		config:      cfg.oauth2Config(),
		userInfoURL: firstNonEmpty(cfg.UserInfoURL, defaultGoogleUserInfoURL),
		httpClient:  httpClient,
	}
}

// AuthCodeURL returns the consent page URL with an S256 PKCE challenge.
func (g *Google) AuthCodeURL(state, verifier string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for a token and loads the profile.
func (g *Google) Exchange(ctx context.Context, code, verifier string) (Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	token, err := g.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Profile{}, fmt.Errorf("exchange code: %w", err)
	}

	res, err := g.config.Client(ctx, token).Get(g.userInfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return Profile{}, fmt.Errorf("userinfo status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var profile Profile
	if err := json.NewDecoder(res.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if strings.TrimSpace(profile.Subject) == "" {
		return Profile{}, errors.New("userinfo missing subject")
	}
	return profile, nil
}
