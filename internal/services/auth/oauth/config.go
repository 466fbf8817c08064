package oauth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// ProviderGoogle is the provider id stored on linked identities.
	ProviderGoogle = "google"

	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Config describes Google sign-in configuration.
type Config struct {
	ClientID     string        `env:"ROLEANDROLL_GOOGLE_CLIENT_ID"`
	ClientSecret string        `env:"ROLEANDROLL_GOOGLE_CLIENT_SECRET"`
	RedirectURL  string        `env:"ROLEANDROLL_GOOGLE_REDIRECT_URL"`
	AuthURL      string        `env:"ROLEANDROLL_GOOGLE_AUTH_URL"`
	TokenURL     string        `env:"ROLEANDROLL_GOOGLE_TOKEN_URL"`
	UserInfoURL  string        `env:"ROLEANDROLL_GOOGLE_USERINFO_URL"`
	Scopes       []string      `env:"ROLEANDROLL_GOOGLE_SCOPES" envSeparator:","`
	StateTTL     time.Duration `env:"ROLEANDROLL_OAUTH_STATE_TTL" envDefault:"10m"`
	// AdminEmails are promoted to the admin role when they sign in.
	AdminEmails []string `env:"ROLEANDROLL_ADMIN_EMAILS" envSeparator:","`
}

// Enabled reports whether Google sign-in credentials are configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

func (c Config) oauth2Config() *oauth2.Config {
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &oauth2.Config{
		ClientID:     strings.TrimSpace(c.ClientID),
		ClientSecret: strings.TrimSpace(c.ClientSecret),
		RedirectURL:  strings.TrimSpace(c.RedirectURL),
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   firstNonEmpty(c.AuthURL, defaultGoogleAuthURL),
			TokenURL:  firstNonEmpty(c.TokenURL, defaultGoogleTokenURL),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c Config) stateTTL() time.Duration {
	if c.StateTTL <= 0 {
		return 10 * time.Minute
	}
	return c.StateTTL
}

func (c Config) adminSet() map[string]struct{} {
	admins := make(map[string]struct{}, len(c.AdminEmails))
	for _, email := range c.AdminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = struct{}{}
		}
	}
	return admins
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
