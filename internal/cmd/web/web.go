// Package web parses web command configuration and wires the API services.
package web

import (
	"context"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/louisbranch/roleandroll/internal/platform/cmd"
	"github.com/louisbranch/roleandroll/internal/platform/random"
	"github.com/louisbranch/roleandroll/internal/platform/timeouts"
	"github.com/louisbranch/roleandroll/internal/services/auth/oauth"
	"github.com/louisbranch/roleandroll/internal/services/auth/session"
	authsqlite "github.com/louisbranch/roleandroll/internal/services/auth/storage/sqlite"
	"github.com/louisbranch/roleandroll/internal/services/game/narrator"
	"github.com/louisbranch/roleandroll/internal/services/game/turn"
	marketapp "github.com/louisbranch/roleandroll/internal/services/marketplace/app"
	marketsqlite "github.com/louisbranch/roleandroll/internal/services/marketplace/storage/sqlite"
	"github.com/louisbranch/roleandroll/internal/services/media"
	"github.com/louisbranch/roleandroll/internal/services/payments"
	"github.com/louisbranch/roleandroll/internal/services/payments/stripe"
	roomapp "github.com/louisbranch/roleandroll/internal/services/room/app"
	"github.com/louisbranch/roleandroll/internal/services/room/voice"
	"github.com/louisbranch/roleandroll/internal/services/web"
	"github.com/louisbranch/roleandroll/internal/services/web/platform/requestmeta"
)

// Config holds the web command configuration.
type Config struct {
	HTTPAddr   string `env:"ROLEANDROLL_WEB_HTTP_ADDR" envDefault:"localhost:8080"`
	AuthDBPath string `env:"ROLEANDROLL_AUTH_DB_PATH"  envDefault:"data/auth.db"`
	DBPath     string `env:"ROLEANDROLL_DB_PATH"       envDefault:"data/roleandroll.db"`

	Scheme   requestmeta.SchemePolicy
	Session  session.Config
	Google   oauth.Config
	Stripe   stripe.Config
	LiveKit  voice.Config
	Supabase media.Config
	Narrator narrator.OpenAIConfig
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.AuthDBPath, "auth-db-path", cfg.AuthDBPath, "Accounts SQLite database path")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Marketplace SQLite database path")
	fs.BoolVar(&cfg.Scheme.TrustForwardedProto, "trust-forwarded-proto", cfg.Scheme.TrustForwardedProto, "Trust X-Forwarded-Proto from the fronting proxy")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens the stores, builds the services and serves the API until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, func(ctx context.Context) error {
		sessions, err := session.NewManager(cfg.Session)
		if err != nil {
			return fmt.Errorf("init sessions: %w", err)
		}

		authStore, err := authsqlite.Open(ctx, cfg.AuthDBPath)
		if err != nil {
			return fmt.Errorf("open auth sqlite store: %w", err)
		}
		defer func() {
			if closeErr := authStore.Close(); closeErr != nil {
				log.Printf("close auth sqlite store: %v", closeErr)
			}
		}()
		marketStore, err := marketsqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open marketplace sqlite store: %w", err)
		}
		defer func() {
			if closeErr := marketStore.Close(); closeErr != nil {
				log.Printf("close marketplace sqlite store: %v", closeErr)
			}
		}()

		deps := web.Dependencies{
			Sessions: sessions,
			Users:    authStore,
			DiceSeed: random.NewSeed,
		}
		if cfg.Google.Enabled() {
			deps.SignIn = oauth.NewService(cfg.Google, oauth.NewGoogle(cfg.Google, nil), authStore)
		} else {
			log.Printf("google sign-in disabled: client credentials not set")
		}

		var marketOpts []marketapp.Option
		var checkout payments.CheckoutProvider
		if cfg.Stripe.Enabled() {
			client := stripe.NewClient(cfg.Stripe, nil)
			marketOpts = append(marketOpts, marketapp.WithConnectProvider(client))
			checkout = client
		} else {
			log.Printf("stripe disabled: paid checkout and seller payouts unavailable")
		}
		deps.Marketplace = marketapp.NewService(marketStore, marketOpts...)
		deps.Payments = payments.NewService(marketStore, checkout, payments.Config{WebhookSecret: cfg.Stripe.WebhookSecret})

		var roomOpts []roomapp.Option
		if cfg.LiveKit.Enabled() {
			issuer, err := voice.NewIssuer(cfg.LiveKit)
			if err != nil {
				return fmt.Errorf("init voice: %w", err)
			}
			roomOpts = append(roomOpts, roomapp.WithVoice(issuer))
		}
		processor := turn.NewProcessor(narrator.New(cfg.Narrator), turn.WithNarrationTimeout(timeouts.Narration))
		deps.Rooms = roomapp.NewService(marketStore, processor, roomOpts...)

		if cfg.Supabase.Enabled() {
			deps.Uploads = media.NewUploader(cfg.Supabase)
		}

		server, err := web.NewServer(web.Config{HTTPAddr: cfg.HTTPAddr, Scheme: cfg.Scheme}, deps)
		if err != nil {
			return fmt.Errorf("init web server: %w", err)
		}
		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve web: %w", err)
		}
		return nil
	})
}
