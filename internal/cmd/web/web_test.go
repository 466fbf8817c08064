package web

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, "localhost:8080")
	}
	if cfg.DBPath != "data/roleandroll.db" || cfg.AuthDBPath != "data/auth.db" {
		t.Fatalf("db paths = %q, %q", cfg.DBPath, cfg.AuthDBPath)
	}
	if cfg.Session.TTL != 168*time.Hour {
		t.Fatalf("session ttl = %v", cfg.Session.TTL)
	}
	if cfg.LiveKit.TTL != 6*time.Hour {
		t.Fatalf("livekit ttl = %v", cfg.LiveKit.TTL)
	}
	if cfg.Supabase.Bucket != "images" {
		t.Fatalf("bucket = %q", cfg.Supabase.Bucket)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("ROLEANDROLL_WEB_HTTP_ADDR", "0.0.0.0:9000")
	t.Setenv("ROLEANDROLL_STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("ROLEANDROLL_ADMIN_EMAILS", "root@example.com, ops@example.com")

	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db-path", "/tmp/rr.db", "-trust-forwarded-proto"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:9000" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "/tmp/rr.db" || !cfg.Scheme.TrustForwardedProto {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !cfg.Stripe.Enabled() {
		t.Fatal("expected stripe to be enabled")
	}
	if len(cfg.Google.AdminEmails) != 2 {
		t.Fatalf("admin emails = %v", cfg.Google.AdminEmails)
	}
}
