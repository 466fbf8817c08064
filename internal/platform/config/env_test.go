package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"ROLEANDROLL_TEST_PORT" envDefault:"123"`
}

type prefixedTestConfig struct {
	DBPath string `env:"TEST_DB_PATH" envDefault:"data/test.db"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("ROLEANDROLL_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvPrefixedReadsPrefixedVariable(t *testing.T) {
	t.Setenv("ROLEANDROLL_TEST_DB_PATH", "/tmp/market.db")

	var cfg prefixedTestConfig
	if err := ParseEnvPrefixed(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "/tmp/market.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "/tmp/market.db")
	}
}
