// Package mcp parses MCP command flags and serves the dice tools on stdio.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/roleandroll/internal/platform/cmd"
	"github.com/louisbranch/roleandroll/internal/services/mcp/domain"
	"github.com/louisbranch/roleandroll/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	// Seed pins every roll to one seed when non-zero. Zero draws from crypto/rand.
	Seed int64 `env:"ROLEANDROLL_MCP_SEED"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Fixed dice seed for reproducible sessions")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// seedFunc returns the seed source for cfg, nil meaning crypto/rand.
func (c Config) seedFunc() domain.SeedFunc {
	if c.Seed == 0 {
		return nil
	}
	seed := c.Seed
	return func() (int64, error) { return seed, nil }
}

// Run starts the MCP server on stdio.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return service.NewServer(cfg.seedFunc()).Serve(ctx)
	})
}
