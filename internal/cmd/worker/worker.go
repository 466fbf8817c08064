// Package worker parses worker command flags and launches the worker runtime.
package worker

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/roleandroll/internal/platform/cmd"
	"github.com/louisbranch/roleandroll/internal/services/payments/stripe"
	workerserver "github.com/louisbranch/roleandroll/internal/services/worker/app"
	"github.com/louisbranch/roleandroll/internal/services/worker/broker"
)

// Config holds worker command configuration.
type Config struct {
	Port          int           `env:"ROLEANDROLL_WORKER_PORT" envDefault:"8089"`
	DBPath        string        `env:"ROLEANDROLL_DB_PATH" envDefault:"data/roleandroll.db"`
	WorkerDBPath  string        `env:"ROLEANDROLL_WORKER_DB_PATH" envDefault:"data/worker.db"`
	Consumer      string        `env:"ROLEANDROLL_WORKER_CONSUMER" envDefault:"worker-payouts"`
	PollInterval  time.Duration `env:"ROLEANDROLL_WORKER_POLL_INTERVAL" envDefault:"2s"`
	LeaseTTL      time.Duration `env:"ROLEANDROLL_WORKER_LEASE_TTL" envDefault:"30s"`
	MaxAttempts   int           `env:"ROLEANDROLL_WORKER_MAX_ATTEMPTS" envDefault:"8"`
	RetryBackoff  time.Duration `env:"ROLEANDROLL_WORKER_RETRY_BACKOFF" envDefault:"5s"`
	RetryMaxDelay time.Duration `env:"ROLEANDROLL_WORKER_RETRY_MAX_DELAY" envDefault:"5m"`

	Stripe stripe.Config
	AMQP   broker.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The marketplace SQLite database path")
	fs.StringVar(&cfg.WorkerDBPath, "worker-db-path", cfg.WorkerDBPath, "The worker attempt SQLite database path")
	fs.StringVar(&cfg.Consumer, "consumer", cfg.Consumer, "Outbox consumer name")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Outbox poll interval")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Outbox lease duration")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Maximum processing attempts before dead-letter")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Base retry backoff delay")
	fs.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "Maximum retry delay")
	fs.StringVar(&cfg.AMQP.URL, "amqp-url", cfg.AMQP.URL, "RabbitMQ URL for the event relay")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, func(ctx context.Context) error {
		return workerserver.Run(ctx, workerserver.RuntimeConfig{
			Port:          cfg.Port,
			DBPath:        cfg.DBPath,
			WorkerDBPath:  cfg.WorkerDBPath,
			Consumer:      cfg.Consumer,
			PollInterval:  cfg.PollInterval,
			LeaseTTL:      cfg.LeaseTTL,
			MaxAttempts:   cfg.MaxAttempts,
			RetryBackoff:  cfg.RetryBackoff,
			RetryMaxDelay: cfg.RetryMaxDelay,
			Stripe:        cfg.Stripe,
			AMQP:          cfg.AMQP,
		})
	})
}
