package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	marketdomain "github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	marketsqlite "github.com/louisbranch/roleandroll/internal/services/marketplace/storage/sqlite"
	"github.com/louisbranch/roleandroll/internal/services/payments/stripe"
	"github.com/louisbranch/roleandroll/internal/services/worker/broker"
	workerdomain "github.com/louisbranch/roleandroll/internal/services/worker/domain"
	workerstorage "github.com/louisbranch/roleandroll/internal/services/worker/storage"
	workersqlite "github.com/louisbranch/roleandroll/internal/services/worker/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port          int
	DBPath        string
	WorkerDBPath  string
	Consumer      string
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
	Stripe        stripe.Config
	AMQP          broker.Config
}

const (
	defaultWorkerPort = 8089
	defaultDB         = "data/roleandroll.db"
	defaultWorkerDB   = "data/worker.db"
)

// Run starts worker runtime dependencies and the background processing loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultWorkerPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDB
	}
	if strings.TrimSpace(cfg.WorkerDBPath) == "" {
		cfg.WorkerDBPath = defaultWorkerDB
	}

	marketStore, err := marketsqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open marketplace sqlite store: %w", err)
	}
	defer func() {
		if closeErr := marketStore.Close(); closeErr != nil {
			log.Printf("close marketplace sqlite store: %v", closeErr)
		}
	}()

	workerStore, err := workersqlite.Open(ctx, cfg.WorkerDBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer func() {
		if closeErr := workerStore.Close(); closeErr != nil {
			log.Printf("close worker sqlite store: %v", closeErr)
		}
	}()

	var payout EventHandler
	if cfg.Stripe.Enabled() {
		payout = workerdomain.NewPayoutHandler(marketStore, stripe.NewClient(cfg.Stripe, nil), nil)
	} else {
		log.Printf("stripe is not configured; payouts are disabled")
	}

	var relay EventHandler
	if cfg.AMQP.Enabled() {
		publisher, err := broker.NewRabbitMQPublisher(ctx, cfg.AMQP)
		if err != nil {
			return fmt.Errorf("start rabbitmq relay: %w", err)
		}
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				log.Printf("close rabbitmq publisher: %v", closeErr)
			}
		}()
		relay = workerdomain.NewRelayHandler(publisher)
	}

	loopConfig := Config{
		Consumer:      cfg.Consumer,
		PollInterval:  cfg.PollInterval,
		LeaseTTL:      cfg.LeaseTTL,
		MaxAttempts:   cfg.MaxAttempts,
		RetryBackoff:  cfg.RetryBackoff,
		RetryMaxDelay: cfg.RetryMaxDelay,
	}.normalized()

	workerLoop := New(
		marketStore,
		newAttemptStoreRecorder(workerStore, loopConfig.Consumer),
		buildHandlers(payout, relay),
		loopConfig,
		nil,
	)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on worker port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("worker.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("worker server listening at %v consumer=%s", listener.Addr(), loopConfig.Consumer)
	return workerLoop.Run(ctx)
}

// buildHandlers routes each marketplace event type to its handlers. Events
// with no handler are acknowledged without work.
func buildHandlers(payout, relay EventHandler) map[string]EventHandler {
	handlers := map[string]EventHandler{}
	add := func(eventType string, chain ...EventHandler) {
		var present []EventHandler
		for _, h := range chain {
			if h != nil {
				present = append(present, h)
			}
		}
		if len(present) > 0 {
			handlers[eventType] = fanoutEventHandlers(present...)
		}
	}
	add(marketdomain.EventPurchaseCompleted, payout, relay)
	add(marketdomain.EventListingGranted, relay)
	add(marketdomain.EventSellerDecided, relay)
	return handlers
}

type attemptStoreRecorder struct {
	store    workerstorage.AttemptStore
	consumer string
}

func newAttemptStoreRecorder(store workerstorage.AttemptStore, consumer string) *attemptStoreRecorder {
	normalizedConsumer := strings.TrimSpace(consumer)
	if normalizedConsumer == "" {
		normalizedConsumer = defaultConsumer
	}
	return &attemptStoreRecorder{store: store, consumer: normalizedConsumer}
}

func (r *attemptStoreRecorder) RecordAttempt(ctx context.Context, attempt Attempt) error {
	if r == nil || r.store == nil {
		return nil
	}
	consumer := strings.TrimSpace(r.consumer)
	if consumer == "" {
		consumer = defaultConsumer
	}
	return r.store.RecordAttempt(ctx, workerstorage.AttemptRecord{
		EventID:      attempt.EventID,
		EventType:    attempt.EventType,
		Consumer:     consumer,
		Outcome:      attempt.Outcome,
		AttemptCount: attempt.AttemptCount,
		LastError:    attempt.Error,
		CreatedAt:    attempt.CreatedAt,
	})
}
