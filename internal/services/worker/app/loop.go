package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"

	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
	workerdomain "github.com/louisbranch/roleandroll/internal/services/worker/domain"
	workerstorage "github.com/louisbranch/roleandroll/internal/services/worker/storage"
)

const (
	defaultConsumer      = "worker"
	defaultPollInterval  = 2 * time.Second
	defaultLeaseTTL      = 30 * time.Second
	defaultMaxAttempts   = 8
	defaultRetryBackoff  = 5 * time.Second
	defaultRetryMaxDelay = 10 * time.Minute
	defaultBatchSize     = 10
	maxErrorLength       = 1024
)

// OutboxSource leases and acknowledges outbox events.
type OutboxSource interface {
	LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]storage.OutboxEvent, error)
	MarkOutboxSucceeded(ctx context.Context, eventID, consumer string, processedAt time.Time) error
	MarkOutboxRetry(ctx context.Context, eventID, consumer string, nextAttemptAt time.Time, lastError string) error
	MarkOutboxDead(ctx context.Context, eventID, consumer, lastError string, processedAt time.Time) error
}

// EventHandler processes one leased event.
type EventHandler interface {
	Handle(ctx context.Context, event storage.OutboxEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event storage.OutboxEvent) error

// Handle calls f.
func (f EventHandlerFunc) Handle(ctx context.Context, event storage.OutboxEvent) error {
	return f(ctx, event)
}

// fanoutEventHandlers runs handlers in order and stops at the first error.
// Handlers must be idempotent because a retry replays the whole chain.
func fanoutEventHandlers(handlers ...EventHandler) EventHandler {
	filtered := make([]EventHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return EventHandlerFunc(func(ctx context.Context, event storage.OutboxEvent) error {
		for _, h := range filtered {
			if err := h.Handle(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

// Attempt is one processing outcome reported to the recorder.
type Attempt struct {
	EventID      string
	EventType    string
	Outcome      string
	AttemptCount int32
	Error        string
	CreatedAt    time.Time
}

// AttemptRecorder stores processing outcomes.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// Config tunes the processing loop.
type Config struct {
	Consumer      string
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
	BatchSize     int
}

func (c Config) normalized() Config {
	c.Consumer = strings.TrimSpace(c.Consumer)
	if c.Consumer == "" {
		c.Consumer = defaultConsumer
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = defaultRetryMaxDelay
	}
	if c.RetryMaxDelay < c.RetryBackoff {
		c.RetryMaxDelay = c.RetryBackoff
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	return c
}

// retryDelay is the exponential delay before the given attempt is retried.
func (c Config) retryDelay(attempt int32) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.RetryBackoff,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.RetryMaxDelay,
	}
	b.Reset()
	delay := b.NextBackOff()
	for i := int32(1); i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay > c.RetryMaxDelay {
		delay = c.RetryMaxDelay
	}
	return delay
}

// Loop leases outbox events and dispatches them to handlers by type.
type Loop struct {
	source   OutboxSource
	recorder AttemptRecorder
	handlers map[string]EventHandler
	cfg      Config
	clock    func() time.Time
}

// New builds a processing loop.
func New(source OutboxSource, recorder AttemptRecorder, handlers map[string]EventHandler, cfg Config, clock func() time.Time) *Loop {
	if clock == nil {
		clock = time.Now
	}
	return &Loop{
		source:   source,
		recorder: recorder,
		handlers: handlers,
		cfg:      cfg.normalized(),
		clock:    clock,
	}
}

// Run polls until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil || l.source == nil {
		return fmt.Errorf("worker loop is not configured")
	}
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := l.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("worker poll failed consumer=%s: %v", l.cfg.Consumer, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce leases one batch and processes it, returning how many events
// were handled.
func (l *Loop) RunOnce(ctx context.Context) (int, error) {
	events, err := l.source.LeaseOutboxEvents(ctx, l.cfg.Consumer, l.cfg.BatchSize, l.clock().UTC(), l.cfg.LeaseTTL)
	if err != nil {
		return 0, fmt.Errorf("lease outbox events: %w", err)
	}
	for _, event := range events {
		if err := l.process(ctx, event); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			log.Printf("worker ack failed event_id=%s type=%s: %v", event.ID, event.EventType, err)
		}
	}
	return len(events), nil
}

func (l *Loop) process(ctx context.Context, event storage.OutboxEvent) error {
	attempt := event.AttemptCount + 1
	handler, ok := l.handlers[event.EventType]
	if !ok || handler == nil {
		log.Printf("worker has no handler event_id=%s type=%s", event.ID, event.EventType)
		return l.succeed(ctx, event, attempt)
	}

	handleErr := handler.Handle(ctx, event)
	if handleErr == nil {
		return l.succeed(ctx, event, attempt)
	}
	if ctx.Err() != nil && errors.Is(handleErr, ctx.Err()) {
		// Lease expiry hands the event to the next poll.
		return handleErr
	}

	message := truncateError(handleErr.Error())
	now := l.clock().UTC()
	if workerdomain.IsPermanent(handleErr) || int(attempt) >= l.cfg.MaxAttempts {
		log.Printf("worker dead-lettered event_id=%s type=%s attempt=%d: %s", event.ID, event.EventType, attempt, message)
		if err := l.source.MarkOutboxDead(ctx, event.ID, l.cfg.Consumer, message, now); err != nil {
			return err
		}
		l.record(ctx, event, workerstorage.OutcomeDead, attempt, message)
		return nil
	}

	next := now.Add(l.cfg.retryDelay(attempt))
	log.Printf("worker retry scheduled event_id=%s type=%s attempt=%d next=%s: %s", event.ID, event.EventType, attempt, next.Format(time.RFC3339), message)
	if err := l.source.MarkOutboxRetry(ctx, event.ID, l.cfg.Consumer, next, message); err != nil {
		return err
	}
	l.record(ctx, event, workerstorage.OutcomeRetry, attempt, message)
	return nil
}

func (l *Loop) succeed(ctx context.Context, event storage.OutboxEvent, attempt int32) error {
	if err := l.source.MarkOutboxSucceeded(ctx, event.ID, l.cfg.Consumer, l.clock().UTC()); err != nil {
		return err
	}
	l.record(ctx, event, workerstorage.OutcomeSucceeded, attempt, "")
	return nil
}

// record is best effort; the outbox row is the source of truth.
func (l *Loop) record(ctx context.Context, event storage.OutboxEvent, outcome string, attempt int32, message string) {
	if l.recorder == nil {
		return
	}
	err := l.recorder.RecordAttempt(ctx, Attempt{
		EventID:      event.ID,
		EventType:    event.EventType,
		Outcome:      outcome,
		AttemptCount: attempt,
		Error:        message,
		CreatedAt:    l.clock().UTC(),
	})
	if err != nil {
		log.Printf("worker attempt record failed event_id=%s: %v", event.ID, err)
	}
}

func truncateError(message string) string {
	message = strings.TrimSpace(message)
	if len(message) <= maxErrorLength {
		return message
	}
	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
