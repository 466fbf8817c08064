package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	marketdomain "github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
	marketsqlite "github.com/louisbranch/roleandroll/internal/services/marketplace/storage/sqlite"
	workerdomain "github.com/louisbranch/roleandroll/internal/services/worker/domain"
	workerstorage "github.com/louisbranch/roleandroll/internal/services/worker/storage"
)

var loopNow = time.Date(2026, 9, 20, 12, 0, 0, 0, time.UTC)

type memoryRecorder struct {
	attempts []Attempt
}

func (r *memoryRecorder) RecordAttempt(_ context.Context, attempt Attempt) error {
	r.attempts = append(r.attempts, attempt)
	return nil
}

func openOutbox(t *testing.T) *marketsqlite.Store {
	t.Helper()
	store, err := marketsqlite.Open(context.Background(), filepath.Join(t.TempDir(), "marketplace.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func enqueue(t *testing.T, store *marketsqlite.Store, id, eventType string) {
	t.Helper()
	event, err := storage.NewOutboxEvent(eventType, "", map[string]string{"id": id}, loopNow, func() (string, error) { return id, nil })
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if err := store.EnqueueOutboxEvent(context.Background(), event); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestRunOnceAcknowledgesOutcomes(t *testing.T) {
	store := openOutbox(t)
	enqueue(t, store, "evt-ok", marketdomain.EventPurchaseCompleted)
	enqueue(t, store, "evt-retry", marketdomain.EventListingGranted)
	enqueue(t, store, "evt-dead", marketdomain.EventSellerDecided)
	enqueue(t, store, "evt-unrouted", "marketplace.unknown")

	recorder := &memoryRecorder{}
	handlers := map[string]EventHandler{
		marketdomain.EventPurchaseCompleted: EventHandlerFunc(func(context.Context, storage.OutboxEvent) error { return nil }),
		marketdomain.EventListingGranted: EventHandlerFunc(func(context.Context, storage.OutboxEvent) error {
			return errors.New("broker unavailable")
		}),
		marketdomain.EventSellerDecided: EventHandlerFunc(func(context.Context, storage.OutboxEvent) error {
			return workerdomain.Permanent(errors.New("bad payload"))
		}),
	}
	loop := New(store, recorder, handlers, Config{Consumer: "worker-a", RetryBackoff: time.Minute}, func() time.Time { return loopNow })

	n, err := loop.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if n != 4 {
		t.Fatalf("processed = %d, want 4", n)
	}

	want := map[string]storage.OutboxStatus{
		"evt-ok":       storage.OutboxStatusSucceeded,
		"evt-retry":    storage.OutboxStatusPending,
		"evt-dead":     storage.OutboxStatusDead,
		"evt-unrouted": storage.OutboxStatusSucceeded,
	}
	for id, status := range want {
		event, err := store.GetOutboxEvent(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if event.Status != status {
			t.Fatalf("%s status = %s, want %s", id, event.Status, status)
		}
	}
	retry, _ := store.GetOutboxEvent(context.Background(), "evt-retry")
	if !retry.NextAttemptAt.Equal(loopNow.Add(time.Minute)) {
		t.Fatalf("next attempt = %v, want %v", retry.NextAttemptAt, loopNow.Add(time.Minute))
	}
	if retry.LastError != "broker unavailable" {
		t.Fatalf("last error = %q", retry.LastError)
	}

	outcomes := map[string]string{}
	for _, a := range recorder.attempts {
		outcomes[a.EventID] = a.Outcome
	}
	if outcomes["evt-ok"] != workerstorage.OutcomeSucceeded || outcomes["evt-retry"] != workerstorage.OutcomeRetry || outcomes["evt-dead"] != workerstorage.OutcomeDead {
		t.Fatalf("recorded outcomes = %v", outcomes)
	}

	// Nothing is due until the retry delay passes.
	if n, err := loop.RunOnce(context.Background()); err != nil || n != 0 {
		t.Fatalf("second run = %d, %v; want 0", n, err)
	}
}

func TestRunOnceDeadLettersAfterMaxAttempts(t *testing.T) {
	store := openOutbox(t)
	enqueue(t, store, "evt-1", marketdomain.EventPurchaseCompleted)

	now := loopNow
	calls := 0
	handlers := map[string]EventHandler{
		marketdomain.EventPurchaseCompleted: EventHandlerFunc(func(context.Context, storage.OutboxEvent) error {
			calls++
			return fmt.Errorf("transient %d", calls)
		}),
	}
	loop := New(store, nil, handlers, Config{MaxAttempts: 3, RetryBackoff: time.Second, RetryMaxDelay: time.Minute}, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if _, err := loop.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		now = now.Add(time.Hour)
	}
	event, err := store.GetOutboxEvent(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event.Status != storage.OutboxStatusDead || event.AttemptCount != 3 || calls != 3 {
		t.Fatalf("event = %+v calls = %d", event, calls)
	}
}

func TestConfigRetryDelayDoublesAndCaps(t *testing.T) {
	cfg := Config{RetryBackoff: time.Second, RetryMaxDelay: 5 * time.Second}.normalized()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := cfg.retryDelay(int32(i + 1)); got != w {
			t.Fatalf("attempt %d delay = %v, want %v", i+1, got, w)
		}
	}
}

func TestConfigNormalizedDefaults(t *testing.T) {
	cfg := Config{}.normalized()
	if cfg.Consumer != defaultConsumer || cfg.MaxAttempts != defaultMaxAttempts || cfg.BatchSize != defaultBatchSize {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PollInterval <= 0 || cfg.LeaseTTL <= 0 || cfg.RetryBackoff <= 0 || cfg.RetryMaxDelay < cfg.RetryBackoff {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := openOutbox(t)
	ctx, cancel := context.WithCancel(context.Background())
	loop := New(store, nil, nil, Config{PollInterval: time.Millisecond}, nil)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestTruncateErrorKeepsValidUTF8(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantLen int
	}{
		{name: "short", message: "  boom  ", wantLen: 4},
		{name: "ascii", message: strings.Repeat("x", maxErrorLength+10), wantLen: maxErrorLength},
		{name: "rune straddles limit", message: strings.Repeat("x", maxErrorLength-1) + "é tail", wantLen: maxErrorLength - 1},
		{name: "wide runes", message: strings.Repeat("界", maxErrorLength), wantLen: maxErrorLength - maxErrorLength%3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateError(tt.message)
			if !utf8.ValidString(got) {
				t.Fatalf("truncated message is not valid UTF-8: %q", got[len(got)-4:])
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}
