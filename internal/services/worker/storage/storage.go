// Package storage defines worker persistence contracts.
package storage

import (
	"context"
	"time"
)

// Attempt outcomes recorded by the worker loop.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetry     = "retry"
	OutcomeDead      = "dead"
)

// AttemptRecord is one processing outcome for an outbox event.
type AttemptRecord struct {
	ID           int64
	EventID      string
	EventType    string
	Consumer     string
	Outcome      string
	AttemptCount int32
	LastError    string
	CreatedAt    time.Time
}

// AttemptStore persists worker processing attempt records.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt AttemptRecord) error
	// ListAttempts returns the newest records first.
	ListAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
}
