package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/roleandroll/internal/platform/id"
)

// NewOutboxEvent builds a pending event with a JSON payload, due at now.
func NewOutboxEvent(eventType, dedupeKey string, payload any, now time.Time, idGenerator func() (string, error)) (OutboxEvent, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return OutboxEvent{}, fmt.Errorf("event type is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	eventID, err := idGenerator()
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("generate event id: %w", err)
	}
	now = now.UTC()
	return OutboxEvent{
		ID:            eventID,
		EventType:     eventType,
		PayloadJSON:   string(body),
		DedupeKey:     strings.TrimSpace(dedupeKey),
		Status:        OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
