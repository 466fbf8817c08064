package domain

import (
	"context"
	"fmt"

	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
)

// Publisher delivers an event body to a message broker.
type Publisher interface {
	Publish(ctx context.Context, id, topic string, payload []byte) error
}

// RelayHandler forwards outbox events to a broker unchanged.
type RelayHandler struct {
	publisher Publisher
}

// NewRelayHandler creates a relay handler.
func NewRelayHandler(publisher Publisher) *RelayHandler {
	return &RelayHandler{publisher: publisher}
}

// Handle publishes event using its id as the message id.
func (h *RelayHandler) Handle(ctx context.Context, event storage.OutboxEvent) error {
	if h == nil || h.publisher == nil {
		return Permanent(fmt.Errorf("relay publisher is not configured"))
	}
	return h.publisher.Publish(ctx, event.ID, event.EventType, []byte(event.PayloadJSON))
}
