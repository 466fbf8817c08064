package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	marketdomain "github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
)

func decodePurchaseCompletedPayload(event storage.OutboxEvent) (marketdomain.PurchaseCompletedPayload, error) {
	var payload marketdomain.PurchaseCompletedPayload
	if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err != nil {
		return marketdomain.PurchaseCompletedPayload{}, fmt.Errorf("decode purchase completed payload: %w", err)
	}
	payload.TransactionID = strings.TrimSpace(payload.TransactionID)
	if payload.TransactionID == "" {
		return marketdomain.PurchaseCompletedPayload{}, fmt.Errorf("purchase completed payload transaction_id is required")
	}
	return payload, nil
}
