package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
)

const outboxColumns = `id, event_type, payload_json, dedupe_key, status, attempt_count, next_attempt_at, lease_owner, lease_expires_at, last_error, processed_at, created_at, updated_at`

// dueCondition matches pending events whose retry time passed and leased
// events whose lease expired.
const dueCondition = `(
	(status = ? AND next_attempt_at <= ?)
	OR
	(status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at <= ?)
)`

func dueArgs(now time.Time) []any {
	return []any{
		string(storage.OutboxStatusPending), toMillis(now),
		string(storage.OutboxStatusLeased), toMillis(now),
	}
}

// EnqueueOutboxEvent stores a pending event, ignoring duplicate dedupe keys.
func (s *Store) EnqueueOutboxEvent(ctx context.Context, event storage.OutboxEvent) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return enqueueOutboxEvent(ctx, s.sqlDB, event)
}

func normalizeOutboxEvent(event storage.OutboxEvent) (storage.OutboxEvent, error) {
	event.ID = strings.TrimSpace(event.ID)
	event.EventType = strings.TrimSpace(event.EventType)
	event.PayloadJSON = strings.TrimSpace(event.PayloadJSON)
	event.DedupeKey = strings.TrimSpace(event.DedupeKey)
	if event.ID == "" {
		return storage.OutboxEvent{}, fmt.Errorf("event id is required")
	}
	if event.EventType == "" {
		return storage.OutboxEvent{}, fmt.Errorf("event type is required")
	}
	if event.PayloadJSON == "" {
		event.PayloadJSON = "{}"
	}
	if event.Status == "" {
		event.Status = storage.OutboxStatusPending
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.NextAttemptAt.IsZero() {
		event.NextAttemptAt = event.CreatedAt
	}
	return event, nil
}

func enqueueOutboxEvent(ctx context.Context, q queryer, event storage.OutboxEvent) error {
	event, err := normalizeOutboxEvent(event)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
INSERT INTO outbox_events (`+outboxColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(dedupe_key) WHERE dedupe_key <> '' DO NOTHING
`,
		event.ID,
		event.EventType,
		event.PayloadJSON,
		event.DedupeKey,
		string(event.Status),
		event.AttemptCount,
		toMillis(event.NextAttemptAt),
		event.LeaseOwner,
		nullMillis(event.LeaseExpiresAt),
		event.LastError,
		nullMillis(event.ProcessedAt),
		toMillis(event.CreatedAt),
		toMillis(event.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// GetOutboxEvent returns one outbox event by id.
func (s *Store) GetOutboxEvent(ctx context.Context, eventID string) (storage.OutboxEvent, error) {
	if err := s.ready(ctx); err != nil {
		return storage.OutboxEvent{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return storage.OutboxEvent{}, fmt.Errorf("event id is required")
	}
	event, err := scanOutboxEvent(s.sqlDB.QueryRowContext(ctx, `SELECT `+outboxColumns+` FROM outbox_events WHERE id = ?`, eventID).Scan)
	if err != nil {
		return storage.OutboxEvent{}, notFound(err, "get outbox event")
	}
	return event, nil
}

// LeaseOutboxEvents leases up to limit due events to consumer until
// now+leaseTTL. Expired leases are taken over.
func (s *Store) LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]storage.OutboxEvent, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return nil, fmt.Errorf("consumer is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if leaseTTL <= 0 {
		return nil, fmt.Errorf("lease ttl must be greater than zero")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start lease transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	candidates, err := dueEventIDs(ctx, tx, now, limit)
	if err != nil {
		return nil, err
	}

	leased := make([]storage.OutboxEvent, 0, len(candidates))
	for _, eventID := range candidates {
		args := append([]any{
			string(storage.OutboxStatusLeased),
			consumer,
			toMillis(now.Add(leaseTTL)),
			toMillis(now),
			eventID,
		}, dueArgs(now)...)
		result, err := tx.ExecContext(ctx, `
UPDATE outbox_events
SET status = ?, lease_owner = ?, lease_expires_at = ?, updated_at = ?
WHERE id = ? AND `+dueCondition, args...)
		if err != nil {
			return nil, fmt.Errorf("lease outbox event %s: %w", eventID, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return nil, fmt.Errorf("lease rows affected for %s: %w", eventID, err)
		} else if n == 0 {
			continue
		}
		event, err := scanOutboxEvent(tx.QueryRowContext(ctx, `SELECT `+outboxColumns+` FROM outbox_events WHERE id = ?`, eventID).Scan)
		if err != nil {
			return nil, fmt.Errorf("scan leased outbox event %s: %w", eventID, err)
		}
		leased = append(leased, event)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lease transaction: %w", err)
	}
	return leased, nil
}

func dueEventIDs(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
SELECT id
FROM outbox_events
WHERE `+dueCondition+`
ORDER BY next_attempt_at ASC, created_at ASC, id ASC
LIMIT ?
`, append(dueArgs(now), limit)...)
	if err != nil {
		return nil, fmt.Errorf("select lease candidates: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var eventID string
		if err := rows.Scan(&eventID); err != nil {
			return nil, fmt.Errorf("scan lease candidate: %w", err)
		}
		ids = append(ids, eventID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lease candidates: %w", err)
	}
	return ids, nil
}

// MarkOutboxSucceeded completes an event leased by consumer.
func (s *Store) MarkOutboxSucceeded(ctx context.Context, eventID, consumer string, processedAt time.Time) error {
	if processedAt.IsZero() {
		processedAt = time.Now()
	}
	return s.releaseLease(ctx, eventID, consumer, "mark outbox succeeded", `
status = ?, last_error = '', processed_at = ?, updated_at = ?`,
		string(storage.OutboxStatusSucceeded), toMillis(processedAt), toMillis(processedAt),
	)
}

// MarkOutboxRetry returns an event to pending with an incremented attempt
// count, due again at nextAttemptAt.
func (s *Store) MarkOutboxRetry(ctx context.Context, eventID, consumer string, nextAttemptAt time.Time, lastError string) error {
	if nextAttemptAt.IsZero() {
		return fmt.Errorf("next attempt at is required")
	}
	return s.releaseLease(ctx, eventID, consumer, "mark outbox retry", `
status = ?, attempt_count = attempt_count + 1, next_attempt_at = ?, last_error = ?, processed_at = NULL, updated_at = ?`,
		string(storage.OutboxStatusPending), toMillis(nextAttemptAt), strings.TrimSpace(lastError), toMillis(time.Now()),
	)
}

// MarkOutboxDead stops retrying an event.
func (s *Store) MarkOutboxDead(ctx context.Context, eventID, consumer, lastError string, processedAt time.Time) error {
	if processedAt.IsZero() {
		processedAt = time.Now()
	}
	return s.releaseLease(ctx, eventID, consumer, "mark outbox dead", `
status = ?, attempt_count = attempt_count + 1, last_error = ?, processed_at = ?, updated_at = ?`,
		string(storage.OutboxStatusDead), strings.TrimSpace(lastError), toMillis(processedAt), toMillis(processedAt),
	)
}

// releaseLease applies set to an event still leased by consumer and clears
// the lease. It returns ErrNotFound when the lease was lost.
func (s *Store) releaseLease(ctx context.Context, eventID, consumer, op, set string, setArgs ...any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	consumer = strings.TrimSpace(consumer)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if consumer == "" {
		return fmt.Errorf("consumer is required")
	}
	args := append(setArgs, eventID, string(storage.OutboxStatusLeased), consumer)
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE outbox_events
SET lease_owner = '', lease_expires_at = NULL, `+set+`
WHERE id = ? AND status = ? AND lease_owner = ?
`, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(result, op)
}

func scanOutboxEvent(scan scanner) (storage.OutboxEvent, error) {
	var event storage.OutboxEvent
	var status string
	var nextAttemptAt, createdAt, updatedAt int64
	var leaseExpiresAt, processedAt sql.NullInt64
	if err := scan(
		&event.ID,
		&event.EventType,
		&event.PayloadJSON,
		&event.DedupeKey,
		&status,
		&event.AttemptCount,
		&nextAttemptAt,
		&event.LeaseOwner,
		&leaseExpiresAt,
		&event.LastError,
		&processedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.OutboxEvent{}, err
	}
	event.Status = storage.OutboxStatus(status)
	event.NextAttemptAt = fromMillis(nextAttemptAt)
	event.LeaseExpiresAt = fromNullMillis(leaseExpiresAt)
	event.ProcessedAt = fromNullMillis(processedAt)
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	return event, nil
}
