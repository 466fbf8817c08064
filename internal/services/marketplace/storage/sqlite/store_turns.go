package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
)

// AppendRoomTurn adds one turn to a campaign room log.
func (s *Store) AppendRoomTurn(ctx context.Context, turn domain.RoomTurn) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(turn.ID) == "" || strings.TrimSpace(turn.CampaignID) == "" {
		return fmt.Errorf("turn id and campaign id are required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO room_turns (id, campaign_id, user_id, actor_name, kind, description, check_json, narration, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		turn.ID,
		turn.CampaignID,
		turn.UserID,
		turn.ActorName,
		turn.Kind,
		turn.Description,
		turn.CheckJSON,
		turn.Narration,
		toMillis(turn.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("room turn %s already recorded", turn.ID)
		}
		return fmt.Errorf("append room turn: %w", err)
	}
	return nil
}

// ListRoomTurns returns the latest turns of a room in chronological order.
func (s *Store) ListRoomTurns(ctx context.Context, campaignID string, limit int) ([]domain.RoomTurn, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("campaign id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, campaign_id, user_id, actor_name, kind, description, check_json, narration, created_at
FROM room_turns
WHERE campaign_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("list room turns: %w", err)
	}
	defer rows.Close()

	turns := make([]domain.RoomTurn, 0, limit)
	for rows.Next() {
		var turn domain.RoomTurn
		var createdAt int64
		if err := rows.Scan(
			&turn.ID,
			&turn.CampaignID,
			&turn.UserID,
			&turn.ActorName,
			&turn.Kind,
			&turn.Description,
			&turn.CheckJSON,
			&turn.Narration,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan room turn: %w", err)
		}
		turn.CreatedAt = fromMillis(createdAt)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room turns: %w", err)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
