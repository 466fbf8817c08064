// Package app runs play-room operations for campaign members.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/id"
	"github.com/louisbranch/roleandroll/internal/services/game/core/dice"
	"github.com/louisbranch/roleandroll/internal/services/game/turn"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/storage"
	"github.com/louisbranch/roleandroll/internal/services/room/voice"
)

const (
	// DefaultTurnLimit is how many log entries a room read returns.
	DefaultTurnLimit = 50
	// MaxTurnLimit caps a room log read.
	MaxTurnLimit = 200
	// narrationContext is how many prior turns are fed to the narrator.
	narrationContext = 8
)

// Store is the persistence used by rooms.
type Store interface {
	GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error)
	GetBooking(ctx context.Context, campaignID, userID string) (domain.Booking, error)
	AppendRoomTurn(ctx context.Context, turn domain.RoomTurn) error
	ListRoomTurns(ctx context.Context, campaignID string, limit int) ([]domain.RoomTurn, error)
}

// VoiceIssuer signs voice access tokens.
type VoiceIssuer interface {
	Issue(room string, p voice.Participant) (voice.Token, error)
}

// TurnProcessor resolves and narrates one turn.
type TurnProcessor interface {
	Process(ctx context.Context, request turn.Request) (turn.Result, error)
}

// Service runs room operations.
type Service struct {
	store Store
	voice VoiceIssuer
	turns TurnProcessor
	clock func() time.Time
	idGen func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithVoice enables voice tokens.
func WithVoice(issuer VoiceIssuer) Option {
	return func(s *Service) { s.voice = issuer }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides turn id generation.
func WithIDGenerator(idGen func() (string, error)) Option {
	return func(s *Service) {
		if idGen != nil {
			s.idGen = idGen
		}
	}
}

// NewService builds a room service. A nil processor uses template narration.
func NewService(store Store, turns TurnProcessor, opts ...Option) *Service {
	if turns == nil {
		turns = turn.NewProcessor(nil)
	}
	s := &Service{store: store, turns: turns, clock: time.Now, idGen: id.NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Member is the authenticated user entering a room.
type Member struct {
	UserID string
	Name   string
}

// Enter loads the room for campaignID if userID belongs in it.
func (s *Service) Enter(ctx context.Context, userID, campaignID string) (domain.Campaign, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Campaign{}, apperrors.New(apperrors.CodeUnauthenticated, "sign in to join the room")
	}
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Campaign{}, apperrors.New(apperrors.CodeNotFound, "room not found")
	}
	if err != nil {
		return domain.Campaign{}, err
	}
	if campaign.Status != domain.CampaignPublished {
		return domain.Campaign{}, apperrors.New(apperrors.CodeNotFound, "room not found")
	}
	if campaign.SellerID == userID {
		return campaign, nil
	}
	booking, err := s.store.GetBooking(ctx, campaign.ID, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return domain.Campaign{}, err
	}
	var held *domain.Booking
	if err == nil {
		held = &booking
	}
	if !domain.IsRoomMember(campaign, userID, held) {
		return domain.Campaign{}, apperrors.New(apperrors.CodeRoomAccessDenied, "book a seat to join this room")
	}
	return campaign, nil
}

// VoiceToken issues a LiveKit token for the campaign room.
func (s *Service) VoiceToken(ctx context.Context, member Member, campaignID string) (voice.Token, error) {
	if s.voice == nil {
		return voice.Token{}, apperrors.New(apperrors.CodeUnavailable, "voice is not configured")
	}
	campaign, err := s.Enter(ctx, member.UserID, campaignID)
	if err != nil {
		return voice.Token{}, err
	}
	token, err := s.voice.Issue(voice.RoomName(campaign.ID), voice.Participant{Identity: member.UserID, Name: member.Name})
	if err != nil {
		return voice.Token{}, fmt.Errorf("issue voice token: %w", err)
	}
	return token, nil
}

// TurnInput is a player's declared action.
type TurnInput struct {
	ActorName   string
	Kind        string
	Description string
	CheckType   string
	Scene       string
	Abilities   dice.Abilities
	Pool        int
	Difficulty  *int
}

// PlayTurn resolves a turn and appends it to the room log.
func (s *Service) PlayTurn(ctx context.Context, member Member, campaignID string, input TurnInput) (domain.RoomTurn, error) {
	campaign, err := s.Enter(ctx, member.UserID, campaignID)
	if err != nil {
		return domain.RoomTurn{}, err
	}
	recent, err := s.store.ListRoomTurns(ctx, campaign.ID, narrationContext)
	if err != nil {
		return domain.RoomTurn{}, err
	}
	actorName := strings.TrimSpace(input.ActorName)
	if actorName == "" {
		actorName = member.Name
	}
	result, err := s.turns.Process(ctx, turn.Request{
		State: turn.State{
			CampaignID:    campaign.ID,
			CampaignTitle: campaign.Title,
			Scene:         strings.TrimSpace(input.Scene),
			System:        campaign.DiceSystem,
			RecentLog:     logLines(recent),
		},
		Actor:       turn.Actor{Name: actorName, Abilities: input.Abilities},
		Kind:        turn.Kind(input.Kind),
		Description: input.Description,
		CheckType:   input.CheckType,
		Pool:        input.Pool,
		Difficulty:  input.Difficulty,
	})
	if err != nil {
		return domain.RoomTurn{}, err
	}

	turnID, err := s.idGen()
	if err != nil {
		return domain.RoomTurn{}, fmt.Errorf("generate turn id: %w", err)
	}
	entry := domain.RoomTurn{
		ID:          turnID,
		CampaignID:  campaign.ID,
		UserID:      member.UserID,
		ActorName:   actorName,
		Kind:        string(result.Kind),
		Description: result.Description,
		Narration:   result.Narration,
		CreatedAt:   s.clock().UTC(),
	}
	if result.Check != nil {
		data, err := json.Marshal(result.Check)
		if err != nil {
			return domain.RoomTurn{}, fmt.Errorf("encode check: %w", err)
		}
		entry.CheckJSON = string(data)
	}
	if err := s.store.AppendRoomTurn(ctx, entry); err != nil {
		return domain.RoomTurn{}, err
	}
	if result.Fallback {
		log.Printf("room turn used template narration campaign_id=%s turn_id=%s", campaign.ID, entry.ID)
	}
	return entry, nil
}

// Turns returns the most recent log entries, oldest first.
func (s *Service) Turns(ctx context.Context, userID, campaignID string, limit int) ([]domain.RoomTurn, error) {
	campaign, err := s.Enter(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTurnLimit
	}
	if limit > MaxTurnLimit {
		limit = MaxTurnLimit
	}
	return s.store.ListRoomTurns(ctx, campaign.ID, limit)
}

func logLines(turns []domain.RoomTurn) []string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		line := t.ActorName + ": " + t.Description
		if t.Narration != "" {
			line += " / " + t.Narration
		}
		lines = append(lines, line)
	}
	return lines
}
