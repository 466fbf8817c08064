package turn

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/random"
	"github.com/louisbranch/roleandroll/internal/platform/timeouts"
	"github.com/louisbranch/roleandroll/internal/services/game/core/dice"
	"github.com/louisbranch/roleandroll/internal/services/game/narrator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/roleandroll/internal/services/game/turn"

// Kind is the player's declared action.
type Kind string

const (
	KindAttack Kind = "attack"
	KindSkill  Kind = "skill"
	KindCheck  Kind = "check"
	KindSay    Kind = "say"
	KindMove   Kind = "move"
)

// ParseKind normalizes an action kind label.
func ParseKind(value string) (Kind, bool) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(value))); kind {
	case KindAttack, KindSkill, KindCheck, KindSay, KindMove:
		return kind, true
	default:
		return "", false
	}
}

// RequiresCheck reports whether the action is resolved with dice.
func (k Kind) RequiresCheck() bool {
	return k == KindAttack || k == KindSkill || k == KindCheck
}

// State is the game state a turn is played against.
type State struct {
	CampaignID    string
	CampaignTitle string
	Scene         string
	System        dice.System
	RecentLog     []string
}

// Actor is the character taking the turn.
type Actor struct {
	Name      string
	Abilities dice.Abilities
}

// Request is one player turn.
type Request struct {
	State       State
	Actor       Actor
	Kind        Kind
	Description string
	CheckType   string
	Pool        int
	Difficulty  *int
}

// Result is the structured outcome of a turn.
type Result struct {
	Kind        Kind
	Description string
	Check       *dice.CheckResult
	Narration   string
	// Fallback is true when the configured narrator failed and template
	// narration was used instead.
	Fallback bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithSeedFunc overrides the dice seed source.
func WithSeedFunc(seed func() (int64, error)) Option {
	return func(p *Processor) {
		if seed != nil {
			p.seed = seed
		}
	}
}

// WithNarrationTimeout overrides how long a turn waits for narration.
func WithNarrationTimeout(timeout time.Duration) Option {
	return func(p *Processor) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// Processor runs GM turns.
type Processor struct {
	narrator narrator.Narrator
	fallback narrator.Narrator
	seed     func() (int64, error)
	timeout  time.Duration
	tracer   trace.Tracer
}

// NewProcessor builds a processor narrating with n. A nil narrator uses the
// template narrator.
func NewProcessor(n narrator.Narrator, opts ...Option) *Processor {
	if n == nil {
		n = narrator.TemplateNarrator{}
	}
	p := &Processor{
		narrator: n,
		fallback: narrator.TemplateNarrator{},
		seed:     random.NewSeed,
		timeout:  timeouts.Narration,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates, resolves, and narrates one turn.
func (p *Processor) Process(ctx context.Context, request Request) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "turn.Process", trace.WithAttributes(
		attribute.String("campaign.id", request.State.CampaignID),
		attribute.String("turn.kind", string(request.Kind)),
	))
	defer span.End()

	result, err := p.process(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.Bool("turn.narration_fallback", result.Fallback))
	return result, nil
}

func (p *Processor) process(ctx context.Context, request Request) (Result, error) {
	kind, ok := ParseKind(string(request.Kind))
	if !ok {
		return Result{}, apperrors.New(apperrors.CodeInvalidArgument, "action kind must be attack, skill, check, say, or move")
	}
	description := strings.TrimSpace(request.Description)
	if description == "" {
		return Result{}, apperrors.New(apperrors.CodeInvalidArgument, "action description is required")
	}
	if strings.TrimSpace(request.State.CampaignID) == "" {
		return Result{}, apperrors.New(apperrors.CodeInvalidArgument, "campaign id is required")
	}
	actorName := strings.TrimSpace(request.Actor.Name)
	if actorName == "" {
		actorName = "A player"
	}

	result := Result{Kind: kind, Description: description}
	facts := narrator.Facts{Actor: actorName, Action: description}

	if kind.RequiresCheck() {
		seed, err := p.seed()
		if err != nil {
			return Result{}, fmt.Errorf("seed dice: %w", err)
		}
		check, err := dice.Resolve(dice.CheckRequest{
			Action: dice.Action{
				Kind:        dice.ActionKind(kind),
				Description: description,
				CheckType:   request.CheckType,
			},
			Abilities:  request.Actor.Abilities,
			System:     request.State.System,
			Pool:       request.Pool,
			Difficulty: request.Difficulty,
			Seed:       seed,
		})
		if err != nil {
			return Result{}, dice.DomainError(err)
		}
		result.Check = &check
		facts.CheckSummary = check.Summary()
		if check.Difficulty != nil {
			meets := check.MeetsDifficulty
			facts.Success = &meets
		}
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("dice.system", string(check.System)),
			attribute.Int("dice.total", check.Total),
		)
	}

	narrationRequest := narrator.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   BuildPrompt(request.State, actorName, kind, description, facts.CheckSummary),
		Facts:        facts,
	}
	narrateCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	narration, err := p.narrator.Narrate(narrateCtx, narrationRequest)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Printf("turn narration failed campaign=%s err=%v", request.State.CampaignID, err)
		narration, err = p.fallback.Narrate(ctx, narrationRequest)
		if err != nil {
			return Result{}, fmt.Errorf("template narration: %w", err)
		}
		result.Fallback = true
	}
	result.Narration = narration
	return result, nil
}
