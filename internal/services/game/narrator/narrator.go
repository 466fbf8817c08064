package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyNarration indicates a backend returned no usable text.
var ErrEmptyNarration = errors.New("narration is empty")

// Facts is the structured view of a turn that every narrator can rely on.
type Facts struct {
	Actor  string
	Action string
	// CheckSummary is empty when the action required no check.
	CheckSummary string
	// Success is nil when the check had no difficulty.
	Success *bool
}

// Request carries the assembled prompt along with the facts it was built from.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Facts        Facts
}

// Narrator produces narration for one turn.
type Narrator interface {
	Narrate(ctx context.Context, request Request) (string, error)
}

// TemplateNarrator renders narration from facts without calling a model.
type TemplateNarrator struct{}

// Narrate implements Narrator.
func (TemplateNarrator) Narrate(ctx context.Context, request Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	facts := request.Facts
	actor := strings.TrimSpace(facts.Actor)
	if actor == "" {
		actor = "The adventurer"
	}
	action := strings.TrimSpace(facts.Action)
	if action == "" {
		action = "waits"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s.", actor, strings.TrimSuffix(action, "."))
	if facts.CheckSummary != "" {
		fmt.Fprintf(&b, " (%s)", facts.CheckSummary)
	}
	if facts.Success != nil {
		if *facts.Success {
			b.WriteString(" Fortune favors the bold: it works.")
		} else {
			b.WriteString(" It does not go as planned.")
		}
	}
	return b.String(), nil
}

// New returns an OpenAI-backed narrator when an API key is configured and a
// TemplateNarrator otherwise.
func New(cfg OpenAIConfig) Narrator {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return TemplateNarrator{}
	}
	return NewOpenAINarrator(cfg)
}
