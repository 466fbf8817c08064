package domain

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/louisbranch/roleandroll/internal/platform/random"
	"github.com/louisbranch/roleandroll/internal/services/game/core/dice"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AbilityCheckInput is the MCP tool input for an ability check.
type AbilityCheckInput struct {
	ActionKind  string         `json:"action_kind" jsonschema:"attack, skill, or check"`
	Description string         `json:"description,omitempty" jsonschema:"what the character attempts; spell words select intelligence"`
	CheckType   string         `json:"check_type,omitempty" jsonschema:"optional basis: physical, magic, or an ability name"`
	Abilities   map[string]int `json:"abilities,omitempty" jsonschema:"ability scores by name; missing scores count as 10"`
	System      string         `json:"system,omitempty" jsonschema:"d20 (default) or role_and_roll"`
	Pool        int            `json:"pool,omitempty" jsonschema:"Role & Roll rows to draw (default 1)"`
	Difficulty  *int           `json:"difficulty,omitempty" jsonschema:"optional target total"`
	Seed        *int64         `json:"seed,omitempty" jsonschema:"optional seed for a reproducible roll"`
}

// RoleAndRollRow is one chain of Role & Roll faces.
type RoleAndRollRow struct {
	Faces        []string `json:"faces" jsonschema:"faces drawn on this row in order"`
	Score        int      `json:"score" jsonschema:"star and R faces on this row"`
	RunningTotal int      `json:"running_total" jsonschema:"cumulative score through this row"`
}

// AbilityCheckResult is the MCP tool output for an ability check.
type AbilityCheckResult struct {
	System          string           `json:"system" jsonschema:"dice system used"`
	Basis           string           `json:"basis" jsonschema:"physical, magic, or ability"`
	Ability         string           `json:"ability" jsonschema:"ability that produced the modifier"`
	Score           int              `json:"score" jsonschema:"ability score used"`
	Modifier        int              `json:"modifier" jsonschema:"floor((score - 10) / 2)"`
	Roll            int              `json:"roll,omitempty" jsonschema:"d20 result"`
	Rows            []RoleAndRollRow `json:"rows,omitempty" jsonschema:"Role & Roll rows"`
	Total           int              `json:"total" jsonschema:"roll or Role & Roll score plus modifier"`
	Difficulty      *int             `json:"difficulty,omitempty" jsonschema:"difficulty target, if provided"`
	MeetsDifficulty bool             `json:"meets_difficulty" jsonschema:"whether total reached the difficulty"`
	Margin          int              `json:"margin" jsonschema:"total minus difficulty"`
	Seed            int64            `json:"seed" jsonschema:"seed used for the roll"`
	Summary         string           `json:"summary" jsonschema:"one-line description of the check"`
}

// RoleAndRollInput is the MCP tool input for a bare Role & Roll draw.
type RoleAndRollInput struct {
	Pool int    `json:"pool,omitempty" jsonschema:"rows to draw (default 1)"`
	Seed *int64 `json:"seed,omitempty" jsonschema:"optional seed for a reproducible draw"`
}

// RoleAndRollResult is the MCP tool output for a Role & Roll draw.
type RoleAndRollResult struct {
	Rows  []RoleAndRollRow `json:"rows" jsonschema:"rows drawn"`
	Score int              `json:"score" jsonschema:"total star and R faces"`
	Seed  int64            `json:"seed" jsonschema:"seed used for the draw"`
}

// AbilityCheckTool defines the MCP tool schema for ability checks.
func AbilityCheckTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ability_check",
		Description: "Resolves an ability check with a d20 or Role & Roll dice",
	}
}

// RoleAndRollTool defines the MCP tool schema for Role & Roll draws.
func RoleAndRollTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "role_and_roll",
		Description: "Draws chained Role & Roll dice; every R face adds another die to its row",
	}
}

// SeedFunc supplies a seed when the caller does not pass one.
type SeedFunc func() (int64, error)

func resolveSeed(requested *int64, seed SeedFunc) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	if seed == nil {
		seed = random.NewSeed
	}
	value, err := seed()
	if err != nil {
		return 0, fmt.Errorf("generate seed: %w", err)
	}
	return value, nil
}

// CheckAbility resolves an ability check described by input.
func CheckAbility(input AbilityCheckInput, seed SeedFunc) (AbilityCheckResult, error) {
	system, ok := dice.ParseSystem(input.System)
	if !ok {
		return AbilityCheckResult{}, dice.DomainError(dice.ErrInvalidSystem)
	}
	seedValue, err := resolveSeed(input.Seed, seed)
	if err != nil {
		return AbilityCheckResult{}, err
	}
	check, err := dice.Resolve(dice.CheckRequest{
		Action: dice.Action{
			Kind:        dice.ActionKind(input.ActionKind),
			Description: input.Description,
			CheckType:   input.CheckType,
		},
		Abilities:  dice.Abilities(input.Abilities),
		System:     system,
		Pool:       input.Pool,
		Difficulty: input.Difficulty,
		Seed:       seedValue,
	})
	if err != nil {
		return AbilityCheckResult{}, dice.DomainError(err)
	}

	result := AbilityCheckResult{
		System:          string(check.System),
		Basis:           string(check.Basis),
		Ability:         string(check.Ability),
		Score:           check.Score,
		Modifier:        check.Modifier,
		Roll:            check.Roll,
		Total:           check.Total,
		Difficulty:      check.Difficulty,
		MeetsDifficulty: check.MeetsDifficulty,
		Margin:          check.Margin,
		Seed:            check.Seed,
		Summary:         check.Summary(),
	}
	if check.RoleAndRoll != nil {
		result.Rows = rowsFrom(*check.RoleAndRoll)
	}
	return result, nil
}

// AbilityCheckHandler resolves an ability check.
func AbilityCheckHandler(seed SeedFunc) mcp.ToolHandlerFor[AbilityCheckInput, AbilityCheckResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AbilityCheckInput) (*mcp.CallToolResult, AbilityCheckResult, error) {
		result, err := CheckAbility(input, seed)
		if err != nil {
			return nil, AbilityCheckResult{}, err
		}
		return nil, result, nil
	}
}

// RoleAndRollHandler draws Role & Roll rows without a modifier.
func RoleAndRollHandler(seed SeedFunc) mcp.ToolHandlerFor[RoleAndRollInput, RoleAndRollResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RoleAndRollInput) (*mcp.CallToolResult, RoleAndRollResult, error) {
		pool := input.Pool
		if pool == 0 {
			pool = 1
		}
		seedValue, err := resolveSeed(input.Seed, seed)
		if err != nil {
			return nil, RoleAndRollResult{}, err
		}
		draw, err := dice.RollRoleAndRoll(rand.New(rand.NewSource(seedValue)), pool)
		if err != nil {
			return nil, RoleAndRollResult{}, dice.DomainError(err)
		}
		return nil, RoleAndRollResult{Rows: rowsFrom(draw), Score: draw.Score, Seed: seedValue}, nil
	}
}

func rowsFrom(draw dice.RoleAndRollResult) []RoleAndRollRow {
	rows := make([]RoleAndRollRow, 0, len(draw.Rows))
	for _, row := range draw.Rows {
		faces := make([]string, 0, len(row.Faces))
		for _, face := range row.Faces {
			faces = append(faces, string(face))
		}
		rows = append(rows, RoleAndRollRow{Faces: faces, Score: row.Score, RunningTotal: row.RunningTotal})
	}
	return rows
}
