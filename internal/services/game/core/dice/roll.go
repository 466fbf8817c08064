package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// System selects how a check is rolled.
type System string

const (
	// SystemD20 rolls 1d20 + modifier.
	SystemD20 System = "d20"
	// SystemRoleAndRoll rolls chained Role & Roll dice + modifier.
	SystemRoleAndRoll System = "role_and_roll"
)

// ParseSystem normalizes a dice system label; empty selects SystemD20.
func ParseSystem(value string) (System, bool) {
	switch System(strings.ToLower(strings.TrimSpace(value))) {
	case "", SystemD20:
		return SystemD20, true
	case SystemRoleAndRoll, "roleandroll", "role&roll":
		return SystemRoleAndRoll, true
	default:
		return "", false
	}
}

// Face is one Role & Roll die face.
type Face string

const (
	FaceBlank  Face = "blank"
	FaceStar   Face = "star"
	FaceReroll Face = "R"
)

// Score returns the face's contribution to the Role & Roll score.
func (f Face) Score() int {
	if f == FaceStar || f == FaceReroll {
		return 1
	}
	return 0
}

// rollFace maps a d4 draw to a face: two blanks, one star, one R.
func rollFace(src Source) Face {
	switch src.Intn(4) {
	case 2:
		return FaceStar
	case 3:
		return FaceReroll
	default:
		return FaceBlank
	}
}

const (
	// D20Sides is the die size of the standard check.
	D20Sides = 20
	// MaxPool caps how many Role & Roll rows a single check may start.
	MaxPool = 10
	// MaxChain caps consecutive R faces on one row.
	MaxChain = 64
)

var (
	// ErrInvalidSystem indicates an unknown dice system.
	ErrInvalidSystem = errors.New("dice system must be d20 or role_and_roll")
	// ErrInvalidPool indicates a Role & Roll pool outside 1..MaxPool.
	ErrInvalidPool = fmt.Errorf("role and roll pool must be between 1 and %d", MaxPool)
	// ErrInvalidDifficulty indicates a negative difficulty.
	ErrInvalidDifficulty = errors.New("difficulty must be non-negative")
	// ErrRerollLimit indicates a row drew MaxChain consecutive R faces.
	ErrRerollLimit = fmt.Errorf("role and roll chain exceeded %d rerolls", MaxChain)
)

// Source draws uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// RollD20 draws one uniform integer in [1, 20].
func RollD20(src Source) int {
	return src.Intn(D20Sides) + 1
}

// Row is one chain of Role & Roll draws. Every face after the first was
// triggered by an R face before it.
type Row struct {
	Faces []Face
	Score int
	// RunningTotal is the cumulative score through this row.
	RunningTotal int
}

// RoleAndRollResult is the full display record of a Role & Roll draw.
type RoleAndRollResult struct {
	Rows  []Row
	Score int
}

// RollRoleAndRoll draws pool rows of chained Role & Roll dice.
//
// Each row starts with one draw. An R face obliges exactly one more draw
// appended to the same row; the row ends on the first draw that is not R.
func RollRoleAndRoll(src Source, pool int) (RoleAndRollResult, error) {
	if pool < 1 || pool > MaxPool {
		return RoleAndRollResult{}, ErrInvalidPool
	}
	result := RoleAndRollResult{Rows: make([]Row, 0, pool)}
	for i := 0; i < pool; i++ {
		row := Row{}
		for {
			face := rollFace(src)
			row.Faces = append(row.Faces, face)
			row.Score += face.Score()
			if face != FaceReroll {
				break
			}
			if len(row.Faces) >= MaxChain {
				return RoleAndRollResult{}, ErrRerollLimit
			}
		}
		result.Score += row.Score
		row.RunningTotal = result.Score
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// CheckRequest describes one ability check.
type CheckRequest struct {
	Action     Action
	Abilities  Abilities
	System     System
	Pool       int
	Difficulty *int
	Seed       int64
}

// CheckResult is the structured output of a check, suitable for narration.
type CheckResult struct {
	System   System
	Basis    Basis
	Ability  Ability
	Score    int
	Modifier int
	// Roll is the raw d20 for SystemD20 and zero otherwise.
	Roll int
	// RoleAndRoll is set for SystemRoleAndRoll.
	RoleAndRoll     *RoleAndRollResult
	Total           int
	Difficulty      *int
	MeetsDifficulty bool
	Margin          int
	Seed            int64
}

// Resolve performs a check using math/rand seeded from request.Seed.
func Resolve(request CheckRequest) (CheckResult, error) {
	result, err := ResolveWithSource(request, rand.New(rand.NewSource(request.Seed)))
	if err != nil {
		return CheckResult{}, err
	}
	result.Seed = request.Seed
	return result, nil
}

// ResolveWithSource performs a check drawing from src.
func ResolveWithSource(request CheckRequest, src Source) (CheckResult, error) {
	if src == nil {
		return CheckResult{}, errors.New("random source is required")
	}
	system, ok := ParseSystem(string(request.System))
	if !ok {
		return CheckResult{}, ErrInvalidSystem
	}
	if request.Difficulty != nil && *request.Difficulty < 0 {
		return CheckResult{}, ErrInvalidDifficulty
	}

	modifier, err := ResolveModifier(request.Action, request.Abilities)
	if err != nil {
		return CheckResult{}, err
	}

	result := CheckResult{
		System:     system,
		Basis:      modifier.Basis,
		Ability:    modifier.Ability,
		Score:      modifier.Score,
		Modifier:   modifier.Modifier,
		Difficulty: request.Difficulty,
	}

	switch system {
	case SystemRoleAndRoll:
		pool := request.Pool
		if pool == 0 {
			pool = 1
		}
		rr, err := RollRoleAndRoll(src, pool)
		if err != nil {
			return CheckResult{}, err
		}
		result.RoleAndRoll = &rr
		result.Total = rr.Score + modifier.Modifier
	default:
		result.Roll = RollD20(src)
		result.Total = result.Roll + modifier.Modifier
	}

	if request.Difficulty != nil {
		result.Margin = result.Total - *request.Difficulty
		result.MeetsDifficulty = result.Margin >= 0
	}
	return result, nil
}

// Summary renders the check as one line for logs and narration prompts.
func (r CheckResult) Summary() string {
	var b strings.Builder
	switch r.System {
	case SystemRoleAndRoll:
		score := 0
		rows := 0
		if r.RoleAndRoll != nil {
			score = r.RoleAndRoll.Score
			rows = len(r.RoleAndRoll.Rows)
		}
		fmt.Fprintf(&b, "Role & Roll %d row(s) scored %d", rows, score)
	default:
		fmt.Fprintf(&b, "d20 rolled %d", r.Roll)
	}
	fmt.Fprintf(&b, " %+d (%s) = %d", r.Modifier, r.Ability, r.Total)
	if r.Difficulty != nil {
		outcome := "failure"
		if r.MeetsDifficulty {
			outcome = "success"
		}
		fmt.Fprintf(&b, " vs difficulty %d: %s by %d", *r.Difficulty, outcome, abs(r.Margin))
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
