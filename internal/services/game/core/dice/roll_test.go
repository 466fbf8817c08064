package dice

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

// scriptedSource replays fixed draws; each value must be below n.
type scriptedSource struct {
	t      *testing.T
	values []int
	next   int
}

func (s *scriptedSource) Intn(n int) int {
	s.t.Helper()
	if s.next >= len(s.values) {
		s.t.Fatalf("scripted source exhausted after %d draws", s.next)
	}
	value := s.values[s.next]
	s.next++
	if value < 0 || value >= n {
		s.t.Fatalf("scripted value %d out of range [0,%d)", value, n)
	}
	return value
}

type constantSource int

func (c constantSource) Intn(int) int { return int(c) }

func intPtr(v int) *int { return &v }

func TestResolveStandardRollAddsModifier(t *testing.T) {
	src := &scriptedSource{t: t, values: []int{13}}
	result, err := ResolveWithSource(CheckRequest{
		Action:    Action{Kind: ActionAttack},
		Abilities: Abilities{"strength": 16},
	}, src)
	if err != nil {
		t.Fatalf("ResolveWithSource returned error: %v", err)
	}
	if result.System != SystemD20 {
		t.Fatalf("system = %q, want %q", result.System, SystemD20)
	}
	if result.Roll != 14 {
		t.Fatalf("roll = %d, want 14", result.Roll)
	}
	if result.Modifier != 3 {
		t.Fatalf("modifier = %d, want 3", result.Modifier)
	}
	if result.Total != 17 {
		t.Fatalf("total = %d, want 17", result.Total)
	}
	if result.RoleAndRoll != nil {
		t.Fatal("expected no role and roll rows for d20 check")
	}
}

func TestResolveStandardRollBounds(t *testing.T) {
	for seed := int64(0); seed < 500; seed++ {
		result, err := Resolve(CheckRequest{
			Action:    Action{Kind: ActionSkill},
			Abilities: Abilities{"dexterity": 8},
			Seed:      seed,
		})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if result.Roll < 1 || result.Roll > 20 {
			t.Fatalf("seed %d: roll %d outside [1,20]", seed, result.Roll)
		}
		if result.Total != result.Roll+result.Modifier {
			t.Fatalf("seed %d: total %d != roll %d + modifier %d", seed, result.Total, result.Roll, result.Modifier)
		}
		if result.Seed != seed {
			t.Fatalf("seed = %d, want %d", result.Seed, seed)
		}
	}
}

func TestResolveIsDeterministicForSeed(t *testing.T) {
	request := CheckRequest{
		Action: Action{Kind: ActionCheck},
		System: SystemRoleAndRoll,
		Pool:   3,
		Seed:   42,
	}
	first, err := Resolve(request)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	second, err := Resolve(request)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if first.Total != second.Total || first.RoleAndRoll.Score != second.RoleAndRoll.Score {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
	if len(first.RoleAndRoll.Rows) != len(second.RoleAndRoll.Rows) {
		t.Fatalf("row count differs: %d vs %d", len(first.RoleAndRoll.Rows), len(second.RoleAndRoll.Rows))
	}
}

func TestRollRoleAndRollAppendsRerollToSameRow(t *testing.T) {
	// R, R, star ends row one; blank ends row two.
	src := &scriptedSource{t: t, values: []int{3, 3, 2, 0}}
	result, err := RollRoleAndRoll(src, 2)
	if err != nil {
		t.Fatalf("RollRoleAndRoll returned error: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(result.Rows))
	}
	wantFirst := []Face{FaceReroll, FaceReroll, FaceStar}
	if got := result.Rows[0].Faces; len(got) != len(wantFirst) || got[0] != wantFirst[0] || got[1] != wantFirst[1] || got[2] != wantFirst[2] {
		t.Fatalf("first row faces = %v, want %v", got, wantFirst)
	}
	if result.Rows[0].Score != 3 || result.Rows[0].RunningTotal != 3 {
		t.Fatalf("first row = %+v, want score 3 running total 3", result.Rows[0])
	}
	if len(result.Rows[1].Faces) != 1 || result.Rows[1].Faces[0] != FaceBlank {
		t.Fatalf("second row faces = %v, want [blank]", result.Rows[1].Faces)
	}
	if result.Rows[1].RunningTotal != 3 {
		t.Fatalf("second row running total = %d, want 3", result.Rows[1].RunningTotal)
	}
	if result.Score != 3 {
		t.Fatalf("score = %d, want 3", result.Score)
	}
}

func TestRollRoleAndRollFaceMapping(t *testing.T) {
	tests := []struct {
		draw int
		want Face
	}{
		{0, FaceBlank},
		{1, FaceBlank},
		{2, FaceStar},
	}
	for _, tt := range tests {
		result, err := RollRoleAndRoll(&scriptedSource{t: t, values: []int{tt.draw}}, 1)
		if err != nil {
			t.Fatalf("RollRoleAndRoll returned error: %v", err)
		}
		if got := result.Rows[0].Faces[0]; got != tt.want {
			t.Fatalf("draw %d face = %q, want %q", tt.draw, got, tt.want)
		}
		if result.Score != tt.want.Score() {
			t.Fatalf("draw %d score = %d, want %d", tt.draw, result.Score, tt.want.Score())
		}
	}
}

// TestRollRoleAndRollTerminatesAndCountsScoringFaces checks chain shape and
// scoring across many seeds.
func TestRollRoleAndRollTerminatesAndCountsScoringFaces(t *testing.T) {
	for seed := int64(0); seed < 1000; seed++ {
		result, err := RollRoleAndRoll(rand.New(rand.NewSource(seed)), 4)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		scoring := 0
		for _, row := range result.Rows {
			for i, face := range row.Faces {
				last := i == len(row.Faces)-1
				if last && face == FaceReroll {
					t.Fatalf("seed %d: row ends on R: %v", seed, row.Faces)
				}
				if !last && face != FaceReroll {
					t.Fatalf("seed %d: non-R face %q continued the row: %v", seed, face, row.Faces)
				}
				if face == FaceStar || face == FaceReroll {
					scoring++
				}
			}
		}
		if result.Score != scoring {
			t.Fatalf("seed %d: score %d, want %d scoring faces", seed, result.Score, scoring)
		}
	}
}

func TestRollRoleAndRollRejectsRunawayChain(t *testing.T) {
	_, err := RollRoleAndRoll(constantSource(3), 1)
	if !errors.Is(err, ErrRerollLimit) {
		t.Fatalf("error = %v, want %v", err, ErrRerollLimit)
	}
}

func TestRollRoleAndRollChainLimitBoundary(t *testing.T) {
	rerolls := func(n int, last ...int) []int {
		values := make([]int, 0, n+len(last))
		for i := 0; i < n; i++ {
			values = append(values, 3)
		}
		return append(values, last...)
	}

	src := &scriptedSource{t: t, values: rerolls(MaxChain-1, 2)}
	result, err := RollRoleAndRoll(src, 1)
	if err != nil {
		t.Fatalf("chain of %d rerolls: %v", MaxChain-1, err)
	}
	if got := len(result.Rows[0].Faces); got != MaxChain {
		t.Fatalf("faces = %d, want %d", got, MaxChain)
	}

	src = &scriptedSource{t: t, values: rerolls(MaxChain)}
	if _, err := RollRoleAndRoll(src, 1); !errors.Is(err, ErrRerollLimit) {
		t.Fatalf("chain of %d rerolls error = %v, want %v", MaxChain, err, ErrRerollLimit)
	}
	if src.next != MaxChain {
		t.Fatalf("draws = %d, want %d", src.next, MaxChain)
	}
}

func TestRollRoleAndRollRejectsInvalidPool(t *testing.T) {
	for _, pool := range []int{-1, 0, MaxPool + 1} {
		if _, err := RollRoleAndRoll(constantSource(0), pool); !errors.Is(err, ErrInvalidPool) {
			t.Fatalf("pool %d error = %v, want %v", pool, err, ErrInvalidPool)
		}
	}
}

func TestResolveRoleAndRollTotalsScoreAndModifier(t *testing.T) {
	src := &scriptedSource{t: t, values: []int{3, 2}}
	result, err := ResolveWithSource(CheckRequest{
		Action:     Action{Kind: ActionSkill, Description: "cast a spell"},
		Abilities:  Abilities{"intelligence": 14},
		System:     SystemRoleAndRoll,
		Difficulty: intPtr(5),
	}, src)
	if err != nil {
		t.Fatalf("ResolveWithSource returned error: %v", err)
	}
	if result.RoleAndRoll == nil || result.RoleAndRoll.Score != 2 {
		t.Fatalf("role and roll = %+v, want score 2", result.RoleAndRoll)
	}
	if result.Roll != 0 {
		t.Fatalf("roll = %d, want 0 for role and roll", result.Roll)
	}
	if result.Total != 4 {
		t.Fatalf("total = %d, want 4", result.Total)
	}
	if result.MeetsDifficulty || result.Margin != -1 {
		t.Fatalf("difficulty outcome = %v margin %d, want failure by 1", result.MeetsDifficulty, result.Margin)
	}
}

func TestResolveDifficulty(t *testing.T) {
	tests := []struct {
		name       string
		draw       int
		difficulty int
		wantMeets  bool
		wantMargin int
	}{
		{"exact match", 9, 10, true, 0},
		{"above", 14, 10, true, 5},
		{"below", 4, 10, false, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolveWithSource(CheckRequest{
				Action:     Action{Kind: ActionCheck},
				Difficulty: intPtr(tt.difficulty),
			}, &scriptedSource{t: t, values: []int{tt.draw}})
			if err != nil {
				t.Fatalf("ResolveWithSource returned error: %v", err)
			}
			if result.MeetsDifficulty != tt.wantMeets || result.Margin != tt.wantMargin {
				t.Fatalf("meets=%v margin=%d, want meets=%v margin=%d", result.MeetsDifficulty, result.Margin, tt.wantMeets, tt.wantMargin)
			}
		})
	}
}

func TestResolveRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		request CheckRequest
		want    error
	}{
		{"system", CheckRequest{Action: Action{Kind: ActionCheck}, System: "d6"}, ErrInvalidSystem},
		{"difficulty", CheckRequest{Action: Action{Kind: ActionCheck}, Difficulty: intPtr(-1)}, ErrInvalidDifficulty},
		{"action", CheckRequest{Action: Action{Kind: "parley"}}, ErrInvalidAction},
		{"pool", CheckRequest{Action: Action{Kind: ActionCheck}, System: SystemRoleAndRoll, Pool: MaxPool + 1}, ErrInvalidPool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resolve(tt.request); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckResultSummary(t *testing.T) {
	result, err := ResolveWithSource(CheckRequest{
		Action:     Action{Kind: ActionAttack},
		Abilities:  Abilities{"dexterity": 14},
		Difficulty: intPtr(12),
	}, &scriptedSource{t: t, values: []int{11}})
	if err != nil {
		t.Fatalf("ResolveWithSource returned error: %v", err)
	}
	got := result.Summary()
	want := "d20 rolled 12 +2 (dexterity) = 14 vs difficulty 12: success by 2"
	if got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}

	rr, err := ResolveWithSource(CheckRequest{
		Action: Action{Kind: ActionCheck},
		System: SystemRoleAndRoll,
	}, &scriptedSource{t: t, values: []int{0}})
	if err != nil {
		t.Fatalf("ResolveWithSource returned error: %v", err)
	}
	if !strings.HasPrefix(rr.Summary(), "Role & Roll 1 row(s) scored 0 +0 (strength) = 0") {
		t.Fatalf("Summary() = %q", rr.Summary())
	}
}

func TestParseSystem(t *testing.T) {
	if got, ok := ParseSystem(""); !ok || got != SystemD20 {
		t.Fatalf("ParseSystem(\"\") = %q, %v", got, ok)
	}
	if got, ok := ParseSystem("Role_And_Roll"); !ok || got != SystemRoleAndRoll {
		t.Fatalf("ParseSystem(Role_And_Roll) = %q, %v", got, ok)
	}
	if _, ok := ParseSystem("d6"); ok {
		t.Fatal("expected d6 to be rejected")
	}
}
