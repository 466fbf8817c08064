package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/louisbranch/roleandroll/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func connect(t *testing.T) (*mcp.ClientSession, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	server := NewServer(func() (int64, error) { return 7, nil })
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.serveWithTransport(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer connectCancel()
	session, err := client.Connect(connectCtx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect client: %v", err)
	}
	return session, func() {
		_ = session.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop after cancel")
		}
	}
}

func decodeStructured(t *testing.T, result *mcp.CallToolResult, dest any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool returned error: %+v", result.Content)
	}
	data, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
}

func TestServerListsDiceTools(t *testing.T) {
	session, stop := connect(t)
	defer stop()

	tools, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	if !names["ability_check"] || !names["role_and_roll"] {
		t.Fatalf("tools = %v", names)
	}
}

func TestAbilityCheckToolOverTransport(t *testing.T) {
	session, stop := connect(t)
	defer stop()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "ability_check",
		Arguments: map[string]any{
			"action_kind": "attack",
			"description": "slashes at the troll",
			"abilities":   map[string]int{"strength": 14, "dexterity": 17},
			"difficulty":  12,
		},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	var check domain.AbilityCheckResult
	decodeStructured(t, result, &check)
	if check.Ability != "dexterity" || check.Modifier != 3 || check.Seed != 7 {
		t.Fatalf("unexpected check: %+v", check)
	}
	if check.Roll < 1 || check.Roll > 20 || check.Total != check.Roll+3 {
		t.Fatalf("unexpected roll: %+v", check)
	}
	if check.MeetsDifficulty != (check.Total >= 12) {
		t.Fatalf("meets difficulty mismatch: %+v", check)
	}
}

func TestRoleAndRollToolIsReproducible(t *testing.T) {
	session, stop := connect(t)
	defer stop()

	call := func() domain.RoleAndRollResult {
		result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      "role_and_roll",
			Arguments: map[string]any{"pool": 3, "seed": 99},
		})
		if err != nil {
			t.Fatalf("call tool: %v", err)
		}
		var draw domain.RoleAndRollResult
		decodeStructured(t, result, &draw)
		return draw
	}
	first, second := call(), call()
	if len(first.Rows) != 3 || first.Seed != 99 {
		t.Fatalf("unexpected draw: %+v", first)
	}
	if first.Score != second.Score || first.Rows[2].RunningTotal != first.Score {
		t.Fatalf("draws differ or totals inconsistent: %+v vs %+v", first, second)
	}
}

func TestToolRejectsInvalidInput(t *testing.T) {
	session, stop := connect(t)
	defer stop()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "role_and_roll",
		Arguments: map[string]any{"pool": 50},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for oversized pool")
	}
}
