// SPDX-License-Identifier: AGPL-3.0-only
package model

import (
	"encoding/json"
	"testing"
)

func TestSplitToolName(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantServer string
		wantBare   string
	}{
		{"namespaced", "admin_agent__fetch_products", "admin_agent", "fetch_products"},
		{"bare", "fetch_products", "admin_agent", "fetch_products"},
		{"double separator keeps rest intact", "warehouse__list__all", "warehouse", "list__all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, bare := SplitToolName(tt.input, "admin_agent")
			if server != tt.wantServer || bare != tt.wantBare {
				t.Errorf("SplitToolName(%q) = (%q, %q), want (%q, %q)",
					tt.input, server, bare, tt.wantServer, tt.wantBare)
			}
		})
	}
}

func TestNamespacedName(t *testing.T) {
	got := NamespacedName("admin_agent", "fetch_orders")
	if got != "admin_agent__fetch_orders" {
		t.Errorf("NamespacedName = %q", got)
	}
}

func TestParseArguments(t *testing.T) {
	args := ParseArguments(`{"limit": 10, "q": "tomato"}`)
	if args["q"] != "tomato" {
		t.Errorf("expected q=tomato, got %v", args["q"])
	}

	for _, raw := range []string{"", "   ", "not json", "[1,2]", "null"} {
		args := ParseArguments(raw)
		if args == nil || len(args) != 0 {
			t.Errorf("ParseArguments(%q) = %v, want empty map", raw, args)
		}
	}
}

func TestStructuredContent(t *testing.T) {
	r := ToolCallResult{Content: `{"count": 5}`}
	if got := r.StructuredContent(); got["count"] != float64(5) {
		t.Errorf("expected parsed object, got %v", got)
	}

	r = ToolCallResult{Content: "plain text"}
	if got := r.StructuredContent(); got["content"] != "plain text" {
		t.Errorf("expected wrapped text, got %v", got)
	}

	r = ToolCallResult{Content: "ignored", Structured: map[string]interface{}{"a": 1}}
	if got := r.StructuredContent(); got["a"] != 1 {
		t.Errorf("expected existing structured payload, got %v", got)
	}
}

func TestTurnJSONRoundTrip(t *testing.T) {
	turn := AssistantCallTurn("", []ToolCallRequest{
		{CallID: "call_1", ToolName: "admin_agent__fetch_products", Args: map[string]interface{}{"limit": float64(5)}},
	})
	data, err := json.Marshal(turn)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Turn
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Role != RoleAssistant || len(back.ToolCalls) != 1 {
		t.Fatalf("round trip lost tool calls: %+v", back)
	}
	if back.ToolCalls[0].CallID != "call_1" {
		t.Errorf("call id = %q", back.ToolCalls[0].CallID)
	}
}

func TestTurnJSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(UserTurn("hello"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"tool_calls", "call_id", "tool_name", "structured", "is_error"} {
		if _, ok := m[key]; ok {
			t.Errorf("expected %q to be omitted, got %v", key, m[key])
		}
	}
}

func TestValidateSequence(t *testing.T) {
	valid := []Turn{
		UserTurn("list products"),
		AssistantCallTurn("", []ToolCallRequest{{CallID: "c1", ToolName: "admin_agent__fetch_products"}}),
		ToolTurn(ToolCallResult{CallID: "c1", ToolName: "admin_agent__fetch_products", Content: "[]"}),
		AssistantTurn("No products found."),
	}
	if err := ValidateSequence(valid); err != nil {
		t.Errorf("valid sequence rejected: %v", err)
	}

	// Gemini-style correlation by name, no call id.
	byName := []Turn{
		AssistantCallTurn("", []ToolCallRequest{{ToolName: "fetch_orders"}}),
		ToolTurn(ToolCallResult{ToolName: "fetch_orders", Content: "{}"}),
	}
	if err := ValidateSequence(byName); err != nil {
		t.Errorf("name-correlated sequence rejected: %v", err)
	}

	orphan := []Turn{
		UserTurn("hi"),
		ToolTurn(ToolCallResult{CallID: "never-issued", ToolName: "x"}),
	}
	if err := ValidateSequence(orphan); err == nil {
		t.Error("expected error for orphaned tool turn")
	}
}

func TestTrimOrphanedToolTurns(t *testing.T) {
	// A bounded read sliced this conversation mid-exchange: the assistant
	// turn that requested c1 fell outside the window.
	sliced := []Turn{
		ToolTurn(ToolCallResult{CallID: "c1", ToolName: "admin_agent__fetch_products", Content: "[]"}),
		UserTurn("and the orders?"),
	}
	trimmed := TrimOrphanedToolTurns(sliced)
	if len(trimmed) != 1 || trimmed[0].Role != RoleUser {
		t.Fatalf("trimmed = %+v, want just the user turn", trimmed)
	}
	if err := ValidateSequence(trimmed); err != nil {
		t.Errorf("trimmed sequence invalid: %v", err)
	}
}

func TestTrimOrphanedToolTurnsKeepsCorrelatedTurns(t *testing.T) {
	full := []Turn{
		UserTurn("list products"),
		AssistantCallTurn("", []ToolCallRequest{{CallID: "c1", ToolName: "admin_agent__fetch_products"}}),
		ToolTurn(ToolCallResult{CallID: "c1", ToolName: "admin_agent__fetch_products", Content: "[]"}),
		AssistantTurn("No products found."),
	}
	trimmed := TrimOrphanedToolTurns(full)
	if len(trimmed) != len(full) {
		t.Fatalf("trimmed %d turns from a fully correlated sequence", len(full)-len(trimmed))
	}

	// Name-correlated turns survive too.
	byName := []Turn{
		AssistantCallTurn("", []ToolCallRequest{{ToolName: "fetch_orders"}}),
		ToolTurn(ToolCallResult{ToolName: "fetch_orders", Content: "{}"}),
	}
	if got := TrimOrphanedToolTurns(byName); len(got) != 2 {
		t.Errorf("name-correlated turns dropped: %+v", got)
	}
}

func TestToolTurnCarriesError(t *testing.T) {
	turn := ToolTurn(ToolCallResult{CallID: "c9", ToolName: "t", Content: "Error: boom", IsError: true})
	if !turn.IsError || turn.Content != "Error: boom" {
		t.Errorf("tool turn = %+v", turn)
	}
}
