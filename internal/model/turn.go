// SPDX-License-Identifier: AGPL-3.0-only
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies who produced a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Namespace separator between a tool-server name and a bare tool name
const ToolNameSeparator = "__"

// ToolSpec describes one callable tool aggregated from a tool server
type ToolSpec struct {
	// Server is the owning tool-server identifier
	Server string `json:"server"`
	// Name is the namespaced name ("server__bare") unless namespacing
	// was disabled during discovery
	Name string `json:"name"`
	// BareName is the tool name as the owning server knows it
	BareName string `json:"bare_name"`
	// Description is the tool's human/model-facing description
	Description string `json:"description"`
	// InputSchema is a plain JSON-Schema-like object
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// NamespacedName joins a server and bare tool name
func NamespacedName(server, bare string) string {
	return server + ToolNameSeparator + bare
}

// SplitToolName resolves a possibly namespaced tool name into its owning
// server and bare name. Unnamespaced names resolve to defaultServer.
func SplitToolName(name, defaultServer string) (server, bare string) {
	if srv, rest, ok := strings.Cut(name, ToolNameSeparator); ok {
		return srv, rest
	}
	return defaultServer, name
}

// ToolCallRequest is a single tool invocation requested by the model
type ToolCallRequest struct {
	// CallID correlates the request with its result. OpenAI-style models
	// supply one; the Gemini dialect has none, so the provider fills in
	// the tool name and correlation happens by name within the exchange.
	CallID string `json:"call_id"`
	// ToolName is the namespaced (or bare) tool name
	ToolName string `json:"tool_name"`
	// Args holds the parsed arguments. Malformed serialized payloads
	// degrade to an empty map, never an error.
	Args map[string]interface{} `json:"args,omitempty"`
}

// ParseArguments decodes a serialized argument payload. Malformed or empty
// input yields an empty map so a bad model payload cannot abort the loop.
func ParseArguments(raw string) map[string]interface{} {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]interface{}{}
	}
	return args
}

// ToolCallResult is the outcome of executing a ToolCallRequest
type ToolCallResult struct {
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
	// Content is the flattened textual payload (or a human-readable error
	// message when IsError is set)
	Content string `json:"content"`
	// Structured is the payload parsed as JSON when possible; Gemini
	// function responses require a structured object
	Structured map[string]interface{} `json:"structured,omitempty"`
	// IsError marks transport or application failure. Error results are
	// still appended to the conversation; the model sees them.
	IsError bool `json:"is_error"`
}

// StructuredContent returns the structured payload, synthesizing
// {"content": text} when the raw content is not a JSON object.
func (r ToolCallResult) StructuredContent() map[string]interface{} {
	if r.Structured != nil {
		return r.Structured
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(r.Content), &m); err == nil && m != nil {
		return m
	}
	return map[string]interface{}{"content": r.Content}
}

// Turn is one entry in a conversation. It is a tagged union over Role:
// assistant turns may carry pending tool-call requests; tool turns carry
// exactly one result correlated by CallID or ToolName.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// ToolCalls are requests issued by an assistant turn. A turn with
	// tool calls and empty content is valid.
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`
	// CallID correlates a tool turn with its originating request
	CallID string `json:"call_id,omitempty"`
	// ToolName names the tool that produced a tool turn
	ToolName string `json:"tool_name,omitempty"`
	// Structured carries a tool turn's payload in object form
	Structured map[string]interface{} `json:"structured,omitempty"`
	// IsError marks a failed tool turn
	IsError bool `json:"is_error,omitempty"`
}

// SystemTurn builds a system instruction turn
func SystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

// UserTurn builds a user turn
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds a plain assistant text turn
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// AssistantCallTurn builds an assistant turn that requests tool calls
func AssistantCallTurn(content string, calls []ToolCallRequest) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolTurn builds a tool-result turn from an executed call
func ToolTurn(result ToolCallResult) Turn {
	return Turn{
		Role:       RoleTool,
		Content:    result.Content,
		CallID:     result.CallID,
		ToolName:   result.ToolName,
		Structured: result.Structured,
		IsError:    result.IsError,
	}
}

// TrimOrphanedToolTurns drops tool turns whose requesting assistant turn
// is not present in the slice. A bounded history read can slice a
// conversation mid-exchange, leaving a tool result without its request
// at the head of the window; providers reject such sequences, so the
// orphans are discarded during rehydration. The returned slice always
// satisfies ValidateSequence.
func TrimOrphanedToolTurns(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	pendingByID := map[string]bool{}
	pendingByName := map[string]bool{}

	for _, turn := range turns {
		switch turn.Role {
		case RoleAssistant:
			for _, call := range turn.ToolCalls {
				if call.CallID != "" {
					pendingByID[call.CallID] = true
				}
				pendingByName[call.ToolName] = true
			}
		case RoleTool:
			if turn.CallID != "" && pendingByID[turn.CallID] {
				delete(pendingByID, turn.CallID)
			} else if turn.ToolName == "" || !pendingByName[turn.ToolName] {
				continue
			}
		}
		out = append(out, turn)
	}
	return out
}

// ValidateSequence checks the causal ordering invariant: every tool turn
// must be preceded by an assistant turn that requested it (by CallID when
// present, otherwise by tool name). Orphaned tool turns indicate an
// orchestration bug and fail fast.
func ValidateSequence(turns []Turn) error {
	pendingByID := map[string]bool{}
	pendingByName := map[string]bool{}

	for i, turn := range turns {
		switch turn.Role {
		case RoleAssistant:
			for _, call := range turn.ToolCalls {
				if call.CallID != "" {
					pendingByID[call.CallID] = true
				}
				pendingByName[call.ToolName] = true
			}
		case RoleTool:
			if turn.CallID != "" && pendingByID[turn.CallID] {
				delete(pendingByID, turn.CallID)
				continue
			}
			if turn.ToolName != "" && pendingByName[turn.ToolName] {
				continue
			}
			return fmt.Errorf("orphaned tool turn at index %d (call_id=%q tool=%q)", i, turn.CallID, turn.ToolName)
		}
	}
	return nil
}
