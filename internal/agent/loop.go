// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
)

// CompletionFallback is returned when the tool loop reaches its iteration
// cap without the model producing a closing text reply.
const CompletionFallback = "I've completed all the required actions. Is there anything else I can help you with?"

// ToolInvoker is the slice of the tool orchestrator the loop depends on.
type ToolInvoker interface {
	ListAllTools(ctx context.Context) ([]model.ToolSpec, error)
	InvokeAll(ctx context.Context, calls []model.ToolCallRequest) []model.ToolCallResult
}

// HistoryStore persists conversation turns per conversation.
type HistoryStore interface {
	Append(ctx context.Context, conversationID string, turns ...model.Turn) error
	ReadRecent(ctx context.Context, conversationID string, limit int) ([]model.Turn, error)
}

// Loop drives one model<->tools conversation exchange at a time.
type Loop struct {
	provider      ModelProvider
	tools         ToolInvoker
	history       HistoryStore
	systemPrompt  string
	maxIterations int
	window        int
	maxTokens     int
	logger        *logging.Logger
}

// NewLoop wires a conversation loop from its collaborators.
func NewLoop(cfg *config.Config, provider ModelProvider, tools ToolInvoker, history HistoryStore, systemPrompt string, logger *logging.Logger) *Loop {
	return &Loop{
		provider:      provider,
		tools:         tools,
		history:       history,
		systemPrompt:  systemPrompt,
		maxIterations: cfg.AI.MaxToolIterations,
		window:        cfg.History.Window,
		maxTokens:     int(cfg.AI.MaxTokens),
		logger:        logger,
	}
}

// ProcessMessage runs one full exchange for the conversation: persist the
// user turn, then alternate model calls and tool invocations until the
// model answers in text or the iteration cap is hit.
//
// The returned bool reports whether the model actually produced a reply;
// it is false when the model went silent (no text, no tool calls), which
// is distinct from an intentionally empty string. Tool failures are fed
// back to the model and never abort the exchange; model failures do.
func (l *Loop) ProcessMessage(ctx context.Context, conversationID, userText string) (string, bool, error) {
	logger := l.logger.WithField("conversation_id", conversationID)

	// The user turn is persisted before the first model call so a model
	// failure never loses what the user said.
	if err := l.history.Append(ctx, conversationID, model.UserTurn(userText)); err != nil {
		return "", false, err
	}

	turns, err := l.history.ReadRecent(ctx, conversationID, l.window)
	if err != nil {
		return "", false, err
	}
	// The window can slice a conversation mid-exchange, leaving tool
	// results whose assistant request was trimmed away. Providers reject
	// such sequences, so the orphans are dropped before rehydration.
	turns = model.TrimOrphanedToolTurns(turns)

	tools, err := l.tools.ListAllTools(ctx)
	if err != nil {
		return "", false, err
	}
	logger.Debugf("starting exchange with %d tools, %d history turns", len(tools), len(turns))

	for i := 0; i < l.maxIterations; i++ {
		resp, err := l.provider.Generate(ctx, GenerateRequest{
			System:    l.systemPrompt,
			Turns:     turns,
			Tools:     tools,
			MaxTokens: l.maxTokens,
		})
		if err != nil {
			logger.Errorf("model call failed on iteration %d: %v", i+1, err)
			return "", false, err
		}

		if len(resp.ToolCalls) == 0 {
			if !resp.HasText {
				logger.Warnf("model returned neither text nor tool calls")
				return "", false, nil
			}
			reply := model.AssistantTurn(resp.Text)
			if err := l.history.Append(ctx, conversationID, reply); err != nil {
				return "", false, err
			}
			logger.Infof("exchange completed after %d iterations", i+1)
			return resp.Text, true, nil
		}

		callTurn := model.AssistantCallTurn(resp.Text, resp.ToolCalls)
		if err := l.history.Append(ctx, conversationID, callTurn); err != nil {
			return "", false, err
		}
		turns = append(turns, callTurn)

		logger.Debugf("iteration %d: executing %d tool calls", i+1, len(resp.ToolCalls))
		results := l.tools.InvokeAll(ctx, resp.ToolCalls)
		for _, result := range results {
			if result.IsError {
				logger.Warnf("tool %s failed: %s", result.ToolName, result.Content)
			}
			toolTurn := model.ToolTurn(result)
			if err := l.history.Append(ctx, conversationID, toolTurn); err != nil {
				return "", false, err
			}
			turns = append(turns, toolTurn)
		}
	}

	// Cap reached mid-tool-use. Close the exchange with a fixed message
	// rather than an error: the work the tools did is already done.
	logger.Warnf("tool loop hit iteration cap (%d)", l.maxIterations)
	if err := l.history.Append(ctx, conversationID, model.AssistantTurn(CompletionFallback)); err != nil {
		return "", false, err
	}
	return CompletionFallback, true, nil
}
