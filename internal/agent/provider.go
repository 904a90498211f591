// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"
	"strings"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/errors"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
)

// GenerateRequest is a provider-agnostic chat completion request.
type GenerateRequest struct {
	// System is an optional system-level instruction (empty to omit)
	System string
	// Turns is the conversation so far, oldest first
	Turns []model.Turn
	// Tools offered to the model for this exchange
	Tools []model.ToolSpec
	// MaxTokens caps the response length (0 for the provider default)
	MaxTokens int
}

// GenerateResponse is the assistant's reply to one completion request.
type GenerateResponse struct {
	// Text is the assistant text, possibly empty when only tool calls
	// were produced
	Text string
	// HasText distinguishes an intentionally empty reply from an absent
	// one; providers set it only when the model emitted a text part.
	HasText bool
	// ToolCalls requested by the model, empty when the exchange is done
	ToolCalls []model.ToolCallRequest
}

// ModelProvider abstracts a chat-completion backend so the conversation
// loop works against any LLM vendor.
type ModelProvider interface {
	// Generate sends one completion request and returns the assistant's
	// reply. A returned error is fatal for the current exchange.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// NewModelProvider builds the provider selected by cfg.AI.Provider.
func NewModelProvider(cfg *config.Config) (ModelProvider, error) {
	switch strings.ToLower(cfg.AI.Provider) {
	case "anthropic":
		apiKey := cfg.AI.AnthropicAPIKey
		if apiKey == "" {
			apiKey = cfg.AI.APIKey
		}
		if apiKey == "" {
			return nil, errors.InvalidInput("Anthropic API key is not set in configuration")
		}
		return NewAnthropicProvider(apiKey, cfg.AI.Model), nil
	case "gemini":
		apiKey := cfg.AI.GeminiAPIKey
		if apiKey == "" {
			apiKey = cfg.AI.APIKey
		}
		if apiKey == "" {
			return nil, errors.InvalidInput("Gemini API key is not set in configuration")
		}
		return NewGeminiProvider(apiKey, cfg.AI.Model)
	case "openai", "":
		apiKey := cfg.AI.OpenAIAPIKey
		if apiKey == "" {
			apiKey = cfg.AI.APIKey
		}
		if apiKey == "" {
			return nil, errors.InvalidInput("OpenAI API key is not set in configuration")
		}
		return NewOpenAIProvider(apiKey, cfg.AI.BaseURL, cfg.AI.Model), nil
	default:
		return nil, errors.InvalidInput("unsupported AI provider: " + cfg.AI.Provider)
	}
}
