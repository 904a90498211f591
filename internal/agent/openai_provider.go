// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"
	"encoding/json"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider implements ModelProvider using the OpenAI SDK.
// It supports any OpenAI-compatible endpoint (OpenAI, Ollama, vLLM, Groq,
// etc.) via a configurable base URL.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI-backed ModelProvider. If baseURL
// is non-empty it overrides the default API endpoint.
func NewOpenAIProvider(apiKey, baseURL, modelName string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: modelName}
}

func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, turn := range req.Turns {
		msgs = append(msgs, toOpenAIMessage(turn))
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return &GenerateResponse{}, nil
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func toOpenAITools(tools []model.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(schema.Normalize(t.InputSchema, schema.DialectOpenAI)),
			},
		}
	}
	return out
}

func toOpenAIMessage(turn model.Turn) openai.ChatCompletionMessageParamUnion {
	switch turn.Role {
	case model.RoleTool:
		return openai.ToolMessage(turn.Content, turn.CallID)
	case model.RoleUser:
		return openai.UserMessage(turn.Content)
	case model.RoleSystem:
		return openai.SystemMessage(turn.Content)
	default: // assistant
		asst := openai.ChatCompletionAssistantMessageParam{}
		if turn.Content != "" {
			asst.Content.OfString = openai.String(turn.Content)
		}
		if len(turn.ToolCalls) > 0 {
			asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(turn.ToolCalls))
			for i, call := range turn.ToolCalls {
				args := "{}"
				if call.Args != nil {
					if raw, err := json.Marshal(call.Args); err == nil {
						args = string(raw)
					}
				}
				asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID: call.CallID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.ToolName,
						Arguments: args,
					},
				}
			}
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
	}
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) *GenerateResponse {
	resp := &GenerateResponse{
		Text:    m.Content,
		HasText: m.Content != "",
	}
	for _, tc := range m.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, model.ToolCallRequest{
			CallID:   tc.ID,
			ToolName: tc.Function.Name,
			Args:     model.ParseArguments(tc.Function.Arguments),
		})
	}
	return resp
}
