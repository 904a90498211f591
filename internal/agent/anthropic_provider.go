// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"
	"encoding/json"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/schema"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicProvider implements ModelProvider using the Anthropic SDK.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic-backed ModelProvider.
func NewAnthropicProvider(apiKey, modelName string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client, model: modelName}
}

func (p *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		Messages:  toAnthropicMessages(req.Turns),
		MaxTokens: maxTokens,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}
	return fromAnthropicMessage(resp), nil
}

func toAnthropicTools(tools []model.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		normalized := schema.Normalize(t.InputSchema, schema.DialectAnthropic)
		props, _ := normalized["properties"].(map[string]interface{})
		if props == nil {
			props = map[string]interface{}{}
		}
		var required []string
		if req, ok := normalized["required"].([]interface{}); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}
		if req, ok := normalized["required"].([]string); ok {
			required = req
		}

		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		}
	}
	return out
}

// toAnthropicMessages converts conversation turns to Anthropic SDK message
// params.
//
// Anthropic's API requires:
//   - Only "user" and "assistant" roles (no "tool" role)
//   - Tool results are sent as user messages with ToolResultBlockParam content
//   - Assistant messages with tool calls use ToolUseBlockParam content
func toAnthropicMessages(turns []model.Turn) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case model.RoleUser, model.RoleSystem:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewTextBlock(turn.Content),
			))
		case model.RoleTool:
			result := anthropic.NewToolResultBlock(turn.CallID)
			result.OfToolResult.Content = []anthropic.ToolResultBlockParamContentUnion{
				{OfText: &anthropic.TextBlockParam{Text: turn.Content}},
			}
			result.OfToolResult.IsError = anthropic.Bool(turn.IsError)
			out = append(out, anthropic.NewUserMessage(result))
		case model.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0)
			if turn.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(turn.Content))
			}
			for _, call := range turn.ToolCalls {
				input := json.RawMessage("{}")
				if call.Args != nil {
					if raw, err := json.Marshal(call.Args); err == nil {
						input = raw
					}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.CallID,
						Name:  call.ToolName,
						Input: input,
					},
				})
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		}
	}
	return out
}

func fromAnthropicMessage(resp *anthropic.Message) *GenerateResponse {
	out := &GenerateResponse{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if out.HasText {
				out.Text += "\n"
			}
			out.Text += block.AsText().Text
			out.HasText = true
		case "tool_use":
			tu := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, model.ToolCallRequest{
				CallID:   tu.ID,
				ToolName: tu.Name,
				Args:     model.ParseArguments(string(tu.Input)),
			})
		}
	}
	return out
}
