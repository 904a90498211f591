// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/schema"
	"google.golang.org/genai"
)

// GeminiProvider implements ModelProvider using the Google GenAI SDK.
//
// The Gemini API differs from the OpenAI-style dialects in two ways that
// matter here: function calls carry no call id (correlation is by function
// name and position) and tool results travel back as function_response
// parts inside a user-role content.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini-backed ModelProvider.
func NewGeminiProvider(apiKey, modelName string) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: client, model: modelName}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{
			FunctionDeclarations: toGeminiFunctions(req.Tools),
		}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, toGeminiContents(req.Turns), cfg)
	if err != nil {
		return nil, err
	}
	return fromGeminiResponse(resp), nil
}

func toGeminiFunctions(tools []model.ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		out[i] = &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: schema.Normalize(t.InputSchema, schema.DialectGemini),
		}
	}
	return out
}

// toGeminiContents rehydrates stored conversation turns into Gemini
// contents. Assistant turns map to role "model"; tool results become
// function_response parts under role "user".
func toGeminiContents(turns []model.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case model.RoleUser, model.RoleSystem:
			out = append(out, genai.NewContentFromText(turn.Content, genai.RoleUser))
		case model.RoleAssistant:
			var parts []*genai.Part
			if turn.Content != "" {
				parts = append(parts, genai.NewPartFromText(turn.Content))
			}
			for _, call := range turn.ToolCalls {
				args := call.Args
				if args == nil {
					args = map[string]interface{}{}
				}
				parts = append(parts, genai.NewPartFromFunctionCall(call.ToolName, args))
			}
			if len(parts) == 0 {
				continue
			}
			out = append(out, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case model.RoleTool:
			result := model.ToolCallResult{
				Content:    turn.Content,
				Structured: turn.Structured,
			}
			out = append(out, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{
					genai.NewPartFromFunctionResponse(turn.ToolName, result.StructuredContent()),
				},
			})
		}
	}
	return out
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) *GenerateResponse {
	out := &GenerateResponse{}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			if out.HasText {
				out.Text += "\n"
			}
			out.Text += part.Text
			out.HasText = true
		}
		if part.FunctionCall != nil {
			fc := part.FunctionCall
			args := map[string]interface{}{}
			for k, v := range fc.Args {
				args[k] = v
			}
			// No call id in this dialect; the function name doubles as
			// the correlation key.
			out.ToolCalls = append(out.ToolCalls, model.ToolCallRequest{
				CallID:   fc.ID,
				ToolName: fc.Name,
				Args:     args,
			})
		}
	}
	return out
}
