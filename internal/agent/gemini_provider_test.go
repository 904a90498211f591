// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"testing"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
	"google.golang.org/genai"
)

func TestToGeminiFunctions(t *testing.T) {
	tools := []model.ToolSpec{
		{
			Name:        "admin_agent__fetch_stock_batches",
			Description: "Fetch stock batches",
			InputSchema: map[string]interface{}{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]interface{}{
					"batchCode": map[string]interface{}{"type": "string", "format": "code"},
				},
				"required": []interface{}{"batchCode", "ghost"},
			},
		},
	}

	result := toGeminiFunctions(tools)

	if len(result) != 1 {
		t.Fatalf("Expected 1 declaration, got %d", len(result))
	}
	if result[0].Name != "admin_agent__fetch_stock_batches" {
		t.Errorf("Expected namespaced name, got '%s'", result[0].Name)
	}
	params, ok := result[0].ParametersJsonSchema.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected sanitized schema map, got %T", result[0].ParametersJsonSchema)
	}
	if _, present := params["additionalProperties"]; present {
		t.Error("additionalProperties should be stripped for Gemini")
	}
	required, _ := params["required"].([]interface{})
	if len(required) != 1 || required[0] != "batchCode" {
		t.Errorf("required = %v, want [batchCode]", params["required"])
	}
}

func TestToGeminiContents_RolesAndParts(t *testing.T) {
	turns := []model.Turn{
		model.UserTurn("how many orders today?"),
		model.AssistantCallTurn("", []model.ToolCallRequest{
			{ToolName: "admin_agent__count_orders", Args: map[string]interface{}{"onlyActive": true}},
		}),
		model.ToolTurn(model.ToolCallResult{
			ToolName:   "admin_agent__count_orders",
			Content:    `{"count": 7}`,
			Structured: map[string]interface{}{"count": 7},
		}),
		model.AssistantTurn("You have 7 orders today."),
	}

	contents := toGeminiContents(turns)

	if len(contents) != 4 {
		t.Fatalf("Expected 4 contents, got %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("contents[0].Role = %s", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("contents[1].Role = %s, want model", contents[1].Role)
	}
	if contents[1].Parts[0].FunctionCall == nil {
		t.Fatal("Expected function call part on the assistant turn")
	}
	if contents[1].Parts[0].FunctionCall.Name != "admin_agent__count_orders" {
		t.Errorf("function call name = %s", contents[1].Parts[0].FunctionCall.Name)
	}

	// Tool results travel as function_response parts with role "user".
	if contents[2].Role != genai.RoleUser {
		t.Errorf("contents[2].Role = %s, want user", contents[2].Role)
	}
	fr := contents[2].Parts[0].FunctionResponse
	if fr == nil {
		t.Fatal("Expected function response part")
	}
	if fr.Name != "admin_agent__count_orders" {
		t.Errorf("function response name = %s", fr.Name)
	}
	if fr.Response["count"] != 7 {
		t.Errorf("function response payload = %v", fr.Response)
	}

	if contents[3].Role != genai.RoleModel || contents[3].Parts[0].Text != "You have 7 orders today." {
		t.Errorf("contents[3] = %+v", contents[3])
	}
}

func TestToGeminiContents_UnstructuredToolResultIsWrapped(t *testing.T) {
	turn := model.ToolTurn(model.ToolCallResult{
		ToolName: "admin_agent__fetch_products",
		Content:  "plain text listing",
	})

	contents := toGeminiContents([]model.Turn{turn})

	fr := contents[0].Parts[0].FunctionResponse
	if fr == nil {
		t.Fatal("Expected function response part")
	}
	if fr.Response["content"] != "plain text listing" {
		t.Errorf("Expected wrapped text payload, got %v", fr.Response)
	}
}

func TestToGeminiContents_SkipsEmptyAssistantTurn(t *testing.T) {
	contents := toGeminiContents([]model.Turn{{Role: model.RoleAssistant}})
	if len(contents) != 0 {
		t.Errorf("Expected empty assistant turn to be skipped, got %d contents", len(contents))
	}
}

func TestFromGeminiResponse_TextAndCalls(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					genai.NewPartFromText("Checking stock now."),
					genai.NewPartFromFunctionCall("admin_agent__fetch_stock_batches", map[string]interface{}{"batchCode": "B-12"}),
				},
			},
		}},
	}

	out := fromGeminiResponse(resp)

	if !out.HasText || out.Text != "Checking stock now." {
		t.Errorf("text = (%q, %v)", out.Text, out.HasText)
	}
	if len(out.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(out.ToolCalls))
	}
	call := out.ToolCalls[0]
	if call.ToolName != "admin_agent__fetch_stock_batches" {
		t.Errorf("tool name = %s", call.ToolName)
	}
	if call.Args["batchCode"] != "B-12" {
		t.Errorf("args = %v", call.Args)
	}
}

func TestFromGeminiResponse_EmptyCandidates(t *testing.T) {
	out := fromGeminiResponse(&genai.GenerateContentResponse{})
	if out.HasText || len(out.ToolCalls) != 0 {
		t.Errorf("Expected absent response, got %+v", out)
	}
}
