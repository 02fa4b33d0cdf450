package models

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestBuildOpenAIParamsSystemAndFormat(t *testing.T) {
	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText("hi", "user"),
			genai.NewContentFromText("hello", "model"),
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("sys", "system"),
			ResponseMIMEType:  "application/json",
		},
	}

	params := buildOpenAIParams(req, "grok-test")
	if params.Model != "grok-test" {
		t.Fatalf("unexpected model: %s", params.Model)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("expected system + 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil || params.Messages[2].OfAssistant == nil {
		t.Fatalf("unexpected message roles: %#v", params.Messages)
	}
	if params.ResponseFormat.OfJSONObject == nil {
		t.Fatalf("expected json_object response format")
	}

	req.Config.ResponseJsonSchema = &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"name": {Type: "string"}},
	}
	params = buildOpenAIParams(req, "grok-test")
	if params.ResponseFormat.OfJSONSchema == nil {
		t.Fatalf("expected json_schema response format")
	}
	schema := params.ResponseFormat.OfJSONSchema.JSONSchema.Schema.(map[string]any)
	if _, ok := schema["properties"].(map[string]any)["name"]; !ok {
		t.Fatalf("expected converted property, got %#v", schema)
	}
}

func TestEnsureUserTurn(t *testing.T) {
	req := &model.LLMRequest{}
	ensureUserTurn(req)
	if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
		t.Fatalf("expected synthetic user turn")
	}

	req.Contents = append(req.Contents, genai.NewContentFromText("ok", "model"))
	ensureUserTurn(req)
	if last := req.Contents[len(req.Contents)-1]; last.Role != "user" {
		t.Fatalf("expected trailing user turn, got %s", last.Role)
	}
}

func TestAnthropicBuildParams(t *testing.T) {
	m := &anthropicModel{name: "claude-test"}
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("hi", "user")},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("sys", "system"),
			MaxOutputTokens:   100,
		},
	}
	params := m.buildParams(req)
	if string(params.Model) != "claude-test" || params.MaxTokens != 100 {
		t.Fatalf("unexpected params: %#v", params)
	}
	if len(params.System) != 1 || params.System[0].Text != "sys" {
		t.Fatalf("unexpected system blocks: %#v", params.System)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(params.Messages))
	}
}
