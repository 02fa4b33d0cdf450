package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/companion/internal/utils"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is a single prompt sent to the oracle.
type Request struct {
	System string
	Prompt string
	// JSON asks the provider for a JSON object. Schema, when set, implies JSON.
	JSON   bool
	Schema *jsonschema.Schema
}

// Oracle turns a prompt into generated text. Output is untrusted.
type Oracle interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// LLMOracle runs non-streaming generations against any model.LLM.
type LLMOracle struct {
	llm         model.LLM
	temperature *float32
}

// NewLLMOracle wraps llm. temperature may be nil for the provider default.
func NewLLMOracle(llm model.LLM, temperature *float32) *LLMOracle {
	return &LLMOracle{llm: llm, temperature: temperature}
}

// Generate returns the concatenated text of the model's response.
func (o *LLMOracle) Generate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: o.temperature}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, "system")
	}
	if req.JSON || req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil {
		cfg.ResponseJsonSchema = req.Schema
	}

	llmReq := &model.LLMRequest{
		Model:    o.llm.Name(),
		Contents: []*genai.Content{genai.NewContentFromText(req.Prompt, "user")},
		Config:   cfg,
	}

	var sb strings.Builder
	for resp, err := range o.llm.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		sb.WriteString(utils.ExtractContentText(resp.Content))
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 {
	return &v
}
