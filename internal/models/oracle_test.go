package models

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type fakeLLM struct {
	parts []string
	err   error
	last  *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	f.last = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		for _, p := range f.parts {
			if !yield(&model.LLMResponse{Content: genai.NewContentFromText(p, "model")}, nil) {
				return
			}
		}
	}
}

func TestLLMOracleGenerate(t *testing.T) {
	llm := &fakeLLM{parts: []string{"  hello ", "world  "}}
	oracle := NewLLMOracle(llm, Float32(0.2))

	text, err := oracle.Generate(context.Background(), Request{
		System: "be brief",
		Prompt: "hi",
		Schema: &jsonschema.Schema{Type: "object"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}
	cfg := llm.last.Config
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseJsonSchema == nil {
		t.Fatalf("expected json response settings, got %#v", cfg)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("expected system instruction to be set")
	}
	if *cfg.Temperature != 0.2 {
		t.Fatalf("unexpected temperature: %v", *cfg.Temperature)
	}
}

func TestLLMOracleEmptyAndError(t *testing.T) {
	oracle := NewLLMOracle(&fakeLLM{parts: []string{"   "}}, nil)
	if _, err := oracle.Generate(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}

	boom := errors.New("boom")
	oracle = NewLLMOracle(&fakeLLM{err: boom}, nil)
	if _, err := oracle.Generate(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}
