package models

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/companion/internal/utils"
)

const defaultAnthropicMaxTokens int64 = 2048

// anthropicModel adapts the Anthropic Messages API to model.LLM.
type anthropicModel struct {
	client *anthropic.Client
	name   string
}

// NewAnthropicModel creates a Claude model.
func NewAnthropicModel(ctx context.Context, modelName, apiKey string) (model.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &anthropicModel{client: &client, name: modelName}, nil
}

func (m *anthropicModel) Name() string {
	return m.name
}

func (m *anthropicModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	ensureUserTurn(req)
	params := m.buildParams(req)

	if stream {
		return m.generateStream(ctx, params)
	}

	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			slog.Error("failed to call anthropic API", "model", m.name, "error", err.Error())
			yield(nil, fmt.Errorf("failed to call messages API: %w", err))
			return
		}

		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		yield(&model.LLMResponse{
			Content:      genai.NewContentFromText(text.String(), "model"),
			TurnComplete: true,
		}, nil)
	}
}

func (m *anthropicModel) generateStream(ctx context.Context, params anthropic.MessageNewParams) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		stream := m.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		var fullText strings.Builder
		for stream.Next() {
			switch evt := stream.Current().AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := evt.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text == "" {
						continue
					}
					fullText.WriteString(delta.Text)
					if !yield(&model.LLMResponse{
						Content: genai.NewContentFromText(delta.Text, "model"),
						Partial: true,
					}, nil) {
						return
					}
				}
			case anthropic.MessageStopEvent:
				if !yield(&model.LLMResponse{
					Content:      genai.NewContentFromText(strings.TrimSpace(fullText.String()), "model"),
					TurnComplete: true,
				}, nil) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				yield(nil, fmt.Errorf("context cancelled: %w", err))
				return
			}
			slog.Error("failed to stream anthropic API", "model", m.name, "error", err.Error())
			yield(nil, fmt.Errorf("stream error: %w", err))
		}
	}
}

func (m *anthropicModel) buildParams(req *model.LLMRequest) anthropic.MessageNewParams {
	name := req.Model
	if name == "" {
		name = m.name
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(name),
		MaxTokens: defaultAnthropicMaxTokens,
	}

	if cfg := req.Config; cfg != nil {
		if sys := utils.ExtractContentText(cfg.SystemInstruction); sys != "" {
			if cfg.ResponseMIMEType == "application/json" {
				sys += "\n\nRespond with a single JSON object and nothing else."
			}
			params.System = []anthropic.TextBlockParam{{Text: sys}}
		}
		if cfg.MaxOutputTokens > 0 {
			params.MaxTokens = int64(cfg.MaxOutputTokens)
		}
		if cfg.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*cfg.Temperature))
		}
	}

	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		block := anthropic.NewTextBlock(utils.ExtractContentText(content))
		if content.Role == "model" {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	return params
}
