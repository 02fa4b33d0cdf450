// Package prompt builds the chat model request for one turn.
package prompt

import (
	"bytes"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/easeaico/companion/internal/types"
)

// BuildContext contains all inputs for prompt assembly.
type BuildContext struct {
	// UserContext is the formatted memory block.
	UserContext string
	// History is the conversation in chronological order, including the
	// message being answered.
	History []types.Message
}

// Prompt is a system instruction plus the conversation turns.
type Prompt struct {
	System   string
	Contents []*genai.Content
}

// Builder assembles chat prompts.
type Builder struct {
	historyLimit int
	nowFunc      func() time.Time
}

// NewBuilder creates a prompt Builder keeping at most historyLimit turns.
func NewBuilder(historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Builder{
		historyLimit: historyLimit,
		nowFunc:      time.Now,
	}
}

// Build renders the system prompt and converts history into genai contents.
func (b *Builder) Build(ctx BuildContext) (Prompt, error) {
	var buf bytes.Buffer
	if err := systemPromptTemplate.Execute(&buf, struct {
		UserContext string
		Now         string
	}{
		UserContext: ctx.UserContext,
		Now:         b.nowFunc().UTC().Format(time.RFC1123),
	}); err != nil {
		return Prompt{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	history := ctx.History
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == types.RoleAssistant {
			role = "model"
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(role)))
	}

	return Prompt{System: buf.String(), Contents: contents}, nil
}
