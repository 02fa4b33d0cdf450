// Package chat runs one chat turn: memory in, reply out, persistence deferred.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/companion/internal/memory"
	"github.com/easeaico/companion/internal/prompt"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
	"github.com/easeaico/companion/internal/utils"
	"github.com/easeaico/companion/internal/worker"
)

// TitleLength is how much of the first message becomes the conversation title.
const TitleLength = 50

var (
	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("message cannot be empty")
	// ErrConversationNotFound is returned when the conversation is missing or not the caller's.
	ErrConversationNotFound = errors.New("conversation not found")
)

// ConversationStore creates, loads and touches conversations.
type ConversationStore interface {
	Create(ctx context.Context, userID, title string) (*types.Conversation, error)
	Get(ctx context.Context, id, userID string) (*types.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// MessageStore appends and lists chat messages.
type MessageStore interface {
	memory.MessageLister
	Create(ctx context.Context, msg *types.Message) error
}

// ActivityRecorder bumps the user's last-active time.
type ActivityRecorder interface {
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

// ContextAssembler loads memory for a turn.
type ContextAssembler interface {
	Assemble(ctx context.Context, userID, conversationID string) (memory.MemoryContext, error)
}

// TaskQueue runs work after the reply has been returned.
type TaskQueue interface {
	Enqueue(job worker.Job) bool
}

// TurnRequest is one user message.
type TurnRequest struct {
	UserID string
	// ConversationID is empty to start a new conversation.
	ConversationID string
	Message        string
	// OnConversation, when set, is called with the resolved conversation id
	// before any reply text is produced.
	OnConversation func(id string)
}

// TurnResult is the companion's reply.
type TurnResult struct {
	ConversationID string
	Reply          string
}

// Service answers chat turns.
type Service struct {
	conversations ConversationStore
	messages      MessageStore
	users         ActivityRecorder
	assembler     ContextAssembler
	builder       *prompt.Builder
	llm           model.LLM
	tasks         TaskQueue
	now           func() time.Time
}

// NewService wires the chat service to the postgres store.
func NewService(store *storage.Store, assembler ContextAssembler, builder *prompt.Builder, llm model.LLM, tasks TaskQueue) *Service {
	return newService(store.Conversations, store.Messages, store.Users, assembler, builder, llm, tasks)
}

func newService(
	conversations ConversationStore,
	messages MessageStore,
	users ActivityRecorder,
	assembler ContextAssembler,
	builder *prompt.Builder,
	llm model.LLM,
	tasks TaskQueue,
) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		users:         users,
		assembler:     assembler,
		builder:       builder,
		llm:           llm,
		tasks:         tasks,
		now:           time.Now,
	}
}

// Turn answers req. When onChunk is non-nil the reply is streamed through it
// as it is generated. The assistant message is persisted after Turn returns.
func (s *Service) Turn(ctx context.Context, req TurnRequest, onChunk func(string) error) (TurnResult, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return TurnResult{}, ErrEmptyMessage
	}

	conv, err := s.conversation(ctx, req.UserID, req.ConversationID, text)
	if err != nil {
		return TurnResult{}, err
	}
	result := TurnResult{ConversationID: conv.ID}
	if req.OnConversation != nil {
		req.OnConversation(conv.ID)
	}

	if err := s.messages.Create(ctx, &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        text,
	}); err != nil {
		return result, fmt.Errorf("failed to save user message: %w", err)
	}

	var (
		mc      memory.MemoryContext
		history []types.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		mc, err = s.assembler.Assemble(gctx, req.UserID, conv.ID)
		return err
	})
	g.Go(func() (err error) {
		history, err = s.messages.ListByConversation(gctx, conv.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("failed to load turn context: %w", err)
	}

	userContext := memory.FormatMemoryForPrompt(mc, memory.FormatOptions{IsFirstMessage: len(history) <= 1})
	p, err := s.builder.Build(prompt.BuildContext{UserContext: userContext, History: history})
	if err != nil {
		return result, err
	}

	if err := s.users.TouchLastActive(ctx, req.UserID, s.now()); err != nil {
		slog.Warn("failed to touch user activity", "user_id", req.UserID, "error", err.Error())
	}

	reply, err := s.generate(ctx, p, onChunk)
	if err != nil {
		return result, err
	}
	result.Reply = reply

	s.deferPersist(conv.ID, reply)
	return result, nil
}

func (s *Service) conversation(ctx context.Context, userID, conversationID, firstMessage string) (*types.Conversation, error) {
	if conversationID == "" {
		conv, err := s.conversations.Create(ctx, userID, utils.Truncate(firstMessage, TitleLength))
		if err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		slog.Info("conversation created", "conversation_id", conv.ID, "user_id", userID)
		return conv, nil
	}

	conv, err := s.conversations.Get(ctx, conversationID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) generate(ctx context.Context, p prompt.Prompt, onChunk func(string) error) (string, error) {
	req := &model.LLMRequest{
		Model:    s.llm.Name(),
		Contents: p.Contents,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(p.System, "system"),
		},
	}

	var streamed, final strings.Builder
	for resp, err := range s.llm.GenerateContent(ctx, req, onChunk != nil) {
		if err != nil {
			return "", fmt.Errorf("failed to generate reply: %w", err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		chunk := utils.ExtractContentText(resp.Content)
		if !resp.Partial {
			final.WriteString(chunk)
			continue
		}
		streamed.WriteString(chunk)
		if chunk != "" && onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return "", fmt.Errorf("failed to stream reply: %w", err)
			}
		}
	}

	// streaming providers repeat the full text in the final response
	reply := strings.TrimSpace(final.String())
	if reply == "" {
		reply = strings.TrimSpace(streamed.String())
	}
	if reply == "" {
		return "", fmt.Errorf("failed to generate reply: empty response")
	}
	return reply, nil
}

func (s *Service) deferPersist(conversationID, reply string) {
	persist := func(ctx context.Context) error {
		if err := s.messages.Create(ctx, &types.Message{
			ConversationID: conversationID,
			Role:           types.RoleAssistant,
			Content:        reply,
		}); err != nil {
			return err
		}
		return s.conversations.Touch(ctx, conversationID, s.now())
	}

	if s.tasks != nil && s.tasks.Enqueue(worker.Job{Name: "persist-reply:" + conversationID, Run: persist}) {
		return
	}
	// queue unavailable: persist inline rather than lose the reply
	if err := persist(context.Background()); err != nil {
		slog.Error("failed to persist assistant reply", "conversation_id", conversationID, "error", err.Error())
	}
}
