package services

import (
	"context"
	"fmt"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
	"github.com/samjmc/dashchat/internal/core/ports/driving"
	"github.com/samjmc/dashchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Chat defaults.
const (
	// DefaultConversationTitle names conversations with no dashboard title.
	DefaultConversationTitle = "Dashboard Conversation"

	// ApologyReply is returned when the completion provider fails. Provider
	// failures are never surfaced as request errors.
	ApologyReply = "I apologize, but I encountered an error while generating a response. Please try again."

	// maxHistoryTurns bounds how much conversation history reaches the
	// completion provider.
	maxHistoryTurns = 10

	// defaultUserID owns all widget conversations; the widget is anonymous.
	defaultUserID = 1
)

// ChatService answers widget questions: it resolves the dashboard context,
// retrieves similar documents, builds the augmented prompt and calls the
// completion provider. Detector and retrieval failures only ever degrade the
// answer; validation failures are the sole user-visible errors.
type ChatService struct {
	store     driven.ChatStore
	documents driving.DocumentService
	detector  driving.ContextDetector
	llm       driven.LLMService

	searchLimit int
}

// NewChatService creates a chat service. The detector and llm are optional
// (can be nil): without a detector, requests rely on caller-supplied
// context; without an llm, every reply is the fixed apology.
func NewChatService(
	store driven.ChatStore,
	documents driving.DocumentService,
	detector driving.ContextDetector,
	llm driven.LLMService,
) *ChatService {
	return &ChatService{
		store:       store,
		documents:   documents,
		detector:    detector,
		llm:         llm,
		searchLimit: DefaultSearchLimit,
	}
}

// Send validates and answers a chat request.
func (s *ChatService) Send(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	logger.Section("Chat Request")

	if err := req.Validate(); err != nil {
		return nil, err
	}

	dctx := s.resolveContext(ctx, req)

	conv, err := s.resolveConversation(ctx, req, dctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CreateMessage(ctx, &domain.Message{
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        req.Message,
		Context:        dctx,
	}); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	snippets := s.retrieveSnippets(ctx, req.Message)
	history, err := s.store.ListConversationMessages(ctx, conv.ID)
	if err != nil {
		logger.Warn("History lookup failed: %v", err)
		history = nil
	}

	reply := s.complete(ctx, req.Message, dctx, snippets, history)

	saved, err := s.store.CreateMessage(ctx, &domain.Message{
		ConversationID: conv.ID,
		Role:           domain.RoleAssistant,
		Content:        reply,
	})
	if err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	return &domain.ChatResponse{
		ID:             saved.ID,
		Role:           saved.Role,
		Content:        saved.Content,
		ConversationID: conv.ID,
		CreatedAt:      saved.CreatedAt,
	}, nil
}

// History returns a conversation's messages sorted by creation time.
func (s *ChatService) History(ctx context.Context, conversationID int) ([]domain.Message, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListConversationMessages(ctx, conversationID)
}

// resolveContext prefers a caller-supplied snapshot and falls back to
// running the detector on the submitted environment.
func (s *ChatService) resolveContext(ctx context.Context, req *domain.ChatRequest) *domain.DashboardContext {
	if req.DashboardContext != nil {
		logger.Debug("Using caller-supplied dashboard context")
		return req.DashboardContext
	}
	if s.detector != nil && req.Environment != nil {
		return s.detector.Detect(ctx, req.Environment)
	}
	return nil
}

// resolveConversation loads the requested conversation or creates a fresh
// one titled after the dashboard.
func (s *ChatService) resolveConversation(
	ctx context.Context, req *domain.ChatRequest, dctx *domain.DashboardContext,
) (*domain.Conversation, error) {
	if req.ConversationID != 0 {
		conv, err := s.store.GetConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("%w: conversation %d", domain.ErrInvalidInput, req.ConversationID)
		}
		return conv, nil
	}

	title := DefaultConversationTitle
	if dctx != nil && dctx.Title != "" {
		title = dctx.Title
	}

	conv, err := s.store.CreateConversation(ctx, &domain.Conversation{
		UserID: defaultUserID,
		Title:  title,
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// retrieveSnippets runs the similarity search for the question. Failures
// degrade to no augmentation.
func (s *ChatService) retrieveSnippets(ctx context.Context, message string) []string {
	if s.documents == nil {
		return nil
	}

	results, err := s.documents.Search(ctx, message, s.searchLimit)
	if err != nil {
		logger.Warn("Retrieval failed, continuing without augmentation: %v", err)
		return nil
	}

	snippets := make([]string, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, r.Document.Content)
	}
	logger.Debug("Retrieved %d snippets", len(snippets))
	return snippets
}

// complete calls the completion provider with the augmented prompt, falling
// back to the apology on any provider failure.
func (s *ChatService) complete(
	ctx context.Context,
	message string,
	dctx *domain.DashboardContext,
	snippets []string,
	history []domain.Message,
) string {
	if s.llm == nil {
		logger.Warn("No completion provider configured")
		return ApologyReply
	}

	messages := []driven.ChatMessage{
		{Role: domain.RoleSystem, Content: BuildSystemPrompt(dctx, snippets)},
	}

	// Drop the just-stored user turn from history; it is appended last.
	if n := len(history); n > 0 && history[n-1].Role == domain.RoleUser && history[n-1].Content == message {
		history = history[:n-1]
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, m := range history {
		messages = append(messages, driven.ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: domain.RoleUser, Content: message})

	reply, err := s.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		logger.Warn("Completion failed: %v", err)
		return ApologyReply
	}
	if reply == "" {
		return ApologyReply
	}
	return reply
}
