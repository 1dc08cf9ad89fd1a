package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
)

// stubChatStore is a minimal in-memory chat store for service tests.
type stubChatStore struct {
	conversations map[int]*domain.Conversation
	messages      []domain.Message
	nextConvID    int
	nextMsgID     int
	failMessages  bool
}

func newStubChatStore() *stubChatStore {
	return &stubChatStore{
		conversations: make(map[int]*domain.Conversation),
		nextConvID:    1,
		nextMsgID:     1,
	}
}

func (s *stubChatStore) GetUser(context.Context, int) (*domain.User, error) {
	return &domain.User{ID: 1, Username: "widget"}, nil
}

func (s *stubChatStore) GetUserByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (s *stubChatStore) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	return u, nil
}

func (s *stubChatStore) GetConversation(_ context.Context, id int) (*domain.Conversation, error) {
	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

func (s *stubChatStore) ListUserConversations(context.Context, int) ([]domain.Conversation, error) {
	out := make([]domain.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubChatStore) CreateConversation(_ context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	c := *conv
	c.ID = s.nextConvID
	s.nextConvID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	s.conversations[c.ID] = &c
	return &c, nil
}

func (s *stubChatStore) CreateMessage(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	if s.failMessages {
		return nil, errors.New("store down")
	}
	m := *msg
	m.ID = s.nextMsgID
	s.nextMsgID++
	m.CreatedAt = time.Now()
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s *stubChatStore) ListConversationMessages(_ context.Context, conversationID int) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

// stubLLM returns a fixed reply and records the prompt it was given.
type stubLLM struct {
	reply    string
	err      error
	received []driven.ChatMessage
}

func (l *stubLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	l.received = messages
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

func (l *stubLLM) ModelName() string          { return "stub" }
func (l *stubLLM) Ping(context.Context) error { return nil }
func (l *stubLLM) Close() error               { return nil }

// stubDocService returns canned similarity results.
type stubDocService struct {
	results []domain.SimilarityResult
	err     error
}

func (d *stubDocService) Add(context.Context, string, string, map[string]any) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (d *stubDocService) List(context.Context) ([]domain.Document, error) { return nil, nil }

func (d *stubDocService) Search(context.Context, string, int) ([]domain.SimilarityResult, error) {
	return d.results, d.err
}

func salesContext() *domain.DashboardContext {
	return &domain.DashboardContext{
		IsEmbedded: true,
		Title:      "Sales",
		Worksheets: []domain.WorksheetSummary{
			{Name: "Trend", Fields: []string{"Month", "Revenue"}},
		},
	}
}

func TestChatSend_PersistsBothTurns(t *testing.T) {
	store := newStubChatStore()
	llm := &stubLLM{reply: "The chart shows monthly revenue trending upward."}
	svc := NewChatService(store, &stubDocService{}, nil, llm)

	resp, err := svc.Send(context.Background(), &domain.ChatRequest{
		Message:          "What does this chart show?",
		DashboardContext: salesContext(),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
	assert.Equal(t, domain.RoleAssistant, resp.Role)
	assert.NotZero(t, resp.ConversationID)

	msgs, err := store.ListConversationMessages(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2, "one user turn and one assistant turn")
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "What does this chart show?", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, llm.reply, msgs[1].Content)
}

func TestChatSend_ConversationTitledAfterDashboard(t *testing.T) {
	store := newStubChatStore()
	svc := NewChatService(store, nil, nil, &stubLLM{reply: "ok"})

	resp, err := svc.Send(context.Background(), &domain.ChatRequest{
		Message:          "hi",
		DashboardContext: salesContext(),
	})
	require.NoError(t, err)

	conv, err := store.GetConversation(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "Sales", conv.Title)
}

func TestChatSend_DefaultTitleWithoutContext(t *testing.T) {
	store := newStubChatStore()
	svc := NewChatService(store, nil, nil, &stubLLM{reply: "ok"})

	resp, err := svc.Send(context.Background(), &domain.ChatRequest{Message: "hi"})
	require.NoError(t, err)

	conv, err := store.GetConversation(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, DefaultConversationTitle, conv.Title)
}

func TestChatSend_ValidationError(t *testing.T) {
	svc := NewChatService(newStubChatStore(), nil, nil, &stubLLM{reply: "ok"})

	_, err := svc.Send(context.Background(), &domain.ChatRequest{Message: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatSend_UnknownConversationRejected(t *testing.T) {
	svc := NewChatService(newStubChatStore(), nil, nil, &stubLLM{reply: "ok"})

	_, err := svc.Send(context.Background(), &domain.ChatRequest{
		Message:        "hi",
		ConversationID: 99,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatSend_ProviderFailureYieldsApology(t *testing.T) {
	store := newStubChatStore()
	llm := &stubLLM{err: domain.ErrLLMUnavailable}
	svc := NewChatService(store, nil, nil, llm)

	resp, err := svc.Send(context.Background(), &domain.ChatRequest{Message: "hi"})

	require.NoError(t, err, "provider failures must not surface as request errors")
	assert.Equal(t, ApologyReply, resp.Content)

	msgs, _ := store.ListConversationMessages(context.Background(), resp.ConversationID)
	require.Len(t, msgs, 2, "the apology is persisted like any assistant turn")
	assert.Equal(t, ApologyReply, msgs[1].Content)
}

func TestChatSend_SnippetsReachPrompt(t *testing.T) {
	docs := &stubDocService{results: []domain.SimilarityResult{
		{Document: domain.Document{Content: "Bar charts compare categories."}, Score: 0.9},
	}}
	llm := &stubLLM{reply: "ok"}
	svc := NewChatService(newStubChatStore(), docs, nil, llm)

	_, err := svc.Send(context.Background(), &domain.ChatRequest{Message: "explain bars"})
	require.NoError(t, err)

	require.NotEmpty(t, llm.received)
	assert.Equal(t, domain.RoleSystem, llm.received[0].Role)
	assert.Contains(t, llm.received[0].Content, "RELEVANT DOCUMENTATION")
	assert.Contains(t, llm.received[0].Content, "Bar charts compare categories.")
}

func TestChatSend_RetrievalFailureDegrades(t *testing.T) {
	docs := &stubDocService{err: errors.New("embedding down")}
	llm := &stubLLM{reply: "still fine"}
	svc := NewChatService(newStubChatStore(), docs, nil, llm)

	resp, err := svc.Send(context.Background(), &domain.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "still fine", resp.Content)
	assert.NotContains(t, llm.received[0].Content, "RELEVANT DOCUMENTATION")
}

func TestChatSend_HistoryWindowBounded(t *testing.T) {
	store := newStubChatStore()
	llm := &stubLLM{reply: "ok"}
	svc := NewChatService(store, nil, nil, llm)

	first, err := svc.Send(context.Background(), &domain.ChatRequest{Message: "turn 0"})
	require.NoError(t, err)

	for i := 1; i < 12; i++ {
		_, err := svc.Send(context.Background(), &domain.ChatRequest{
			Message:        "another turn",
			ConversationID: first.ConversationID,
		})
		require.NoError(t, err)
	}

	// System prompt + at most 10 history turns + the current question.
	assert.LessOrEqual(t, len(llm.received), 12)
	assert.Equal(t, domain.RoleUser, llm.received[len(llm.received)-1].Role)
	assert.Equal(t, "another turn", llm.received[len(llm.received)-1].Content)
}

func TestChatSend_CurrentTurnNotDuplicatedInHistory(t *testing.T) {
	store := newStubChatStore()
	llm := &stubLLM{reply: "ok"}
	svc := NewChatService(store, nil, nil, llm)

	_, err := svc.Send(context.Background(), &domain.ChatRequest{Message: "only once"})
	require.NoError(t, err)

	count := 0
	for _, m := range llm.received {
		if m.Role == domain.RoleUser && m.Content == "only once" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestChatHistory_UnknownConversation(t *testing.T) {
	svc := NewChatService(newStubChatStore(), nil, nil, nil)

	_, err := svc.History(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatSend_NoProviderYieldsApology(t *testing.T) {
	svc := NewChatService(newStubChatStore(), nil, nil, nil)

	resp, err := svc.Send(context.Background(), &domain.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, ApologyReply, resp.Content)
}
