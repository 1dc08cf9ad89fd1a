package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
)

// Ensure ChatStore implements the interface.
var _ driven.ChatStore = (*ChatStore)(nil)

// ChatStore is an in-memory implementation of driven.ChatStore. It seeds a
// default anonymous user so the widget can chat without an account.
type ChatStore struct {
	mu            sync.RWMutex
	users         map[int]domain.User
	conversations map[int]domain.Conversation
	messages      map[int][]domain.Message
	nextUserID    int
	nextConvID    int
	nextMsgID     int
}

// NewChatStore creates a new in-memory chat store with the default user.
func NewChatStore() *ChatStore {
	s := &ChatStore{
		users:         make(map[int]domain.User),
		conversations: make(map[int]domain.Conversation),
		messages:      make(map[int][]domain.Message),
		nextUserID:    1,
		nextConvID:    1,
		nextMsgID:     1,
	}
	s.users[s.nextUserID] = domain.User{ID: s.nextUserID, Username: "widget"}
	s.nextUserID++
	return s
}

// GetUser retrieves a user by ID.
func (s *ChatStore) GetUser(_ context.Context, id int) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by username.
func (s *ChatStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, domain.ErrNotFound
}

// CreateUser stores a user and assigns it the next sequential ID.
func (s *ChatStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := *user
	u.ID = s.nextUserID
	s.nextUserID++
	s.users[u.ID] = u
	return &u, nil
}

// GetConversation retrieves a conversation by ID.
func (s *ChatStore) GetConversation(_ context.Context, id int) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// ListUserConversations returns a user's conversations, most recently
// updated first.
func (s *ChatStore) ListUserConversations(_ context.Context, userID int) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Conversation
	for _, c := range s.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// CreateConversation stores a conversation and assigns it the next
// sequential ID.
func (s *ChatStore) CreateConversation(_ context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *conv
	c.ID = s.nextConvID
	s.nextConvID++
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.conversations[c.ID] = c
	return &c, nil
}

// CreateMessage appends a message to its conversation and bumps the
// conversation's UpdatedAt.
func (s *ChatStore) CreateMessage(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	m := *msg
	m.ID = s.nextMsgID
	s.nextMsgID++
	m.CreatedAt = time.Now()
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)

	conv.UpdatedAt = m.CreatedAt
	s.conversations[conv.ID] = conv

	return &m, nil
}

// ListConversationMessages returns a conversation's messages sorted by
// creation time.
func (s *ChatStore) ListConversationMessages(_ context.Context, conversationID int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := append([]domain.Message(nil), s.messages[conversationID]...)
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}
