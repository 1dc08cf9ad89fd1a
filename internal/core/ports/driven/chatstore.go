package driven

import (
	"context"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// ChatStore persists users, conversations and messages.
// Implementations must guarantee exactly one stored row per create under
// concurrent callers.
type ChatStore interface {
	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id int) (*domain.User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// CreateUser stores a new user and assigns its ID.
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, id int) (*domain.Conversation, error)

	// ListUserConversations returns a user's conversations.
	ListUserConversations(ctx context.Context, userID int) ([]domain.Conversation, error)

	// CreateConversation stores a new conversation and assigns its ID.
	CreateConversation(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error)

	// CreateMessage stores a new message, assigns its ID and bumps the
	// owning conversation's UpdatedAt.
	CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)

	// ListConversationMessages returns a conversation's messages sorted by
	// creation time.
	ListConversationMessages(ctx context.Context, conversationID int) ([]domain.Message, error)
}
