package domain

import (
	"fmt"
	"strings"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// User is a widget user. Kept minimal: the widget runs anonymously and the
// default user owns all conversations.
type User struct {
	// ID is the unique identifier, assigned by the store on creation.
	ID int

	// Username is the unique login name.
	Username string
}

// Conversation groups the messages of one chat session.
type Conversation struct {
	// ID is the unique identifier, assigned by the store on creation.
	ID int

	// UserID is the owning user.
	UserID int

	// Title is the conversation title, defaulted from the dashboard title.
	Title string

	// CreatedAt is when the conversation was created.
	CreatedAt time.Time

	// UpdatedAt is bumped whenever a message is appended.
	UpdatedAt time.Time
}

// Message is a single chat turn.
type Message struct {
	// ID is the unique identifier, assigned by the store on creation.
	ID int

	// ConversationID links to the owning conversation.
	ConversationID int

	// Role is RoleUser or RoleAssistant.
	Role string

	// Content is the message text.
	Content string

	// Context is the dashboard context attached to the message, if any.
	Context *DashboardContext

	// CreatedAt is when the message was created.
	CreatedAt time.Time
}

// ChatRequest is an incoming widget question.
type ChatRequest struct {
	// Message is the user's question. Required, non-empty.
	Message string `json:"message"`

	// ConversationID continues an existing conversation when set.
	ConversationID int `json:"conversationId,omitempty"`

	// DashboardContext is the caller-supplied context snapshot, if the
	// widget already ran detection client-side.
	DashboardContext *DashboardContext `json:"dashboardContext,omitempty"`

	// Environment carries page evidence for server-side detection when no
	// context snapshot is supplied.
	Environment *Environment `json:"environment,omitempty"`
}

// Validate checks the request shape. Validation failures are the only
// errors a chat caller ever sees.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: message must not be empty", ErrInvalidInput)
	}
	if r.ConversationID < 0 {
		return fmt.Errorf("%w: conversationId must be positive", ErrInvalidInput)
	}
	return nil
}

// ChatResponse is the assistant's reply to a chat request.
type ChatResponse struct {
	// ID is the stored assistant message ID.
	ID int `json:"id"`

	// Role is always RoleAssistant.
	Role string `json:"role"`

	// Content is the reply text.
	Content string `json:"content"`

	// ConversationID identifies the conversation the reply belongs to.
	ConversationID int `json:"conversationId"`

	// CreatedAt is the reply creation time, ISO-8601 on the wire.
	CreatedAt time.Time `json:"createdAt"`
}
