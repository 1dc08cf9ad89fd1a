package driving

import (
	"context"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// ChatService answers widget questions with retrieval-augmented completions.
type ChatService interface {
	// Send validates and answers a chat request. Only validation failures
	// are returned as errors; provider failures degrade to an apologetic
	// reply.
	Send(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error)

	// History returns a conversation's messages sorted by creation time.
	History(ctx context.Context, conversationID int) ([]domain.Message, error)
}
