package chat

import (
	"context"

	"parley/internal/types"
)

// ConversationAPI covers the conversation lifecycle calls SessionFeed
// issues. Feed data itself arrives through a snapshot stream.
type ConversationAPI interface {
	CreateConversation(ctx context.Context) (*types.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

// SendAPI covers the two calls of the send protocol.
type SendAPI interface {
	InsertMessage(ctx context.Context, conversationID, content string) (*types.Message, error)
	RequestReply(ctx context.Context, conversationID, content string) (string, error)
}
