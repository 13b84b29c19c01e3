package app

import (
	"context"

	"parley/internal/client"
	"parley/internal/types"
)

// ConversationAPI covers conversation lifecycle calls made from the UI.
type ConversationAPI interface {
	CreateConversation(ctx context.Context) (*types.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

// SendAPI covers the two calls of the send protocol.
type SendAPI interface {
	InsertMessage(ctx context.Context, conversationID, content string) (*types.Message, error)
	RequestReply(ctx context.Context, conversationID, content string) (string, error)
}

// StreamAPI opens the snapshot feeds the UI stays subscribed to.
type StreamAPI interface {
	SubscribeConversations(ctx context.Context) (<-chan []*types.Conversation, func(), error)
	SubscribeMessages(ctx context.Context, conversationID string) (<-chan []*types.Message, func(), error)
}

// ClientAPI adapts the HTTP client to the narrower interfaces the model
// consumes.
type ClientAPI struct {
	client *client.Client
}

func NewClientAPI(c *client.Client) *ClientAPI {
	return &ClientAPI{client: c}
}

func (a *ClientAPI) CreateConversation(ctx context.Context) (*types.Conversation, error) {
	return a.client.CreateConversation(ctx)
}

func (a *ClientAPI) DeleteConversation(ctx context.Context, id string) error {
	return a.client.DeleteConversation(ctx, id)
}

func (a *ClientAPI) InsertMessage(ctx context.Context, conversationID, content string) (*types.Message, error) {
	return a.client.InsertMessage(ctx, conversationID, content)
}

func (a *ClientAPI) RequestReply(ctx context.Context, conversationID, content string) (string, error) {
	resp, err := a.client.RequestReply(ctx, conversationID, content)
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}

func (a *ClientAPI) SubscribeConversations(ctx context.Context) (<-chan []*types.Conversation, func(), error) {
	return a.client.SubscribeConversations(ctx)
}

func (a *ClientAPI) SubscribeMessages(ctx context.Context, conversationID string) (<-chan []*types.Message, func(), error) {
	return a.client.SubscribeMessages(ctx, conversationID)
}
