package client

import "parley/internal/types"

type ConversationsResponse struct {
	Conversations []*types.Conversation `json:"conversations"`
}

type MessagesResponse struct {
	Messages []*types.Message `json:"messages"`
}

type InsertMessageRequest struct {
	Role    types.Role `json:"role"`
	Content string     `json:"content"`
}

type ReplyRequest struct {
	Content string `json:"content"`
}

type ReplyResponse struct {
	Reply string `json:"reply"`
}

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}
