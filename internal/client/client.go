package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"parley/internal/config"
	"parley/internal/types"
)

// Client talks to a parley backend over HTTP JSON plus SSE feeds.
type Client struct {
	baseURL   string
	tokenPath string
	token     string
	http      *http.Client
}

func New(baseURL string) (*Client, error) {
	tokenPath, err := config.TokenPath()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		tokenPath: tokenPath,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	_ = c.loadToken()
	return c, nil
}

func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]*types.Conversation, error) {
	var resp ConversationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/conversations", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// CreateConversation asks the backend for a new empty conversation. The
// created record also arrives through the conversation feed.
func (c *Client) CreateConversation(ctx context.Context) (*types.Conversation, error) {
	var conversation types.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/v1/conversations", struct{}{}, true, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*types.Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("conversation id is required")
	}
	var conversation types.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/v1/conversations/"+id, nil, true, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("conversation id is required")
	}
	return c.doJSON(ctx, http.MethodDelete, "/v1/conversations/"+id, nil, true, nil)
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]*types.Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	var resp MessagesResponse
	path := fmt.Sprintf("/v1/conversations/%s/messages", conversationID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// InsertMessage persists a user message. The backend rejects empty
// content; callers are expected to trim before dispatch.
func (c *Client) InsertMessage(ctx context.Context, conversationID, content string) (*types.Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	req := InsertMessageRequest{Role: types.RoleUser, Content: content}
	var message types.Message
	path := fmt.Sprintf("/v1/conversations/%s/messages", conversationID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, true, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// RequestReply asks the backend to generate an assistant reply for the
// given user content. The assistant message itself arrives through the
// message feed; the returned text is informational.
func (c *Client) RequestReply(ctx context.Context, conversationID, content string) (*ReplyResponse, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	req := ReplyRequest{Content: content}
	var resp ReplyResponse
	path := fmt.Sprintf("/v1/conversations/%s/reply", conversationID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, requireAuth bool, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth {
		if err := c.ensureToken(); err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ensureToken() error {
	if strings.TrimSpace(c.token) == "" && c.tokenPath != "" {
		if err := c.loadToken(); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.token) == "" {
		return errors.New("token not found; run the backend once or set PARLEY_TOKEN")
	}
	return nil
}

func (c *Client) loadToken() error {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.token = ""
			return nil
		}
		return err
	}
	c.token = strings.TrimSpace(string(data))
	return nil
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error string `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}
