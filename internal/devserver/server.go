package devserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"parley/internal/logging"
	"parley/internal/types"
)

// Server is the bundled in-memory backend: enough of the chat API for
// local development and integration tests. State lives in maps; every
// mutation pushes fresh snapshots to the SSE subscribers.
type Server struct {
	version   string
	responder Responder
	logger    logging.Logger

	mu            sync.Mutex
	conversations map[string]*types.Conversation
	messages      map[string][]*types.Message
	convSubs      map[int]chan []*types.Conversation
	msgSubs       map[int]*messageSub
	nextSub       int

	httpServer *http.Server
}

type messageSub struct {
	conversationID string
	ch             chan []*types.Message
}

func New(version string, responder Responder, logger logging.Logger) *Server {
	if responder == nil {
		responder = EchoResponder{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		version:       version,
		responder:     responder,
		logger:        logger,
		conversations: map[string]*types.Conversation{},
		messages:      map[string][]*types.Message{},
		convSubs:      map[int]chan []*types.Conversation{},
		msgSubs:       map[int]*messageSub{},
	}
}

// Handler returns the full HTTP handler, token auth included.
func (s *Server) Handler(token string) http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return TokenAuthMiddleware(token, mux)
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.Health)
	mux.HandleFunc("/v1/conversations", s.Conversations)
	mux.HandleFunc("/v1/conversations/", s.ConversationByID)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr, token string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(token),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devserver_listening", logging.F("addr", addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) createConversation() *types.Conversation {
	s.mu.Lock()
	c := &types.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	s.conversations[c.ID] = c
	s.mu.Unlock()

	s.broadcastConversations()
	return c
}

func (s *Server) getConversation(id string) (*types.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	clone := *c
	return &clone, true
}

func (s *Server) deleteConversation(id string) bool {
	s.mu.Lock()
	_, ok := s.conversations[id]
	if ok {
		delete(s.conversations, id)
		delete(s.messages, id)
	}
	s.mu.Unlock()

	if ok {
		s.broadcastConversations()
		s.broadcastMessages(id)
	}
	return ok
}

func (s *Server) appendMessage(conversationID string, role types.Role, content string) (*types.Message, bool) {
	s.mu.Lock()
	if _, ok := s.conversations[conversationID]; !ok {
		s.mu.Unlock()
		return nil, false
	}
	m := &types.Message{
		ID:        uuid.NewString(),
		ChatID:    conversationID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], m)

	// The backend titles a conversation from its first user message.
	titled := false
	if role == types.RoleUser {
		if c := s.conversations[conversationID]; c.Title == "" {
			c.Title = deriveTitle(content)
			titled = true
		}
	}
	s.mu.Unlock()

	s.broadcastMessages(conversationID)
	if titled {
		s.broadcastConversations()
	}
	return m, true
}

func (s *Server) snapshotConversations() []*types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotConversationsLocked()
}

func (s *Server) snapshotConversationsLocked() []*types.Conversation {
	out := make([]*types.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		clone := *c
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Server) snapshotMessages(conversationID string) []*types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotMessagesLocked(conversationID)
}

func (s *Server) snapshotMessagesLocked(conversationID string) []*types.Message {
	list := s.messages[conversationID]
	out := make([]*types.Message, 0, len(list))
	for _, m := range list {
		clone := *m
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Server) subscribeConversations() (int, <-chan []*types.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan []*types.Conversation, 8)
	s.convSubs[id] = ch
	ch <- s.snapshotConversationsLocked()
	return id, ch
}

func (s *Server) subscribeMessages(conversationID string) (int, <-chan []*types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	sub := &messageSub{conversationID: conversationID, ch: make(chan []*types.Message, 8)}
	s.msgSubs[id] = sub
	sub.ch <- s.snapshotMessagesLocked(conversationID)
	return id, sub.ch
}

func (s *Server) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convSubs, id)
	delete(s.msgSubs, id)
}

func (s *Server) broadcastConversations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.snapshotConversationsLocked()
	for _, ch := range s.convSubs {
		push(ch, snapshot)
	}
}

func (s *Server) broadcastMessages(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.snapshotMessagesLocked(conversationID)
	for _, sub := range s.msgSubs {
		if sub.conversationID == conversationID {
			push(sub.ch, snapshot)
		}
	}
}

// push never blocks a broadcast on a slow subscriber; a dropped
// snapshot is superseded by the next one anyway.
func push[T any](ch chan T, snapshot T) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}
