package devserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"parley/internal/logging"
	"parley/internal/types"
)

type insertMessageRequest struct {
	Role    types.Role `json:"role"`
	Content string     `json:"content"`
}

type replyRequest struct {
	Content string `json:"content"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": s.version,
	})
}

func (s *Server) Conversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if isFollowRequest(r) {
			s.streamConversations(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"conversations": s.snapshotConversations(),
		})
	case http.MethodPost:
		c := s.createConversation()
		s.logger.Info("conversation_created", logging.F("id", c.ID))
		writeJSON(w, http.StatusCreated, c)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) ConversationByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/conversations/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			c, ok := s.getConversation(id)
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
				return
			}
			writeJSON(w, http.StatusOK, c)
		case http.MethodDelete:
			if !s.deleteConversation(id) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
				return
			}
			s.logger.Info("conversation_deleted", logging.F("id", id))
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		}
		return
	}

	switch parts[1] {
	case "messages":
		s.handleMessages(w, r, id)
	case "reply":
		s.handleReply(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, conversationID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.getConversation(conversationID); !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
			return
		}
		if isFollowRequest(r) {
			s.streamMessages(w, r, conversationID)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"messages": s.snapshotMessages(conversationID),
		})
	case http.MethodPost:
		var req insertMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if !req.Role.Valid() {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid role"})
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "content is required"})
			return
		}
		m, ok := s.appendMessage(conversationID, req.Role, req.Content)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
			return
		}
		writeJSON(w, http.StatusCreated, m)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request, conversationID string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "content is required"})
		return
	}
	if _, ok := s.getConversation(conversationID); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
		return
	}

	reply, err := s.responder.Reply(r.Context(), req.Content)
	if err != nil {
		s.logger.Error("reply_generation_failed",
			logging.F("conversation_id", conversationID),
			logging.F("error", err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "reply generation failed"})
		return
	}
	if _, ok := s.appendMessage(conversationID, types.RoleAssistant, reply); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) streamConversations(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	subID, ch := s.subscribeConversations()
	defer s.unsubscribe(subID)

	writeStreamHeaders(w)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-ch:
			if err := writeStreamEvent(w, flusher, snapshot); err != nil {
				return
			}
		}
	}
}

func (s *Server) streamMessages(w http.ResponseWriter, r *http.Request, conversationID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	subID, ch := s.subscribeMessages(conversationID)
	defer s.unsubscribe(subID)

	writeStreamHeaders(w)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-ch:
			if err := writeStreamEvent(w, flusher, snapshot); err != nil {
				return
			}
		}
	}
}

func isFollowRequest(r *http.Request) bool {
	follow := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("follow")))
	return follow == "1" || follow == "true" || follow == "yes"
}
