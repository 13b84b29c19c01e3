package chat

import "strings"

// ConversationSelector tracks which conversation is active, if any.
// Selection changes are what drive message feed mount/unmount; the
// selector itself holds no subscriptions.
type ConversationSelector struct {
	active string
}

func NewConversationSelector() *ConversationSelector {
	return &ConversationSelector{}
}

func (s *ConversationSelector) Active() string {
	return s.active
}

func (s *ConversationSelector) Selected() bool {
	return s.active != ""
}

// Select makes id the active conversation. An empty id clears the
// selection. Reports whether the selection changed.
func (s *ConversationSelector) Select(id string) bool {
	id = strings.TrimSpace(id)
	if id == s.active {
		return false
	}
	s.active = id
	return true
}

func (s *ConversationSelector) Clear() bool {
	return s.Select("")
}

// HandleDeleted clears the selection when the deleted conversation is
// the active one. Callers invoke this before issuing the delete so no
// subscription dangles on a dead conversation.
func (s *ConversationSelector) HandleDeleted(id string) bool {
	if id == "" || id != s.active {
		return false
	}
	return s.Clear()
}
