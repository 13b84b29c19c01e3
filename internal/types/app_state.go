package types

// AppState is the UI state persisted across runs.
type AppState struct {
	ActiveConversationID string `json:"active_conversation_id,omitempty"`
	SidebarHidden        bool   `json:"sidebar_hidden,omitempty"`
}
