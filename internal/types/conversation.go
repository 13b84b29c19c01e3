package types

import "time"

type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title,omitempty"`
}

// DisplayTitle returns the title to render for a conversation that the
// backend has not titled yet.
func (c *Conversation) DisplayTitle() string {
	if c == nil || c.Title == "" {
		return "New Conversation"
	}
	return c.Title
}
