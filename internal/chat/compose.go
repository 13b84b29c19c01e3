package chat

import (
	"context"
	"strings"

	"parley/internal/types"
)

// Submission is a captured draft bound to the conversation it was
// composed in. The binding matters: a reply that resolves after the
// user switched conversations must settle against its original
// conversation, not the currently active one.
type Submission struct {
	ConversationID string
	Content        string
}

// ComposeController owns the draft text and the bookkeeping of the
// two-phase send protocol. It is deliberately optimistic: the draft is
// cleared the moment a submission starts and restored only on failure.
type ComposeController struct {
	conversationID string
	draft          string
	sendErr        error
	inflight       map[string]bool
}

func NewComposeController() *ComposeController {
	return &ComposeController{inflight: map[string]bool{}}
}

// SetConversation binds the controller to a conversation. Switching
// discards the draft and any surfaced send error; drafts do not travel
// between conversations.
func (c *ComposeController) SetConversation(id string) {
	id = strings.TrimSpace(id)
	if id == c.conversationID {
		return
	}
	c.conversationID = id
	c.draft = ""
	c.sendErr = nil
}

func (c *ComposeController) ConversationID() string {
	return c.conversationID
}

// SetDraft replaces the pending text. Typing dismisses a stale send
// error.
func (c *ComposeController) SetDraft(text string) {
	c.draft = text
	c.sendErr = nil
}

func (c *ComposeController) Draft() string {
	return c.draft
}

func (c *ComposeController) Err() error {
	return c.sendErr
}

// Sending reports whether a submission is outstanding for the active
// conversation.
func (c *ComposeController) Sending() bool {
	return c.inflight[c.conversationID]
}

func (c *ComposeController) SendingFor(conversationID string) bool {
	return c.inflight[conversationID]
}

// Begin starts a submission: the trimmed draft is captured, the input
// cleared, and the conversation marked in flight. It is a no-op when
// the draft is blank, no conversation is bound, or a submission is
// already in flight for this conversation.
func (c *ComposeController) Begin() (Submission, bool) {
	content := strings.TrimSpace(c.draft)
	if content == "" || c.conversationID == "" || c.inflight[c.conversationID] {
		return Submission{}, false
	}
	c.draft = ""
	c.sendErr = nil
	c.inflight[c.conversationID] = true
	return Submission{ConversationID: c.conversationID, Content: content}, true
}

// Finish settles a successful submission.
func (c *ComposeController) Finish(sub Submission) {
	delete(c.inflight, sub.ConversationID)
}

// Fail settles a failed submission. The captured text goes back into
// the draft so nothing the user typed is lost, but only when the
// submission's conversation is still the bound one.
func (c *ComposeController) Fail(sub Submission, err error) {
	delete(c.inflight, sub.ConversationID)
	if sub.ConversationID != c.conversationID {
		return
	}
	c.draft = sub.Content
	c.sendErr = err
}

// Send runs the protocol against the backend: persist the user message,
// then request the assistant reply. The reply request is never issued
// for a message that failed to persist. The assistant message reaches
// the transcript through the message feed, not through this return
// value.
func Send(ctx context.Context, api SendAPI, sub Submission) (*types.Message, string, error) {
	message, err := api.InsertMessage(ctx, sub.ConversationID, sub.Content)
	if err != nil {
		return nil, "", &SendError{Stage: SendStageInsert, Err: err}
	}
	reply, err := api.RequestReply(ctx, sub.ConversationID, sub.Content)
	if err != nil {
		return message, "", &SendError{Stage: SendStageReply, Err: err}
	}
	return message, reply, nil
}
