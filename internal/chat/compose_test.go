package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/internal/types"
)

type sendCall struct {
	conversationID string
	content        string
}

type fakeSendAPI struct {
	insertErr   error
	replyErr    error
	reply       string
	insertCalls []sendCall
	replyCalls  []sendCall
}

func (f *fakeSendAPI) InsertMessage(ctx context.Context, conversationID, content string) (*types.Message, error) {
	f.insertCalls = append(f.insertCalls, sendCall{conversationID, content})
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return &types.Message{
		ID:        "m1",
		ChatID:    conversationID,
		Role:      types.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeSendAPI) RequestReply(ctx context.Context, conversationID, content string) (string, error) {
	f.replyCalls = append(f.replyCalls, sendCall{conversationID, content})
	if f.replyErr != nil {
		return "", f.replyErr
	}
	return f.reply, nil
}

func TestBeginCapturesAndClearsDraft(t *testing.T) {
	c := NewComposeController()
	c.SetConversation("c1")
	c.SetDraft("  hello  ")

	sub, ok := c.Begin()
	if !ok {
		t.Fatalf("Begin returned false")
	}
	if sub.ConversationID != "c1" || sub.Content != "hello" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if c.Draft() != "" {
		t.Fatalf("draft not cleared: %q", c.Draft())
	}
	if !c.Sending() {
		t.Fatalf("expected Sending after Begin")
	}
}

func TestBeginNoOpCases(t *testing.T) {
	c := NewComposeController()

	// No conversation bound.
	c.SetDraft("hello")
	if _, ok := c.Begin(); ok {
		t.Fatalf("Begin succeeded with no conversation")
	}

	// Blank draft.
	c.SetConversation("c1")
	c.SetDraft("   ")
	if _, ok := c.Begin(); ok {
		t.Fatalf("Begin succeeded with blank draft")
	}
	if c.Draft() != "   " {
		t.Fatalf("blank draft was consumed")
	}
}

func TestSingleInFlightPerConversation(t *testing.T) {
	c := NewComposeController()
	c.SetConversation("c1")
	c.SetDraft("first")

	sub, ok := c.Begin()
	if !ok {
		t.Fatalf("first Begin failed")
	}
	c.SetDraft("second")
	if _, ok := c.Begin(); ok {
		t.Fatalf("second Begin succeeded while reply in flight")
	}

	// A different conversation is independent.
	c.SetConversation("c2")
	c.SetDraft("other")
	if _, ok := c.Begin(); !ok {
		t.Fatalf("Begin failed for independent conversation")
	}

	c.Finish(sub)
	if c.SendingFor("c1") {
		t.Fatalf("c1 still in flight after Finish")
	}
	if !c.SendingFor("c2") {
		t.Fatalf("c2 lost its in-flight entry")
	}
}

func TestSubmitTwiceIssuesOneReply(t *testing.T) {
	api := &fakeSendAPI{reply: "ok"}
	c := NewComposeController()
	c.SetConversation("c1")

	c.SetDraft("hello")
	sub1, ok := c.Begin()
	if !ok {
		t.Fatalf("first Begin failed")
	}
	c.SetDraft("hello again")
	if _, ok := c.Begin(); ok {
		t.Fatalf("second Begin succeeded before first resolved")
	}

	if _, _, err := Send(context.Background(), api, sub1); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(api.replyCalls) != 1 {
		t.Fatalf("expected exactly one reply request, got %d", len(api.replyCalls))
	}
}

func TestInsertFailureSkipsReply(t *testing.T) {
	api := &fakeSendAPI{insertErr: errors.New("boom")}
	sub := Submission{ConversationID: "c1", Content: "hello"}

	_, _, err := Send(context.Background(), api, sub)
	if err == nil {
		t.Fatalf("Send succeeded despite insert failure")
	}
	var sendErr *SendError
	if !errors.As(err, &sendErr) || sendErr.Stage != SendStageInsert {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.replyCalls) != 0 {
		t.Fatalf("reply requested after failed insert")
	}
}

func TestReplyFollowsInsert(t *testing.T) {
	api := &fakeSendAPI{reply: "hi there"}
	sub := Submission{ConversationID: "c1", Content: "Hi"}

	message, reply, err := Send(context.Background(), api, sub)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if message == nil || message.Role != types.RoleUser || message.Content != "Hi" {
		t.Fatalf("unexpected persisted message: %+v", message)
	}
	if reply != "hi there" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(api.insertCalls) != 1 || len(api.replyCalls) != 1 {
		t.Fatalf("unexpected call counts: %d inserts, %d replies", len(api.insertCalls), len(api.replyCalls))
	}
	if api.insertCalls[0] != (sendCall{"c1", "Hi"}) || api.replyCalls[0] != (sendCall{"c1", "Hi"}) {
		t.Fatalf("calls carried wrong payloads: %+v / %+v", api.insertCalls, api.replyCalls)
	}
}

func TestFailRestoresDraft(t *testing.T) {
	c := NewComposeController()
	c.SetConversation("c1")
	c.SetDraft("hello")

	sub, ok := c.Begin()
	if !ok {
		t.Fatalf("Begin failed")
	}
	failure := errors.New("persist failed")
	c.Fail(sub, failure)

	if c.Draft() != "hello" {
		t.Fatalf("draft not restored: %q", c.Draft())
	}
	if c.Err() == nil {
		t.Fatalf("send error not surfaced")
	}
	if c.Sending() {
		t.Fatalf("still in flight after Fail")
	}

	// Typing dismisses the stale error.
	c.SetDraft("hello world")
	if c.Err() != nil {
		t.Fatalf("error survived a draft edit")
	}
}

func TestFailAfterSwitchDoesNotLeakDraft(t *testing.T) {
	c := NewComposeController()
	c.SetConversation("c1")
	c.SetDraft("for c1")
	sub, ok := c.Begin()
	if !ok {
		t.Fatalf("Begin failed")
	}

	c.SetConversation("c2")
	c.SetDraft("for c2")
	c.Fail(sub, errors.New("late failure"))

	if c.Draft() != "for c2" {
		t.Fatalf("late failure clobbered the new conversation's draft: %q", c.Draft())
	}
	if c.Err() != nil {
		t.Fatalf("late failure surfaced on the wrong conversation")
	}
	if c.SendingFor("c1") {
		t.Fatalf("c1 in-flight entry not cleared")
	}
}

func TestSwitchingConversationResetsDraft(t *testing.T) {
	c := NewComposeController()
	c.SetConversation("c1")
	c.SetDraft("half-typed")

	c.SetConversation("c2")
	if c.Draft() != "" {
		t.Fatalf("draft leaked across conversations: %q", c.Draft())
	}

	// Re-binding the same conversation keeps the draft.
	c.SetDraft("still here")
	c.SetConversation("c2")
	if c.Draft() != "still here" {
		t.Fatalf("draft lost on same-conversation rebind")
	}
}
