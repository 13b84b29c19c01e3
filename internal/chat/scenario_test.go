package chat

import (
	"context"
	"testing"
	"time"

	"parley/internal/types"
)

// End-to-end shape of a first exchange: create a conversation, send
// "Hi", watch the user message and the assistant reply land through the
// feeds in order.
func TestFirstExchangeScenario(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	convAPI := &fakeConversationAPI{nextID: "C1"}
	sendAPI := &fakeSendAPI{reply: "Hello! How can I help?"}

	sessions := NewSessionFeed(convAPI)
	selector := NewConversationSelector()
	feed := NewMessageFeed()
	compose := NewComposeController()

	sessionCh := make(chan []*types.Conversation, 4)
	sessions.SetStream(sessionCh, func() {})

	created, err := sessions.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// The backend pushes the new conversation; no refetch involved.
	sessionCh <- []*types.Conversation{{ID: created.ID, CreatedAt: base}}
	drainSessions(sessions)
	if len(sessions.Conversations()) != 1 || sessions.Conversations()[0].ID != "C1" {
		t.Fatalf("created conversation missing from feed: %+v", sessions.Conversations())
	}

	selector.Select(created.ID)
	feed.SetConversation(selector.Active())
	compose.SetConversation(selector.Active())
	msgCh := make(chan []*types.Message, 4)
	feed.SetStream(created.ID, msgCh, func() {})

	compose.SetDraft("Hi")
	sub, ok := compose.Begin()
	if !ok {
		t.Fatalf("Begin failed")
	}
	if _, _, err := Send(context.Background(), sendAPI, sub); err != nil {
		t.Fatalf("Send: %v", err)
	}
	compose.Finish(sub)

	if len(sendAPI.insertCalls) != 1 || len(sendAPI.replyCalls) != 1 {
		t.Fatalf("protocol call counts: %d inserts, %d replies", len(sendAPI.insertCalls), len(sendAPI.replyCalls))
	}

	// Backend pushes the transcript containing both sides.
	msgCh <- []*types.Message{
		msg("m1", "C1", types.RoleUser, "Hi", base.Add(time.Second)),
		msg("m2", "C1", types.RoleAssistant, "Hello! How can I help?", base.Add(2*time.Second)),
	}
	drainFeed(feed)

	got := feed.Messages()
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Role != types.RoleUser || got[0].Content != "Hi" {
		t.Fatalf("unexpected first message: %+v", got[0])
	}
	if got[1].Role != types.RoleAssistant || got[1].Content != "Hello! How can I help?" {
		t.Fatalf("unexpected second message: %+v", got[1])
	}
}

// Deleting the selected conversation clears the selection first; a
// late-arriving snapshot for the deleted conversation is dropped.
func TestDeleteSelectedConversationScenario(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	convAPI := &fakeConversationAPI{}

	sessions := NewSessionFeed(convAPI)
	selector := NewConversationSelector()
	feed := NewMessageFeed()
	compose := NewComposeController()

	selector.Select("C1")
	feed.SetConversation("C1")
	compose.SetConversation("C1")
	lateCh := make(chan []*types.Message, 1)
	feed.SetStream("C1", lateCh, func() {})

	// Selection is cleared before the delete request goes out.
	if !selector.HandleDeleted("C1") {
		t.Fatalf("HandleDeleted did not clear the active selection")
	}
	feed.SetConversation(selector.Active())
	compose.SetConversation(selector.Active())
	if err := sessions.Remove(context.Background(), "C1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	lateCh <- []*types.Message{msg("m9", "C1", types.RoleUser, "late", base)}
	drainFeed(feed)

	if feed.Active() {
		t.Fatalf("feed still active after deletion")
	}
	if len(feed.Messages()) != 0 {
		t.Fatalf("late update for deleted conversation was processed")
	}
}
