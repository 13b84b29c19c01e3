package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/internal/types"
)

type fakeConversationAPI struct {
	created   []*types.Conversation
	deleted   []string
	createErr error
	deleteErr error
	nextID    string
}

func (f *fakeConversationAPI) CreateConversation(ctx context.Context) (*types.Conversation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	c := &types.Conversation{ID: f.nextID, CreatedAt: time.Now()}
	f.created = append(f.created, c)
	return c, nil
}

func (f *fakeConversationAPI) DeleteConversation(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func conv(id string, at time.Time, title string) *types.Conversation {
	return &types.Conversation{ID: id, CreatedAt: at, Title: title}
}

func drainSessions(f *SessionFeed) {
	for {
		changed, closed := f.ConsumeTick()
		if !changed && !closed {
			return
		}
	}
}

func TestSessionFeedNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ch := make(chan []*types.Conversation, 1)

	f := NewSessionFeed(&fakeConversationAPI{})
	f.SetStream(ch, func() {})
	if !f.Loading() {
		t.Fatalf("expected loading before first snapshot")
	}

	ch <- []*types.Conversation{
		conv("c1", base, "oldest"),
		conv("c3", base.Add(2*time.Hour), ""),
		conv("c2", base.Add(time.Hour), "middle"),
	}
	drainSessions(f)

	got := f.Conversations()
	if len(got) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(got))
	}
	for i, want := range []string{"c3", "c2", "c1"} {
		if got[i].ID != want {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, want)
		}
	}
	if got[0].DisplayTitle() != "New Conversation" {
		t.Fatalf("untitled fallback missing: %q", got[0].DisplayTitle())
	}
}

func TestSessionFeedLatestSnapshotWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ch := make(chan []*types.Conversation, 4)

	f := NewSessionFeed(&fakeConversationAPI{})
	f.SetStream(ch, func() {})

	ch <- []*types.Conversation{conv("c1", base, "")}
	ch <- []*types.Conversation{conv("c1", base, ""), conv("c2", base.Add(time.Minute), "")}
	drainSessions(f)

	if len(f.Conversations()) != 2 {
		t.Fatalf("latest snapshot not applied: %d conversations", len(f.Conversations()))
	}
}

func TestSessionFeedClosedStreamIsUnavailable(t *testing.T) {
	ch := make(chan []*types.Conversation)
	f := NewSessionFeed(&fakeConversationAPI{})
	f.SetStream(ch, func() {})

	close(ch)
	_, closed := f.ConsumeTick()
	if !closed {
		t.Fatalf("closed stream not reported")
	}
	if !errors.Is(f.Err(), ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", f.Err())
	}
}

func TestSessionFeedFailIsDistinctFromEmpty(t *testing.T) {
	f := NewSessionFeed(&fakeConversationAPI{})
	f.Fail(errors.New("connect refused"))

	if !errors.Is(f.Err(), ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", f.Err())
	}
	if f.Loading() {
		t.Fatalf("failed feed reports loading")
	}

	empty := NewSessionFeed(&fakeConversationAPI{})
	ch := make(chan []*types.Conversation, 1)
	empty.SetStream(ch, func() {})
	ch <- nil
	drainSessions(empty)
	if empty.Err() != nil {
		t.Fatalf("empty list surfaced as error: %v", empty.Err())
	}
}

func TestSessionFeedCreateAndRemoveDelegate(t *testing.T) {
	api := &fakeConversationAPI{nextID: "c9"}
	f := NewSessionFeed(api)

	created, err := f.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "c9" {
		t.Fatalf("unexpected id: %s", created.ID)
	}

	if err := f.Remove(context.Background(), "c9"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "c9" {
		t.Fatalf("delete not issued: %+v", api.deleted)
	}
}

func TestSessionFeedResetCancelsStream(t *testing.T) {
	cancelled := 0
	f := NewSessionFeed(&fakeConversationAPI{})
	f.SetStream(make(chan []*types.Conversation), func() { cancelled++ })
	f.Reset()

	if cancelled != 1 {
		t.Fatalf("stream cancelled %d times, want 1", cancelled)
	}
	if !f.Loading() {
		t.Fatalf("reset feed should be back to loading")
	}
}
