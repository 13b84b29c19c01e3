package chat

import (
	"context"
	"fmt"
	"sort"

	"parley/internal/types"
)

const maxSnapshotsPerTick = 16

// SessionFeed holds the live conversation list, newest first. The
// backend pushes full snapshots; the feed keeps the latest one applied.
type SessionFeed struct {
	api ConversationAPI

	snapshots     <-chan []*types.Conversation
	cancel        func()
	conversations []*types.Conversation
	loaded        bool
	err           error
}

func NewSessionFeed(api ConversationAPI) *SessionFeed {
	return &SessionFeed{api: api}
}

// SetStream attaches a snapshot stream, replacing any prior one.
func (f *SessionFeed) SetStream(ch <-chan []*types.Conversation, cancel func()) {
	if f.cancel != nil {
		f.cancel()
	}
	f.snapshots = ch
	f.cancel = cancel
	f.err = nil
}

// Fail puts the feed into its terminal unavailable state.
func (f *SessionFeed) Fail(err error) {
	if f.cancel != nil {
		f.cancel()
	}
	f.snapshots = nil
	f.cancel = nil
	f.err = fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
}

// ConsumeTick drains pending snapshots and applies the newest. closed
// reports that the stream ended; the feed is unavailable from then on.
func (f *SessionFeed) ConsumeTick() (changed bool, closed bool) {
	if f.snapshots == nil {
		return false, false
	}
	for i := 0; i < maxSnapshotsPerTick; i++ {
		select {
		case snapshot, ok := <-f.snapshots:
			if !ok {
				f.snapshots = nil
				f.cancel = nil
				f.err = ErrFeedUnavailable
				return changed, true
			}
			f.apply(snapshot)
			changed = true
		default:
			return changed, false
		}
	}
	return changed, false
}

func (f *SessionFeed) apply(snapshot []*types.Conversation) {
	conversations := make([]*types.Conversation, 0, len(snapshot))
	for _, c := range snapshot {
		if c == nil || c.ID == "" {
			continue
		}
		conversations = append(conversations, c)
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		if !conversations[i].CreatedAt.Equal(conversations[j].CreatedAt) {
			return conversations[i].CreatedAt.After(conversations[j].CreatedAt)
		}
		return conversations[i].ID > conversations[j].ID
	})
	f.conversations = conversations
	f.loaded = true
}

func (f *SessionFeed) Conversations() []*types.Conversation {
	return f.conversations
}

func (f *SessionFeed) Loading() bool {
	return !f.loaded && f.err == nil
}

func (f *SessionFeed) Err() error {
	return f.err
}

// Create asks for a new empty conversation. The record shows up in the
// feed through the next pushed snapshot; no refetch is needed.
func (f *SessionFeed) Create(ctx context.Context) (*types.Conversation, error) {
	return f.api.CreateConversation(ctx)
}

// Remove deletes a conversation. Clearing the active selection when the
// removed conversation is selected is the selector's job and must
// happen before this call.
func (f *SessionFeed) Remove(ctx context.Context, id string) error {
	return f.api.DeleteConversation(ctx, id)
}

func (f *SessionFeed) Reset() {
	if f.cancel != nil {
		f.cancel()
	}
	f.snapshots = nil
	f.cancel = nil
	f.conversations = nil
	f.loaded = false
	f.err = nil
}
