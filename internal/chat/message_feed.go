package chat

import (
	"sort"
	"strings"

	"parley/internal/types"
)

// MessageFeed holds the live transcript of one conversation, oldest
// first. Subscriptions are established asynchronously, so every stream
// hand-off carries the conversation id it was opened for; results for a
// conversation that is no longer current are dropped, never merged.
type MessageFeed struct {
	conversationID string

	snapshots <-chan []*types.Message
	cancel    func()
	messages  []*types.Message
	loaded    bool
	err       error
}

func NewMessageFeed() *MessageFeed {
	return &MessageFeed{}
}

// SetConversation retargets the feed. The prior subscription is torn
// down and all state cleared; an empty id leaves the feed inactive.
func (f *MessageFeed) SetConversation(id string) bool {
	id = strings.TrimSpace(id)
	if id == f.conversationID {
		return false
	}
	f.teardown()
	f.conversationID = id
	return true
}

func (f *MessageFeed) ConversationID() string {
	return f.conversationID
}

func (f *MessageFeed) Active() bool {
	return f.conversationID != ""
}

// SetStream attaches the stream opened for conversationID. Stale
// hand-offs (the feed moved on while the subscribe was in flight) are
// cancelled and ignored.
func (f *MessageFeed) SetStream(conversationID string, ch <-chan []*types.Message, cancel func()) bool {
	if conversationID != f.conversationID || f.conversationID == "" {
		if cancel != nil {
			cancel()
		}
		return false
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.snapshots = ch
	f.cancel = cancel
	f.err = nil
	return true
}

// Fail marks the feed unavailable, unless the failure belongs to a
// conversation that is no longer current.
func (f *MessageFeed) Fail(conversationID string, err error) bool {
	if conversationID != f.conversationID || f.conversationID == "" {
		return false
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.snapshots = nil
	f.cancel = nil
	f.err = err
	return true
}

func (f *MessageFeed) ConsumeTick() (changed bool, closed bool) {
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

func (f *MessageFeed) apply(snapshot []*types.Message) {
	messages := make([]*types.Message, 0, len(snapshot))
	for _, m := range snapshot {
		if m == nil || m.ID == "" {
			continue
		}
		if m.ChatID != "" && m.ChatID != f.conversationID {
			continue
		}
		messages = append(messages, m)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID < messages[j].ID
	})
	f.messages = messages
	f.loaded = true
}

func (f *MessageFeed) Messages() []*types.Message {
	return f.messages
}

// Loading is true while the feed is active but no snapshot has arrived
// yet. An empty transcript after the first snapshot is not loading.
func (f *MessageFeed) Loading() bool {
	return f.Active() && !f.loaded && f.err == nil
}

func (f *MessageFeed) Err() error {
	return f.err
}

func (f *MessageFeed) teardown() {
	if f.cancel != nil {
		f.cancel()
	}
	f.conversationID = ""
	f.snapshots = nil
	f.cancel = nil
	f.messages = nil
	f.loaded = false
	f.err = nil
}
