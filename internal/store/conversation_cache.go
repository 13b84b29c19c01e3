package store

import (
	"context"
	"sort"
	"sync"

	"parley/internal/types"
)

const conversationCacheSchemaVersion = 1

// ConversationCacheStore keeps the last-known conversation summaries so
// listings can paint before the live feed connects, and so `ls` works
// while the backend is unreachable.
type ConversationCacheStore interface {
	List(ctx context.Context) ([]*types.Conversation, error)
	Replace(ctx context.Context, conversations []*types.Conversation) error
}

type FileConversationCacheStore struct {
	path string
	mu   sync.Mutex
}

type conversationCacheFile struct {
	Version       int                   `json:"version"`
	Conversations []*types.Conversation `json:"conversations"`
}

func NewFileConversationCacheStore(path string) *FileConversationCacheStore {
	return &FileConversationCacheStore{path: path}
}

func (s *FileConversationCacheStore) List(ctx context.Context) ([]*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var file conversationCacheFile
	if found, err := loadJSONFile(s.path, &file); err != nil {
		return nil, err
	} else if !found {
		return []*types.Conversation{}, nil
	}
	out := make([]*types.Conversation, 0, len(file.Conversations))
	for _, c := range file.Conversations {
		if c == nil || c.ID == "" {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	sortConversationsNewestFirst(out)
	return out, nil
}

func (s *FileConversationCacheStore) Replace(ctx context.Context, conversations []*types.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := conversationCacheFile{Version: conversationCacheSchemaVersion}
	for _, c := range conversations {
		if c == nil || c.ID == "" {
			continue
		}
		clone := *c
		file.Conversations = append(file.Conversations, &clone)
	}
	return storeJSONFile(s.path, &file)
}

func sortConversationsNewestFirst(conversations []*types.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		if !conversations[i].CreatedAt.Equal(conversations[j].CreatedAt) {
			return conversations[i].CreatedAt.After(conversations[j].CreatedAt)
		}
		return conversations[i].ID > conversations[j].ID
	})
}
