package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"parley/internal/types"
)

var (
	bucketAppState      = []byte("app_state")
	bucketConversations = []byte("conversations")
	keyAppState         = []byte("state")
)

type bboltRepository struct {
	db            *bolt.DB
	appState      AppStateStore
	conversations ConversationCacheStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:            db,
		appState:      &bboltAppStateStore{db: db},
		conversations: &bboltConversationCacheStore{db: db},
	}, nil
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketAppState); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketConversations); err != nil {
			return err
		}
		return nil
	})
}

func (r *bboltRepository) AppState() AppStateStore {
	return r.appState
}

func (r *bboltRepository) Conversations() ConversationCacheStore {
	return r.conversations
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type bboltAppStateStore struct {
	db *bolt.DB
}

func (s *bboltAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	state := &types.AppState{}
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAppState).Get(keyAppState)
		if len(data) == 0 {
			return nil
		}
		return json.Unmarshal(data, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *bboltAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if state == nil {
		return errors.New("state is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAppState).Put(keyAppState, data)
	})
}

type bboltConversationCacheStore struct {
	db *bolt.DB
}

func (s *bboltConversationCacheStore) List(ctx context.Context) ([]*types.Conversation, error) {
	out := []*types.Conversation{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversations).ForEach(func(_, data []byte) error {
			var c types.Conversation
			if err := json.Unmarshal(data, &c); err != nil {
				return err
			}
			if c.ID != "" {
				out = append(out, &c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortConversationsNewestFirst(out)
	return out, nil
}

func (s *bboltConversationCacheStore) Replace(ctx context.Context, conversations []*types.Conversation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketConversations); err != nil {
			return err
		}
		bucket, err := tx.CreateBucket(bucketConversations)
		if err != nil {
			return err
		}
		for _, c := range conversations {
			if c == nil || c.ID == "" {
				continue
			}
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(c.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}
