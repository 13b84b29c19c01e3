package store

import (
	"errors"
	"strings"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

// Repository bundles the client-side persistence: the UI state that
// survives restarts and the last-known conversation list used to paint
// before the live feed connects.
type Repository interface {
	AppState() AppStateStore
	Conversations() ConversationCacheStore
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	AppStatePath      string
	ConversationsPath string
	DBPath            string
}

type fileRepository struct {
	appState      AppStateStore
	conversations ConversationCacheStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	return &fileRepository{
		appState:      NewFileAppStateStore(paths.AppStatePath),
		conversations: NewFileConversationCacheStore(paths.ConversationsPath),
	}
}

func (r *fileRepository) AppState() AppStateStore {
	return r.appState
}

func (r *fileRepository) Conversations() ConversationCacheStore {
	return r.conversations
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func OpenRepository(paths RepositoryPaths, backend string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendFile:
		return NewFileRepository(paths), nil
	case RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltRepository(paths.DBPath)
	default:
		return nil, errors.New("unknown repository backend: " + backend)
	}
}
