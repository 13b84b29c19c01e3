package app

import (
	"time"

	"parley/internal/chat"
	"parley/internal/types"
)

type tickMsg time.Time

type conversationsStreamMsg struct {
	ch     <-chan []*types.Conversation
	cancel func()
	err    error
}

type messagesStreamMsg struct {
	conversationID string
	ch             <-chan []*types.Message
	cancel         func()
	err            error
}

type conversationCreatedMsg struct {
	conversation *types.Conversation
	err          error
}

type conversationDeletedMsg struct {
	id  string
	err error
}

type sendFinishedMsg struct {
	sub chat.Submission
	err error
}

type appStateLoadedMsg struct {
	state *types.AppState
	err   error
}

type appStateSavedMsg struct {
	err error
}

type cachedConversationsMsg struct {
	conversations []*types.Conversation
	err           error
}

type clipboardResultMsg struct {
	err error
}
