package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"parley/internal/chat"
	"parley/internal/store"
	"parley/internal/types"
)

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func openConversationsStreamCmd(api StreamAPI) tea.Cmd {
	return func() tea.Msg {
		ch, cancel, err := api.SubscribeConversations(context.Background())
		return conversationsStreamMsg{ch: ch, cancel: cancel, err: err}
	}
}

func openMessagesStreamCmd(api StreamAPI, conversationID string) tea.Cmd {
	return func() tea.Msg {
		ch, cancel, err := api.SubscribeMessages(context.Background(), conversationID)
		return messagesStreamMsg{conversationID: conversationID, ch: ch, cancel: cancel, err: err}
	}
}

func createConversationCmd(feed *chat.SessionFeed) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		conversation, err := feed.Create(ctx)
		return conversationCreatedMsg{conversation: conversation, err: err}
	}
}

func deleteConversationCmd(feed *chat.SessionFeed, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		err := feed.Remove(ctx, id)
		return conversationDeletedMsg{id: id, err: err}
	}
}

func sendCmd(api SendAPI, sub chat.Submission) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _, err := chat.Send(ctx, api, sub)
		return sendFinishedMsg{sub: sub, err: err}
	}
}

func loadAppStateCmd(repo store.Repository) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		state, err := repo.AppState().Load(ctx)
		return appStateLoadedMsg{state: state, err: err}
	}
}

func saveAppStateCmd(repo store.Repository, state types.AppState) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := repo.AppState().Save(ctx, &state)
		return appStateSavedMsg{err: err}
	}
}

func loadCachedConversationsCmd(repo store.Repository) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		conversations, err := repo.Conversations().List(ctx)
		return cachedConversationsMsg{conversations: conversations, err: err}
	}
}

func saveCachedConversationsCmd(repo store.Repository, conversations []*types.Conversation) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = repo.Conversations().Replace(ctx, conversations)
		return nil
	}
}

func copyToClipboardCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardResultMsg{err: copyTextToClipboard(text)}
	}
}
