package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/internal/chat"
	"parley/internal/client"
	"parley/internal/store"
	"parley/internal/types"
)

const (
	tickInterval     = 100 * time.Millisecond
	minListWidth     = 24
	maxListWidth     = 40
	minViewportWidth = 20
	minContentHeight = 6
)

type Model struct {
	sendAPI SendAPI
	streams StreamAPI
	repo    store.Repository

	sessions   *chat.SessionFeed
	transcript *chat.MessageFeed
	compose    *chat.ComposeController
	selector   *chat.ConversationSelector

	input    *ChatInput
	viewport viewport.Model
	loader   spinner.Model

	width         int
	height        int
	status        string
	sidebarHidden bool
	markdown      bool
	follow        bool

	// cached holds the last persisted conversation list, shown until the
	// first live snapshot lands.
	cached []*types.Conversation

	transcriptVersion int
	renderedVersion   int
}

func NewModel(c *client.Client, repo store.Repository, markdown bool) Model {
	api := NewClientAPI(c)
	return newModel(api, api, api, repo, markdown)
}

func newModel(conversations ConversationAPI, sends SendAPI, streams StreamAPI, repo store.Repository, markdown bool) Model {
	vp := viewport.New(minViewportWidth, minContentHeight-1)
	loader := spinner.New()
	loader.Spinner = spinner.Line
	loader.Style = lipgloss.NewStyle()

	return Model{
		sendAPI:    sends,
		streams:    streams,
		repo:       repo,
		sessions:   chat.NewSessionFeed(conversations),
		transcript: chat.NewMessageFeed(),
		compose:    chat.NewComposeController(),
		selector:   chat.NewConversationSelector(),
		input:      NewChatInput(minViewportWidth),
		viewport:   vp,
		loader:     loader,
		markdown:   markdown,
		follow:     true,
	}
}

func Run(c *client.Client, repo store.Repository, markdown bool) error {
	model := NewModel(c, repo, markdown)
	p := tea.NewProgram(&model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	m.input.Focus()
	return tea.Batch(
		loadAppStateCmd(m.repo),
		loadCachedConversationsCmd(m.repo),
		openConversationsStreamCmd(m.streams),
		tickCmd(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		cmds := m.consumeFeedTicks()
		if m.loading() {
			m.loader, _ = m.loader.Update(spinner.TickMsg{Time: time.Time(msg), ID: m.loader.ID()})
		}
		cmds = append(cmds, tickCmd())
		return m, tea.Batch(cmds...)

	case conversationsStreamMsg:
		if msg.err != nil {
			m.sessions.Fail(msg.err)
			m.status = "conversations unavailable: " + msg.err.Error()
			return m, nil
		}
		m.sessions.SetStream(msg.ch, msg.cancel)
		return m, nil

	case messagesStreamMsg:
		if msg.err != nil {
			if m.transcript.Fail(msg.conversationID, msg.err) {
				m.status = "transcript unavailable: " + msg.err.Error()
			}
			return m, nil
		}
		m.transcript.SetStream(msg.conversationID, msg.ch, msg.cancel)
		return m, nil

	case conversationCreatedMsg:
		if msg.err != nil {
			m.status = "new conversation failed: " + msg.err.Error()
			return m, nil
		}
		if msg.conversation == nil {
			return m, nil
		}
		m.status = ""
		return m, m.selectConversation(msg.conversation.ID)

	case conversationDeletedMsg:
		if msg.err != nil {
			m.status = "delete failed: " + msg.err.Error()
		}
		return m, nil

	case sendFinishedMsg:
		m.transcriptVersion++
		if msg.err != nil {
			m.compose.Fail(msg.sub, msg.err)
			if msg.sub.ConversationID == m.compose.ConversationID() {
				m.input.SetValue(m.compose.Draft())
				m.status = msg.err.Error()
			}
			return m, nil
		}
		m.compose.Finish(msg.sub)
		return m, nil

	case appStateLoadedMsg:
		if msg.err != nil || msg.state == nil {
			return m, nil
		}
		m.sidebarHidden = msg.state.SidebarHidden
		if msg.state.ActiveConversationID != "" && !m.selector.Selected() {
			return m, m.selectConversation(msg.state.ActiveConversationID)
		}
		return m, nil

	case appStateSavedMsg:
		if msg.err != nil {
			m.status = "state save failed: " + msg.err.Error()
		}
		return m, nil

	case cachedConversationsMsg:
		if msg.err == nil {
			m.cached = msg.conversations
		}
		return m, nil

	case clipboardResultMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "copied reply"
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.sessions.Reset()
		m.transcript.SetConversation("")
		return m, tea.Quit

	case "enter":
		return m, m.submit()

	case "ctrl+n":
		return m, createConversationCmd(m.sessions)

	case "ctrl+d":
		return m, m.deleteActive()

	case "ctrl+b":
		m.sidebarHidden = !m.sidebarHidden
		m.resize(m.width, m.height)
		return m, m.saveState()

	case "ctrl+y":
		if text, ok := m.lastReply(); ok {
			return m, copyToClipboardCmd(text)
		}
		m.status = "nothing to copy"
		return m, nil

	case "up":
		return m, m.moveSelection(-1)

	case "down":
		return m, m.moveSelection(1)

	case "pgup", "pgdown":
		m.follow = false
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		if m.viewport.AtBottom() {
			m.follow = true
		}
		return m, cmd

	case "end":
		m.follow = true
		m.viewport.GotoBottom()
		return m, nil
	}

	cmd := m.input.Update(msg)
	m.compose.SetDraft(m.input.Value())
	return m, cmd
}

// submit runs the optimistic half of the send protocol: capture the
// draft, clear the input, dispatch the network half.
func (m *Model) submit() tea.Cmd {
	if m.compose.Sending() {
		return nil
	}
	sub, ok := m.compose.Begin()
	if !ok {
		return nil
	}
	m.input.Clear()
	m.status = ""
	m.transcriptVersion++
	return sendCmd(m.sendAPI, sub)
}

func (m *Model) deleteActive() tea.Cmd {
	id := m.selector.Active()
	if id == "" {
		return nil
	}
	m.selector.HandleDeleted(id)
	m.transcript.SetConversation("")
	m.compose.SetConversation("")
	m.input.Clear()
	return tea.Batch(deleteConversationCmd(m.sessions, id), m.saveState())
}

func (m *Model) moveSelection(delta int) tea.Cmd {
	conversations := m.visibleConversations()
	if len(conversations) == 0 {
		return nil
	}
	index := -1
	for i, c := range conversations {
		if c.ID == m.selector.Active() {
			index = i
			break
		}
	}
	index += delta
	if index < 0 {
		index = 0
	}
	if index >= len(conversations) {
		index = len(conversations) - 1
	}
	return m.selectConversation(conversations[index].ID)
}

// selectConversation points every controller at id and opens the
// transcript stream. An empty id clears the selection.
func (m *Model) selectConversation(id string) tea.Cmd {
	m.selector.Select(id)
	m.compose.SetConversation(id)
	changed := m.transcript.SetConversation(id)
	m.input.SetValue(m.compose.Draft())
	m.follow = true
	if changed {
		m.transcriptVersion++
	}

	cmds := []tea.Cmd{m.saveState()}
	if changed && id != "" {
		cmds = append(cmds, openMessagesStreamCmd(m.streams, id))
	}
	return tea.Batch(cmds...)
}

func (m *Model) consumeFeedTicks() []tea.Cmd {
	var cmds []tea.Cmd

	changed, closed := m.sessions.ConsumeTick()
	if changed {
		m.cached = nil
		cmds = append(cmds, saveCachedConversationsCmd(m.repo, m.sessions.Conversations()))
		if cmd := m.reconcileSelection(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if closed {
		m.status = "conversation feed closed"
	}

	changed, closed = m.transcript.ConsumeTick()
	if changed {
		m.transcriptVersion++
	}
	if closed && m.transcript.Active() {
		m.status = "transcript feed closed"
	}
	return cmds
}

// reconcileSelection clears a selection whose conversation vanished
// from the live list, which happens when it is deleted elsewhere.
func (m *Model) reconcileSelection() tea.Cmd {
	if !m.selector.Selected() {
		return nil
	}
	for _, c := range m.sessions.Conversations() {
		if c.ID == m.selector.Active() {
			return nil
		}
	}
	return m.selectConversation("")
}

func (m *Model) visibleConversations() []*types.Conversation {
	if m.sessions.Loading() && len(m.cached) > 0 {
		return m.cached
	}
	return m.sessions.Conversations()
}

func (m *Model) lastReply() (string, bool) {
	messages := m.transcript.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleAssistant {
			return messages[i].Content, true
		}
	}
	return "", false
}

func (m *Model) loading() bool {
	return m.sessions.Loading() || m.transcript.Loading() || m.compose.Sending()
}

func (m *Model) saveState() tea.Cmd {
	state := types.AppState{
		ActiveConversationID: m.selector.Active(),
		SidebarHidden:        m.sidebarHidden,
	}
	return saveAppStateCmd(m.repo, state)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	contentWidth := m.transcriptWidth()
	m.viewport.Width = contentWidth
	m.viewport.Height = max(1, height-4)
	m.input.Resize(contentWidth)
	m.renderedVersion = -1
}

func (m *Model) transcriptWidth() int {
	width := m.width
	if !m.sidebarHidden {
		width -= m.sidebarWidth() + 1
	}
	return max(minViewportWidth, width)
}

func (m *Model) sidebarWidth() int {
	if m.width <= 0 {
		return minListWidth
	}
	width := m.width / 4
	if width < minListWidth {
		width = minListWidth
	}
	if width > maxListWidth {
		width = maxListWidth
	}
	return width
}

func (m *Model) statusLine() string {
	if m.status != "" {
		return errorOrStatus(m.status)
	}
	if m.compose.Sending() {
		return pendingStatusStyle.Render(m.loader.View() + " waiting for reply")
	}
	if m.sessions.Loading() {
		return statusStyle.Render(m.loader.View() + " connecting")
	}
	return helpStyle.Render("enter send · ctrl+n new · ctrl+d delete · ctrl+y copy · ctrl+b sidebar · ctrl+c quit")
}

func errorOrStatus(status string) string {
	if strings.Contains(status, "failed") || strings.Contains(status, "unavailable") || strings.Contains(status, "closed") {
		return errorStyle.Render(status)
	}
	return statusStyle.Render(status)
}
