package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"parley/internal/types"
)

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "loading..."
	}

	m.refreshTranscript()

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.input.View(),
		m.statusLine(),
	)
	if m.sidebarHidden {
		return lipgloss.JoinVertical(lipgloss.Left, m.headerLine(), main)
	}

	sidebar := m.renderSidebar()
	divider := dividerStyle.Render(strings.TrimRight(strings.Repeat("│\n", max(1, m.height-1)), "\n"))
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, divider, main)
	return lipgloss.JoinVertical(lipgloss.Left, m.headerLine(), body)
}

func (m *Model) headerLine() string {
	return headerStyle.Render("parley")
}

func (m *Model) renderSidebar() string {
	width := m.sidebarWidth()
	conversations := m.visibleConversations()

	var b strings.Builder
	if m.sessions.Err() != nil {
		b.WriteString(errorStyle.Render(truncate("offline", width)))
		b.WriteString("\n")
	} else if m.sessions.Loading() && len(conversations) == 0 {
		b.WriteString(statusStyle.Render(truncate("loading...", width)))
		b.WriteString("\n")
	}
	if len(conversations) == 0 && m.sessions.Err() == nil && !m.sessions.Loading() {
		b.WriteString(helpStyle.Render(truncate("no conversations", width)))
		b.WriteString("\n")
	}
	for _, c := range conversations {
		line := truncate(c.DisplayTitle(), width)
		if c.ID == m.selector.Active() {
			line = selectedStyle.Render(padRight(line, width))
		} else {
			line = conversationStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

// refreshTranscript re-renders the viewport content only when the feed
// advanced or the layout changed.
func (m *Model) refreshTranscript() {
	if m.renderedVersion == m.transcriptVersion && m.renderedVersion >= 0 {
		return
	}
	m.viewport.SetContent(m.renderTranscriptContent())
	if m.follow {
		m.viewport.GotoBottom()
	}
	m.renderedVersion = m.transcriptVersion
}

func (m *Model) renderTranscriptContent() string {
	if !m.transcript.Active() {
		return helpStyle.Render("Select a conversation, or press ctrl+n to start one.")
	}
	if err := m.transcript.Err(); err != nil {
		return errorStyle.Render("transcript unavailable: " + err.Error())
	}
	if m.transcript.Loading() {
		return statusStyle.Render("loading messages...")
	}

	messages := m.transcript.Messages()
	if len(messages) == 0 && !m.compose.Sending() {
		return emptyTranscriptText
	}

	width := m.transcriptWidth()
	bubbleWidth := max(10, width-4)

	var parts []string
	for _, msg := range messages {
		parts = append(parts, m.renderBubble(msg, bubbleWidth))
	}
	if m.compose.Sending() {
		parts = append(parts, pendingStatusStyle.Render(m.loader.View()+" assistant is replying"))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderBubble(msg *types.Message, width int) string {
	meta := timestampStyle.Render(fmt.Sprintf("%s · %s", roleLabel(msg.Role), msg.CreatedAt.Local().Format("15:04")))

	var body string
	if m.markdown {
		text := msg.Content
		if msg.Role == types.RoleUser {
			text = escapeMarkdown(text)
		}
		body = renderMarkdown(text, width-2*chatBubblePaddingHorizontal-2)
	} else {
		body = strings.TrimRight(msg.Content, "\n")
	}

	style := botBubbleStyle
	if msg.Role == types.RoleUser {
		style = userBubbleStyle
	}
	return meta + "\n" + style.MaxWidth(width).Render(body)
}

func roleLabel(role types.Role) string {
	switch role {
	case types.RoleUser:
		return "you"
	case types.RoleAssistant:
		return "assistant"
	default:
		return string(role)
	}
}

func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

func padRight(text string, width int) string {
	if pad := width - len([]rune(text)); pad > 0 {
		return text + strings.Repeat(" ", pad)
	}
	return text
}
