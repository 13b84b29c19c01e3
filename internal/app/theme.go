package app

import "github.com/charmbracelet/lipgloss"

const (
	chatBubblePaddingVertical   = 0
	chatBubblePaddingHorizontal = 1
)

var (
	headerStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	conversationStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	dividerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	timestampStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	userBubbleStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	botBubbleStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	pendingStatusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	emptyTranscriptText = helpStyle.Render("No messages yet. Say hello.")
)
