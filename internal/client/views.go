package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/quorum-chat/quorum/internal/models"
)

var (
	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			PaddingRight(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	pinnedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	unreadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	statusStyles = map[Status]lipgloss.Style{
		StatusConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusReconnecting: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		StatusError:        lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		StatusFailed:       lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
)

// View implements tea.Model
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	sidebar := a.renderSidebar()
	chat := a.renderChat()
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chat)
	return lipgloss.JoinVertical(lipgloss.Left, main, a.renderStatusBar())
}

// renderSidebar renders the conversation list with pin and unread markers
func (a *App) renderSidebar() string {
	var b strings.Builder

	if a.focus == FocusFilter || a.filter.Value() != "" {
		b.WriteString(a.filter.View())
		b.WriteString("\n\n")
	}

	selected := a.session.Selection().ConversationID()
	for i, c := range a.conversations {
		line := c.Participant.GetDisplayName()
		if line == "" {
			line = c.ID.String()[:8]
		}
		if c.Pinned {
			line = pinnedStyle.Render("* ") + line
		} else {
			line = "  " + line
		}
		if c.HasUnread() {
			line += unreadStyle.Render(fmt.Sprintf(" (%d)", c.UnreadCount))
		}
		if c.Muted {
			line += timestampStyle.Render(" [muted]")
		}
		if c.ID == selected {
			line += " <"
		}
		if i == a.cursor && a.focus == FocusList {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(a.conversations) == 0 {
		b.WriteString(timestampStyle.Render("No conversations"))
	}

	width := a.width / 4
	if width < 24 {
		width = 24
	}
	return sidebarStyle.Width(width).Height(a.height - 2).Render(b.String())
}

// renderChat renders the active message list and the input line
func (a *App) renderChat() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		a.chatViewport.View(),
		a.input.View(),
	)
}

// updateChatContent rebuilds the chat viewport from the message snapshot
func (a *App) updateChatContent() {
	var b strings.Builder
	for _, m := range a.messages {
		b.WriteString(renderMessage(&m))
		b.WriteString("\n")
	}
	a.chatViewport.SetContent(b.String())
}

// renderMessage formats one message line
func renderMessage(m *models.Message) string {
	ts := timestampStyle.Render(m.Timestamp.Format("15:04"))
	sender := senderStyle.Render(m.SenderID.String()[:8])
	line := fmt.Sprintf("%s %s  %s", ts, sender, m.Content)
	if m.Pending {
		return pendingStyle.Render(line + " (sending...)")
	}
	return line
}

// renderStatusBar renders connection status, queue badge and notices
func (a *App) renderStatusBar() string {
	status := a.status.String()
	if style, ok := statusStyles[a.status]; ok {
		status = style.Render(status)
	}

	parts := []string{status}
	if open := len(a.session.QueueItems()); open > 0 {
		parts = append(parts, unreadStyle.Render(fmt.Sprintf("queue: %d", open)))
	}
	if a.sendError != "" {
		parts = append(parts, unreadStyle.Render("send failed: "+a.sendError))
	}
	if a.notice != "" {
		parts = append(parts, a.notice)
	}
	return strings.Join(parts, "  |  ")
}
