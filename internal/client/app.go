package client

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/quorum-chat/quorum/internal/models"
)

// FocusArea represents which area of the UI has focus
type FocusArea int

const (
	FocusList FocusArea = iota
	FocusInput
	FocusFilter
)

// App is the Bubble Tea model. It is a thin consumer of session snapshots:
// all state lives in the session, the app only renders and forwards actions.
type App struct {
	session *Session

	// Window dimensions
	width  int
	height int

	// Focus state
	focus FocusArea

	// Conversation list
	conversations []models.Conversation
	cursor        int

	// Active message view
	messages     []models.Message
	chatViewport viewport.Model

	// Inputs
	input  textinput.Model
	filter textinput.Model

	// Status bar
	status    Status
	notice    string
	sendError string
}

// NewApp creates the application model over an opened session
func NewApp(session *Session) *App {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 2000

	filter := textinput.New()
	filter.Placeholder = "Filter conversations..."

	return &App{
		session: session,
		focus:   FocusList,
		input:   input,
		filter:  filter,
		status:  session.Status(),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := a.handleKeyPress(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resizeViewport()

	case StatusChangedMsg:
		a.status = msg.Status

	case ConversationsChangedMsg, SelectionChangedMsg:
		a.reloadConversations()

	case ActiveMessagesChangedMsg:
		a.messages = a.session.ActiveMessages()
		a.updateChatContent()
		a.chatViewport.GotoBottom()

	case QueueChangedMsg:
		a.reloadConversations()

	case SendFailedMsg:
		a.sendError = msg.Error

	case ModerationNoticeMsg:
		a.notice = msg.Kind
		if msg.Detail != "" {
			a.notice += ": " + msg.Detail
		}
	}

	switch a.focus {
	case FocusInput:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		cmds = append(cmds, cmd)
	case FocusFilter:
		var cmd tea.Cmd
		a.filter, cmd = a.filter.Update(msg)
		cmds = append(cmds, cmd)
		a.reloadConversations()
	}

	return a, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input
func (a *App) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "ctrl+q":
		a.session.Close()
		return tea.Quit

	case "tab":
		a.cycleFocus()

	case "/":
		if a.focus == FocusList {
			a.focus = FocusFilter
			a.filter.Focus()
			a.input.Blur()
			return nil
		}

	case "esc":
		if a.focus == FocusFilter {
			a.filter.Reset()
			a.reloadConversations()
		}
		a.focus = FocusList
		a.input.Blur()
		a.filter.Blur()

	case "up", "k":
		if a.focus == FocusList && a.cursor > 0 {
			a.cursor--
		}

	case "down", "j":
		if a.focus == FocusList && a.cursor < len(a.conversations)-1 {
			a.cursor++
		}

	case "pgup":
		a.chatViewport.HalfViewUp()

	case "pgdown":
		a.chatViewport.HalfViewDown()

	case "enter":
		switch a.focus {
		case FocusList:
			if c, ok := a.cursorConversation(); ok {
				a.session.SelectConversation(c.ID)
				a.focus = FocusInput
				a.input.Focus()
			}
		case FocusInput:
			return a.handleSend()
		case FocusFilter:
			a.focus = FocusList
			a.filter.Blur()
		}

	case "ctrl+p":
		if c, ok := a.cursorConversation(); ok {
			if c.Pinned {
				a.session.UnpinConversation(c.ID)
			} else {
				a.session.PinConversation(c.ID)
			}
		}

	case "m":
		if a.focus == FocusList {
			if c, ok := a.cursorConversation(); ok {
				if c.Muted {
					a.session.UnmuteConversation(c.ID)
				} else {
					a.session.MuteConversation(c.ID)
				}
			}
		}

	case "ctrl+a":
		if a.focus == FocusList {
			if c, ok := a.cursorConversation(); ok {
				a.session.ArchiveConversation(c.ID)
			}
		}

	case "ctrl+d":
		if a.focus == FocusList {
			if c, ok := a.cursorConversation(); ok {
				a.session.RemoveConversation(c.ID)
			}
		}
	}

	return nil
}

// cursorConversation returns the conversation under the list cursor
func (a *App) cursorConversation() (models.Conversation, bool) {
	if a.cursor < 0 || a.cursor >= len(a.conversations) {
		return models.Conversation{}, false
	}
	return a.conversations[a.cursor], true
}

// handleSend sends the input content to the active conversation
func (a *App) handleSend() tea.Cmd {
	content := strings.TrimSpace(a.input.Value())
	if content == "" {
		return nil
	}
	a.input.Reset()
	a.sendError = ""

	session := a.session
	return func() tea.Msg {
		if err := session.SendMessage(content); err != nil {
			return SendFailedMsg{Error: err.Error()}
		}
		return nil
	}
}

// cycleFocus moves focus between the list and the input
func (a *App) cycleFocus() {
	switch a.focus {
	case FocusList:
		a.focus = FocusInput
		a.input.Focus()
		a.filter.Blur()
	default:
		a.focus = FocusList
		a.input.Blur()
		a.filter.Blur()
	}
}

// reloadConversations refreshes the list snapshot, honoring the filter
func (a *App) reloadConversations() {
	query := strings.TrimSpace(a.filter.Value())
	if query == "" {
		a.conversations = a.session.Conversations()
	} else {
		a.conversations = a.session.FilterConversations(query)
	}
	if a.cursor >= len(a.conversations) {
		a.cursor = len(a.conversations) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// resizeViewport updates viewport dimensions based on window size
func (a *App) resizeViewport() {
	sidebarWidth := a.width / 4
	if sidebarWidth < 24 {
		sidebarWidth = 24
	}
	chatWidth := a.width - sidebarWidth - 2
	chatHeight := a.height - 5

	a.chatViewport = viewport.New(chatWidth, chatHeight)
	a.input.Width = chatWidth - 4
	a.updateChatContent()
}

// SendFailedMsg reports a rejected send for user-visible feedback
type SendFailedMsg struct {
	Error string
}
