package client

import (
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/credentials"
	"github.com/quorum-chat/quorum/internal/models"
	"github.com/quorum-chat/quorum/internal/protocol"
	"github.com/quorum-chat/quorum/pkg/crypto"
)

// Backend is the REST collaborator consumed by the session. *API implements
// it; tests substitute a fake.
type Backend interface {
	Me() (*models.Participant, error)
	Conversations() ([]*models.Conversation, error)
	Messages(conversationID uuid.UUID) ([]*models.Message, error)
	PostMessage(conversationID uuid.UUID, content, nonce string) (*models.Message, error)
	MarkRead(conversationID uuid.UUID) error
	Servers() ([]*models.Server, error)
	Channels(serverID uuid.UUID) ([]*models.Channel, error)
	UpdateQueueItem(id uuid.UUID, status models.QueueStatus) (*models.QueueItem, error)
}

// Session owns one connection's worth of client state: the transport, the
// lifecycle machine, the dispatch registry and every store. It replaces any
// ambient singletons; open and close bound its lifetime explicitly.
type Session struct {
	transport Transport
	backend   Backend
	creds     *credentials.Store

	registry      *Registry
	lifecycle     *Lifecycle
	selection     *Selection
	conversations *ConversationStore
	messages      *MessageStream
	reads         *ReadTracker
	autoselect    *AutoSelector
	queue         *QueueStore

	prefs  *PrefsStore
	scope  *Scope
	events chan tea.Msg
}

// NewSession wires a session over the given collaborators
func NewSession(transport Transport, backend Backend, creds *credentials.Store) *Session {
	selection := NewSelection()
	conversations := NewConversationStore(selection)
	reads := NewReadTracker()

	s := &Session{
		transport:     transport,
		backend:       backend,
		creds:         creds,
		registry:      NewRegistry(transport),
		lifecycle:     NewLifecycle(),
		selection:     selection,
		conversations: conversations,
		messages:      NewMessageStream(conversations, reads),
		reads:         reads,
		autoselect:    NewAutoSelector(selection),
		queue:         NewQueueStore(),
		events:        make(chan tea.Msg, 256),
	}

	conversations.SetReadReporter(s.reportRead)
	s.messages.SetSender(uuid.Nil, backend.PostMessage)
	s.queue.SetUpdater(backend.UpdateQueueItem)
	s.lifecycle.SetOnConnected(s.refresh)
	s.lifecycle.SetOnChange(func(status Status) {
		s.emit(StatusChangedMsg{Status: status})
	})
	return s
}

// SetPreferences installs the local preference store. Pin and mute flags are
// re-applied to every full-list refresh, since the backend does not know
// about them.
func (s *Session) SetPreferences(prefs *PrefsStore) {
	s.prefs = prefs
}

// Events is the stream of notifications consumed by the presentation layer
func (s *Session) Events() <-chan tea.Msg {
	return s.events
}

// Open reads the credential and connects. An absent token means "do not
// connect": the session stays disconnected without error.
func (s *Session) Open() error {
	token, err := s.creds.Token()
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	if token == "" {
		return nil
	}

	if !s.lifecycle.BeginConnect() {
		return fmt.Errorf("session already open")
	}

	s.subscribe()
	log.Printf("Connecting with credential %s", crypto.Fingerprint(token))

	if err := s.transport.Connect(Credentials{Token: token}); err != nil {
		// The connection:error event has already moved the lifecycle; the
		// failure is surfaced as state, not re-thrown to the caller.
		log.Printf("Connect failed: %v", err)
	}
	return nil
}

// Close tears the session down: every subscription is disposed, the
// transport is closed and the status returns to disconnected.
func (s *Session) Close() {
	if s.scope != nil {
		s.scope.Close()
		s.scope = nil
	}
	s.transport.Close()
	s.lifecycle.CredentialsCleared()
}

// UpdateCredentials stores a new token and reconnects. This is the only way
// out of the terminal failed state.
func (s *Session) UpdateCredentials(token string) error {
	if err := s.creds.SetToken(token); err != nil {
		return err
	}
	s.Close()
	return s.Open()
}

// ClearCredentials removes the token and disconnects
func (s *Session) ClearCredentials() error {
	if err := s.creds.ClearToken(); err != nil {
		return err
	}
	s.Close()
	return nil
}

// subscribe installs every event handler inside one scope so teardown is
// structural, not conventional
func (s *Session) subscribe() {
	scope := s.registry.NewScope()

	for _, ev := range []protocol.EventType{
		protocol.EventConnectionSuccess,
		protocol.EventConnectionLost,
		protocol.EventConnectionError,
		protocol.EventConnectionReconnecting,
		protocol.EventConnectionFailed,
	} {
		scope.Subscribe(ev, s.lifecycle.HandleEvent)
	}

	scope.Subscribe(protocol.EventConversationsUpdated, s.handleConversationsUpdated)
	scope.Subscribe(protocol.EventMessagesUpdated, s.handleMessagesUpdated)
	scope.Subscribe(protocol.EventMessageReceived, s.handleMessageReceived)
	scope.Subscribe(protocol.EventQueueItemAssigned, s.handleQueueItemAssigned)
	scope.Subscribe(protocol.EventModerationEvent, s.handleModerationEvent)

	s.scope = scope
}

// refresh performs the initial full-list load. It runs exactly once per
// entry into connected; a reconnect during the fetch makes the results stale
// and they are discarded by the epoch check.
func (s *Session) refresh(epoch int) {
	go func() {
		if me, err := s.backend.Me(); err != nil {
			log.Printf("Identity fetch failed: %v", err)
		} else if me != nil && s.lifecycle.Epoch() == epoch {
			s.messages.SetSelf(me.ID)
		}

		conversations, err := s.backend.Conversations()
		if err != nil {
			log.Printf("Conversation refresh failed: %v", err)
		} else if s.lifecycle.Epoch() == epoch {
			s.conversations.ApplyFullList(conversations)
			s.applyPreferences()
			s.emit(ConversationsChangedMsg{})
		}

		servers, err := s.backend.Servers()
		if err != nil {
			log.Printf("Server refresh failed: %v", err)
			return
		}
		if len(servers) == 0 || s.lifecycle.Epoch() != epoch {
			return
		}

		// Channels are needed for the default-channel pick; fetch for the
		// selected server, or the first one the coordinator would choose.
		serverID := s.selection.ServerID()
		if serverID == uuid.Nil {
			serverID = servers[0].ID
		}
		channels, err := s.backend.Channels(serverID)
		if err != nil {
			log.Printf("Channel refresh failed: %v", err)
			channels = nil
		}
		if s.lifecycle.Epoch() != epoch {
			return
		}
		s.autoselect.Run(servers, channels)
		s.emit(SelectionChangedMsg{})
	}()
}

// applyPreferences restores local pin/mute flags over a fresh full list
func (s *Session) applyPreferences() {
	if s.prefs == nil {
		return
	}
	for _, id := range s.prefs.PinnedIDs() {
		s.conversations.Pin(id)
	}
	for _, id := range s.prefs.MutedIDs() {
		s.conversations.SetMuted(id, true)
	}
}

// reportRead is the fire-and-forget read report. Failure is swallowed: the
// local unread-cleared state stays authoritative either way. The read
// watermark only advances once the report completes.
func (s *Session) reportRead(conversationID uuid.UUID) {
	if err := s.backend.MarkRead(conversationID); err != nil {
		log.Printf("Read report for %s failed: %v", conversationID, err)
		return
	}
	s.reads.MarkReported(conversationID)
	s.messages.RefreshReadState()
	s.emit(ActiveMessagesChangedMsg{})
}

// --- Domain event handlers ---

func (s *Session) handleConversationsUpdated(ev *protocol.Event) {
	var payload protocol.ConversationsUpdatedPayload
	if err := protocol.Decode(ev, &payload); err != nil {
		log.Printf("Failed to parse %s payload: %v", ev.Type, err)
		return
	}

	switch {
	case payload.Patch != nil:
		s.conversations.ApplyPatch(payload.Patch)
	case payload.Conversations != nil:
		s.conversations.ApplyFullList(payload.Conversations)
		s.applyPreferences()
	}
	s.emit(ConversationsChangedMsg{})
}

func (s *Session) handleMessagesUpdated(ev *protocol.Event) {
	var payload protocol.MessagesUpdatedPayload
	if err := protocol.Decode(ev, &payload); err != nil {
		log.Printf("Failed to parse %s payload: %v", ev.Type, err)
		return
	}
	s.messages.LoadMessages(payload.ConversationID, payload.Messages)
	s.emit(ActiveMessagesChangedMsg{})
}

func (s *Session) handleMessageReceived(ev *protocol.Event) {
	var payload protocol.MessageReceivedPayload
	if err := protocol.Decode(ev, &payload); err != nil || payload.Message == nil {
		log.Printf("Failed to parse %s payload: %v", ev.Type, err)
		return
	}
	s.messages.AppendPushed(payload.Message)
	s.emit(ActiveMessagesChangedMsg{})
	s.emit(ConversationsChangedMsg{})
}

func (s *Session) handleQueueItemAssigned(ev *protocol.Event) {
	var payload protocol.QueueItemAssignedPayload
	if err := protocol.Decode(ev, &payload); err != nil || payload.Item == nil {
		log.Printf("Failed to parse %s payload: %v", ev.Type, err)
		return
	}
	s.queue.ApplyAssigned(payload.Item)
	s.emit(QueueChangedMsg{})
}

func (s *Session) handleModerationEvent(ev *protocol.Event) {
	var payload protocol.ModerationEventPayload
	if err := protocol.Decode(ev, &payload); err != nil {
		log.Printf("Failed to parse %s payload: %v", ev.Type, err)
		return
	}
	s.emit(ModerationNoticeMsg{Kind: payload.Kind, Detail: payload.Detail})
}

// --- User actions ---

// SelectConversation makes the conversation active: the unread badge clears
// immediately, the previous conversation's read state freezes, and the
// history load is issued against the current connection epoch.
func (s *Session) SelectConversation(id uuid.UUID) {
	if _, ok := s.conversations.Get(id); !ok {
		return
	}
	s.conversations.Select(id)
	s.reads.Activate(id)
	s.messages.SetActive(id)
	s.emit(ConversationsChangedMsg{})

	epoch := s.lifecycle.Epoch()
	go func() {
		messages, err := s.backend.Messages(id)
		if err != nil {
			log.Printf("Message load for %s failed: %v", id, err)
			return
		}
		if s.lifecycle.Epoch() != epoch {
			return
		}
		s.messages.LoadMessages(id, messages)
		s.emit(ActiveMessagesChangedMsg{})
	}()
}

// SendMessage sends to the active conversation. Failures propagate for
// user-visible feedback.
func (s *Session) SendMessage(content string) error {
	id := s.selection.ConversationID()
	if id == uuid.Nil {
		return fmt.Errorf("no conversation selected")
	}
	err := s.messages.Send(id, content)
	s.emit(ActiveMessagesChangedMsg{})
	return err
}

// PinConversation pins, keeping it at the top of the list
func (s *Session) PinConversation(id uuid.UUID) {
	s.conversations.Pin(id)
	s.savePinned(id, true)
	s.emit(ConversationsChangedMsg{})
}

// UnpinConversation clears the pin
func (s *Session) UnpinConversation(id uuid.UUID) {
	s.conversations.Unpin(id)
	s.savePinned(id, false)
	s.emit(ConversationsChangedMsg{})
}

// MuteConversation silences the unread badge for the conversation
func (s *Session) MuteConversation(id uuid.UUID) {
	s.conversations.SetMuted(id, true)
	s.saveMuted(id, true)
	s.emit(ConversationsChangedMsg{})
}

// UnmuteConversation restores unread accounting
func (s *Session) UnmuteConversation(id uuid.UUID) {
	s.conversations.SetMuted(id, false)
	s.saveMuted(id, false)
	s.emit(ConversationsChangedMsg{})
}

func (s *Session) savePinned(id uuid.UUID, pinned bool) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.SetPinned(id, pinned); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
}

func (s *Session) saveMuted(id uuid.UUID, muted bool) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.SetMuted(id, muted); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
}

// ArchiveConversation hides the conversation from the active list
func (s *Session) ArchiveConversation(id uuid.UUID) {
	s.conversations.Archive(id)
	s.emit(ConversationsChangedMsg{})
}

// RemoveConversation deletes the conversation locally
func (s *Session) RemoveConversation(id uuid.UUID) {
	s.conversations.Remove(id)
	if s.messages.ActiveID() == id {
		s.messages.SetActive(uuid.Nil)
		s.reads.Deactivate()
	}
	s.emit(ConversationsChangedMsg{})
}

// ResolveQueueItem resolves a moderation queue item; failures propagate
func (s *Session) ResolveQueueItem(id uuid.UUID) error {
	if err := s.queue.Resolve(id); err != nil {
		return err
	}
	s.emit(QueueChangedMsg{})
	return nil
}

// --- Read-only snapshots for the presentation layer ---

// Status returns the current connection status
func (s *Session) Status() Status { return s.lifecycle.Status() }

// Selection returns the shared selection
func (s *Session) Selection() *Selection { return s.selection }

// Conversations returns the active conversation list in display order
func (s *Session) Conversations() []models.Conversation {
	return s.conversations.Snapshot()
}

// FilterConversations returns the filtered projection of the list
func (s *Session) FilterConversations(query string) []models.Conversation {
	return s.conversations.Filter(query)
}

// ActiveMessages returns the materialized message list
func (s *Session) ActiveMessages() []models.Message {
	return s.messages.Snapshot()
}

// QueueItems returns the open moderation queue
func (s *Session) QueueItems() []models.QueueItem {
	return s.queue.Open()
}

// emit forwards a notification without ever blocking an event handler
func (s *Session) emit(msg tea.Msg) {
	select {
	case s.events <- msg:
	default:
		log.Printf("Dropping UI notification %T: event buffer full", msg)
	}
}

// --- Notification types consumed by the presentation layer ---

// StatusChangedMsg reports a connection status transition
type StatusChangedMsg struct {
	Status Status
}

// ConversationsChangedMsg signals the conversation list changed
type ConversationsChangedMsg struct{}

// ActiveMessagesChangedMsg signals the materialized message list changed
type ActiveMessagesChangedMsg struct{}

// SelectionChangedMsg signals the auto-selector filled a selection slot
type SelectionChangedMsg struct{}

// QueueChangedMsg signals the moderation queue changed
type QueueChangedMsg struct{}

// ModerationNoticeMsg carries a moderation event for display
type ModerationNoticeMsg struct {
	Kind   string
	Detail string
}
