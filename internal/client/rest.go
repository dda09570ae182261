package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/quorum-chat/quorum/internal/models"
)

// TokenSource supplies the bearer credential for REST calls
type TokenSource interface {
	Token() (string, error)
}

// API is the REST boundary client. Request/response shapes are owned by the
// backend; this client only consumes them.
type API struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewAPI creates a REST client for the given server address
func NewAPI(serverAddr string, tokens TokenSource) (*API, error) {
	u, err := url.Parse(serverAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address: %w", err)
	}
	if u.Scheme == "ws" {
		u.Scheme = "http"
	} else if u.Scheme == "wss" {
		u.Scheme = "https"
	}
	u.Path = ""

	return &API{
		baseURL: u.String(),
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
	}, nil
}

// Me fetches the authenticated participant
func (a *API) Me() (*models.Participant, error) {
	var out models.Participant
	if err := a.do(http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations fetches the full conversation list
func (a *API) Conversations() ([]*models.Conversation, error) {
	var out []*models.Conversation
	if err := a.do(http.MethodGet, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Messages fetches the message history for one conversation
func (a *API) Messages(conversationID uuid.UUID) ([]*models.Message, error) {
	var out []*models.Message
	path := fmt.Sprintf("/conversations/%s/messages", conversationID)
	if err := a.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostMessage sends a message and returns the authoritative server copy
func (a *API) PostMessage(conversationID uuid.UUID, content, nonce string) (*models.Message, error) {
	body := map[string]string{"content": content, "nonce": nonce}
	var out models.Message
	path := fmt.Sprintf("/conversations/%s/messages", conversationID)
	if err := a.do(http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRead reports the conversation as read. Callers treat this as
// best-effort telemetry, not a source of truth.
func (a *API) MarkRead(conversationID uuid.UUID) error {
	path := fmt.Sprintf("/conversations/%s/read", conversationID)
	return a.do(http.MethodPost, path, nil, nil)
}

// Servers fetches the server list
func (a *API) Servers() ([]*models.Server, error) {
	var out []*models.Server
	if err := a.do(http.MethodGet, "/servers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Channels fetches the channel list for a server
func (a *API) Channels(serverID uuid.UUID) ([]*models.Channel, error) {
	var out []*models.Channel
	path := fmt.Sprintf("/servers/%s/channels", serverID)
	if err := a.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateQueueItem patches a moderation queue item's status
func (a *API) UpdateQueueItem(id uuid.UUID, status models.QueueStatus) (*models.QueueItem, error) {
	body := map[string]string{"status": string(status)}
	var out models.QueueItem
	path := fmt.Sprintf("/moderation/queue/%s", id)
	if err := a.do(http.MethodPatch, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one request with the bearer header and decodes the response
func (a *API) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := a.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	if token == "" {
		return fmt.Errorf("no credential available")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s (%d)", method, path, string(data), resp.StatusCode)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
