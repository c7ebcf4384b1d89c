// Package client talks to the timer backend over HTTP and keeps a websocket
// subscription alive for display and control surfaces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	apperrors "madamis/backend/internal/errors"
	"madamis/backend/internal/model"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/timer"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	clock   clockwork.Clock
	backoff Backoff
}

// Backoff bounds the delay between subscription attempts. The delay doubles
// after each failure and resets once a connection succeeds.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Initial: 250 * time.Millisecond, Max: 10 * time.Second}
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithBackoff(backoff Backoff) Option {
	return func(c *Client) { c.backoff = backoff }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		clock:   clockwork.NewRealClock(),
		backoff: DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string { return c.token }

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// State is the public read of a session's timer.
type State struct {
	Snapshot realtime.Snapshot `json:"state"`
	View     timer.View        `json:"view"`
}

// Login exchanges credentials for a token and keeps it for later commands.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

// Me returns the account the client's token belongs to.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) CreateSession(ctx context.Context, title string) (*model.Session, error) {
	var resp struct {
		Session model.Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"title": title}, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (c *Client) State(ctx context.Context, sessionID string) (*State, error) {
	var state State
	if err := c.do(ctx, http.MethodGet, timerPath(sessionID), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Command sends req and returns the snapshot the server stored. Rejections
// come back as *apperrors.APIError.
func (c *Client) Command(ctx context.Context, sessionID string, req timer.Request) (*realtime.Snapshot, error) {
	var resp struct {
		State realtime.Snapshot `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, timerPath(sessionID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.State, nil
}

// ConflictSnapshot extracts the latest document carried by a state_conflict
// rejection.
func ConflictSnapshot(err error) (*realtime.Snapshot, bool) {
	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "state_conflict" {
		return nil, false
	}
	raw, ok := apiErr.Details.(json.RawMessage)
	if !ok {
		return nil, false
	}
	var details struct {
		State *realtime.Snapshot `json:"state"`
	}
	if err := json.Unmarshal(raw, &details); err != nil || details.State == nil {
		return nil, false
	}
	return details.State, true
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.Decode(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) socketURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/sessions/" + url.PathEscape(sessionID) + "/timer"
	return u.String(), nil
}

func timerPath(sessionID string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + "/timer"
}
