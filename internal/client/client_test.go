package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	apperrors "madamis/backend/internal/errors"
	"madamis/backend/internal/model"
	"madamis/backend/internal/realtime"
	"madamis/backend/internal/timer"
)

func snapshotAt(version int64) realtime.Snapshot {
	doc := model.NewTimerDocument("s1")
	doc.Version = version
	return realtime.NewSnapshot(doc, time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC))
}

func TestCommandSendsWireRequestWithToken(t *testing.T) {
	var received timer.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/s1/timer" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		req, err := timer.ParseRequest(body)
		if err != nil {
			t.Errorf("parse request: %v", err)
		}
		received = req

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"state": snapshotAt(4)})
	}))
	defer server.Close()

	c := New(server.URL, "secret")
	snapshot, err := c.Command(context.Background(), "s1", timer.Request{Command: timer.Add{Seconds: 300}, BaseVersion: 3})
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if snapshot.Document.Version != 4 {
		t.Fatalf("expected version 4, got %d", snapshot.Document.Version)
	}
	add, ok := received.Command.(timer.Add)
	if !ok || add.Seconds != 300 || received.BaseVersion != 3 {
		t.Fatalf("unexpected request on the wire: %+v", received)
	}
}

func TestCommandConflictCarriesLatestSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "state_conflict",
				"message": "timer changed on another device",
				"details": map[string]interface{}{"state": snapshotAt(7)},
			},
		})
	}))
	defer server.Close()

	c := New(server.URL, "secret")
	_, err := c.Command(context.Background(), "s1", timer.Request{Command: timer.Config{Title: "x"}, BaseVersion: 5})

	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected conflict APIError, got %v", err)
	}
	latest, ok := ConflictSnapshot(err)
	if !ok || latest.Document.Version != 7 {
		t.Fatalf("expected latest snapshot at version 7, got %+v", latest)
	}
}

func TestNonEnvelopeErrorStillDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "").State(context.Background(), "s1")
	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Code != "http_error" {
		t.Fatalf("expected http_error, got %v", err)
	}
	if _, ok := ConflictSnapshot(err); ok {
		t.Fatal("non-conflict errors must not yield a snapshot")
	}
}

func TestLoginStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "issued",
			"user":  map[string]string{"id": "u1", "email": "gm@example.com"},
		})
	}))
	defer server.Close()

	c := New(server.URL, "")
	result, err := c.Login(context.Background(), "gm@example.com", "123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.ID != "u1" || c.Token() != "issued" {
		t.Fatalf("unexpected login result %+v, token %q", result, c.Token())
	}
}

func TestMeSendsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/me" || r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"invalid token"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"gm@example.com"}}`))
	}))
	defer server.Close()

	user, err := New(server.URL, "secret").Me(context.Background())
	if err != nil || user.Email != "gm@example.com" {
		t.Fatalf("unexpected me result %+v, %v", user, err)
	}

	_, err = New(server.URL, "").Me(context.Background())
	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "unauthorized" {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event, ok := <-events:
		if !ok {
			t.Fatal("event channel closed")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestWatchReconnectsAndDropsStaleSnapshots(t *testing.T) {
	var connections atomic.Int32
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/sessions/s1/timer" {
			t.Errorf("unexpected socket path %s", r.URL.Path)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		switch connections.Add(1) {
		case 1:
			_ = conn.WriteJSON(snapshotAt(2))
		default:
			_ = conn.WriteJSON(snapshotAt(1))
			_ = conn.WriteJSON(snapshotAt(3))
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClock()
	c := New(server.URL, "", WithClock(clock), WithBackoff(Backoff{Initial: time.Second, Max: 4 * time.Second}))
	events := c.Watch(ctx, "s1")

	if event := nextEvent(t, events); !event.Connected {
		t.Fatalf("expected connected event, got %+v", event)
	}
	if event := nextEvent(t, events); event.Snapshot == nil || event.Snapshot.Document.Version != 2 {
		t.Fatalf("expected snapshot v2, got %+v", event)
	}
	if event := nextEvent(t, events); event.Err == nil {
		t.Fatalf("expected disconnect error, got %+v", event)
	}

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("waiting for backoff timer: %v", err)
	}
	clock.Advance(time.Second)

	if event := nextEvent(t, events); !event.Connected {
		t.Fatalf("expected reconnect, got %+v", event)
	}
	if event := nextEvent(t, events); event.Snapshot == nil || event.Snapshot.Document.Version != 3 {
		t.Fatalf("expected stale v1 skipped and v3 delivered, got %+v", event)
	}

	cancel()
	for range events {
	}
}

func TestNextDelayDoublesUpToMax(t *testing.T) {
	backoff := DefaultBackoff()
	delay := backoff.Initial
	for i := 0; i < 10; i++ {
		delay = nextDelay(delay, backoff)
	}
	if delay != backoff.Max {
		t.Fatalf("expected delay capped at %s, got %s", backoff.Max, delay)
	}
	if got := nextDelay(250*time.Millisecond, backoff); got != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", got)
	}
}
