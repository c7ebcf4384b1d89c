package client

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"madamis/backend/internal/realtime"
)

// Event is one item from a subscription. Exactly one field is set.
type Event struct {
	Snapshot  *realtime.Snapshot
	Connected bool
	Err       error
}

// Watch subscribes to a session's timer until ctx is done, reconnecting with
// backoff. Snapshots older than one already delivered are dropped. The
// channel is closed when ctx ends.
func (c *Client) Watch(ctx context.Context, sessionID string) <-chan Event {
	events := make(chan Event, 16)
	go c.watch(ctx, sessionID, events)
	return events
}

func (c *Client) watch(ctx context.Context, sessionID string, events chan<- Event) {
	defer close(events)

	target, err := c.socketURL(sessionID)
	if err != nil {
		emit(ctx, events, Event{Err: err})
		return
	}

	lastVersion := int64(-1)
	delay := c.backoff.Initial
	for {
		conn, _, err := c.dialer.DialContext(ctx, target, nil)
		if err == nil {
			delay = c.backoff.Initial
			if !emit(ctx, events, Event{Connected: true}) {
				_ = conn.Close()
				return
			}
			err = c.readSnapshots(ctx, conn, &lastVersion, events)
		}
		if ctx.Err() != nil {
			return
		}

		log.Debug().Err(err).Str("session_id", sessionID).Dur("retry_in", delay).Msg("timer subscription lost")
		if !emit(ctx, events, Event{Err: err}) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(delay):
		}
		delay = nextDelay(delay, c.backoff)
	}
}

func (c *Client) readSnapshots(ctx context.Context, conn *websocket.Conn, lastVersion *int64, events chan<- Event) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		var snapshot realtime.Snapshot
		if err := conn.ReadJSON(&snapshot); err != nil {
			return err
		}
		if snapshot.Type != realtime.SnapshotType {
			continue
		}
		if snapshot.Document.Version < *lastVersion {
			continue
		}
		*lastVersion = snapshot.Document.Version
		if !emit(ctx, events, Event{Snapshot: &snapshot}) {
			return errors.New("subscription cancelled")
		}
	}
}

func emit(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextDelay(current time.Duration, backoff Backoff) time.Duration {
	if current <= 0 {
		current = backoff.Initial
	}
	next := current * 2
	if backoff.Max > 0 && next > backoff.Max {
		next = backoff.Max
	}
	return next
}
