package realtime

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"madamis/backend/internal/model"
)

type syncBroadcaster struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (s *syncBroadcaster) Broadcast(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
}

func (s *syncBroadcaster) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Runs only against a real server: TEST_NATS_URL=nats://localhost:4222 go test ./...
func TestNATSBusRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set")
	}

	prefix := "timer.test." + time.Now().Format("150405.000000")
	bus, err := ConnectNATS(DefaultNATSConfig(url, prefix))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })

	if got := bus.Subject("session-1"); got != prefix+".session-1" {
		t.Fatalf("unexpected subject %s", got)
	}

	received := &syncBroadcaster{}
	if err := bus.Forward(received); err != nil {
		t.Fatalf("forward: %v", err)
	}

	doc := model.NewTimerDocument("session-1")
	doc.Version = 4
	if err := bus.Publish(context.Background(), NewSnapshot(doc, time.Now())); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for received.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("snapshot was not forwarded")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if received.snapshots[0].Document.Version != 4 {
		t.Fatalf("unexpected snapshot %+v", received.snapshots[0])
	}
}
