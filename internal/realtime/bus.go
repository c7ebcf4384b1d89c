package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type Broadcaster interface {
	Broadcast(snapshot Snapshot)
}

// LocalBus hands snapshots straight to an in-process hub.
type LocalBus struct {
	hub Broadcaster
}

func NewLocalBus(hub Broadcaster) *LocalBus {
	return &LocalBus{hub: hub}
}

func (b *LocalBus) Publish(_ context.Context, snapshot Snapshot) error {
	b.hub.Broadcast(snapshot)
	return nil
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig(url, prefix string) NATSConfig {
	return NATSConfig{
		URL:           url,
		SubjectPrefix: prefix,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSBus publishes snapshots on <prefix>.<sessionID> so every server
// instance can feed its own hub.
type NATSBus struct {
	nc     *nats.Conn
	prefix string
	sub    *nats.Subscription
}

func ConnectNATS(config NATSConfig) (*NATSBus, error) {
	opts := []nats.Option{
		nats.Name("session-timer"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	prefix := strings.TrimSuffix(config.SubjectPrefix, ".")
	if prefix == "" {
		prefix = "timer.documents"
	}
	return &NATSBus{nc: nc, prefix: prefix}, nil
}

func (b *NATSBus) Subject(sessionID string) string {
	return b.prefix + "." + sessionID
}

func (b *NATSBus) Publish(_ context.Context, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := b.nc.Publish(b.Subject(snapshot.SessionID), data); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Forward subscribes to every session subject and broadcasts what arrives.
func (b *NATSBus) Forward(hub Broadcaster) error {
	sub, err := b.nc.Subscribe(b.prefix+".>", func(msg *nats.Msg) {
		var snapshot Snapshot
		if err := json.Unmarshal(msg.Data, &snapshot); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to decode snapshot")
			return
		}
		hub.Broadcast(snapshot)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", b.prefix, err)
	}
	b.sub = sub
	return nil
}

func (b *NATSBus) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if err := b.nc.Drain(); err != nil {
		return fmt.Errorf("drain NATS: %w", err)
	}
	return nil
}
