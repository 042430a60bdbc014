package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rankit/contexts/ranking/poll-engine/ports"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes outbox events on "<prefix>.<event_type>" subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

func ConnectNATS(url string, name string) (*nats.Conn, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url is required")
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

func NewNATSPublisher(conn *nats.Conn, prefix string, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{
		conn:   conn,
		prefix: strings.Trim(strings.TrimSpace(prefix), "."),
		logger: logger,
	}
}

func (p *NATSPublisher) Subject(topic string) string {
	topic = strings.Trim(strings.TrimSpace(topic), ".")
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}

	msg := nats.NewMsg(p.Subject(topic))
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, event.EventID)
	msg.Header.Set("Rankit-Partition-Key", event.PartitionKey)
	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error("nats publish failed",
			"event", "nats_publish_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"subject", msg.Subject,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}

	p.logger.Debug("event published",
		"event", "nats_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"subject", msg.Subject,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

// Close drains pending publishes before closing the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

var _ ports.EventPublisher = (*NATSPublisher)(nil)
