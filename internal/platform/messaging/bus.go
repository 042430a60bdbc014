package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"rankit/contexts/ranking/poll-engine/ports"
)

// ErrNoSubscribers is returned for a topic nobody consumes, so the outbox
// relay leaves the row pending instead of marking it delivered.
var ErrNoSubscribers = errors.New("no subscribers for topic")

type Handler func(ctx context.Context, event ports.EventEnvelope) error

// Bus dispatches events to in-process handlers on the publishing goroutine.
// The worker uses it when no NATS URL is configured. Publish succeeds only
// once every handler of the topic has accepted the event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe adds handler for topic. Handlers run in registration order.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	topics := make([]string, 0, len(b.handlers))
	for topic := range b.handlers {
		topics = append(topics, topic)
	}
	return topics
}

func (b *Bus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Warn("event has no subscriber",
			"event", "bus_publish_unrouted",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
		)
		return fmt.Errorf("%w: %s", ErrNoSubscribers, topic)
	}

	// A handler that fails after earlier ones succeeded causes those to see
	// the event again on the next relay cycle.
	for _, handle := range handlers {
		if err := handle(ctx, event); err != nil {
			b.logger.Error("subscriber rejected event",
				"event", "bus_consume_failed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
				"error", err.Error(),
			)
			return fmt.Errorf("deliver %s on %s: %w", event.EventID, topic, err)
		}
	}

	b.logger.Debug("event dispatched",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"subscribers", len(handlers),
	)
	return nil
}

var _ ports.EventPublisher = (*Bus)(nil)
