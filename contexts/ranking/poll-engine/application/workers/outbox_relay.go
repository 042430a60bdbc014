package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	application "rankit/contexts/ranking/poll-engine/application"
	"rankit/contexts/ranking/poll-engine/ports"
	eventsv1 "rankit/contracts/gen/events/v1"
)

const defaultRelayBatch = 100

// OutboxRelay ships poll events written by StartPoll/EndPoll to the
// publisher. A row is marked published only after the publisher accepted
// it, so delivery is at least once and in outbox order.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Observer  ports.RelayObserver
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce relays one batch and stops at the first row it cannot relay. That
// row and everything after it stay pending for the next cycle.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = defaultRelayBatch
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("poll outbox list failed",
			"event", "poll_outbox_list_failed",
			"module", "ranking/poll-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	relayed := make(map[string]int, 2)
	for _, row := range pending {
		event, err := decodeOutboxRow(row)
		if err != nil {
			r.failed(logger, row, ports.EventEnvelope{}, "decode", err)
			return err
		}
		if err := r.Publisher.Publish(ctx, event.EventType, event); err != nil {
			r.failed(logger, row, event, "publish", err)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			r.failed(logger, row, event, "mark", err)
			return err
		}
		if r.Observer != nil {
			r.Observer.Relayed(event.EventType)
		}
		relayed[event.EventType]++
	}

	logger.Info("poll outbox relay cycle completed",
		"event", "poll_outbox_relay_completed",
		"module", "ranking/poll-engine",
		"layer", "worker",
		"published_count", len(pending),
		"started_count", relayed[eventsv1.EventTypePollStarted],
		"completed_count", relayed[eventsv1.EventTypePollCompleted],
	)
	return nil
}

// decodeOutboxRow rebuilds the stored envelope and checks it is a poll event
// this schema version defines, keyed by the account in its payload.
func decodeOutboxRow(row ports.OutboxMessage) (ports.EventEnvelope, error) {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return ports.EventEnvelope{}, fmt.Errorf("decode outbox row %s: %w", row.OutboxID, err)
	}
	if event.EventType != row.EventType {
		return ports.EventEnvelope{}, fmt.Errorf("outbox row %s: envelope type %q, row type %q",
			row.OutboxID, event.EventType, row.EventType)
	}
	if _, err := eventsv1.DecodePollEvent(event); err != nil {
		return ports.EventEnvelope{}, fmt.Errorf("outbox row %s: %w", row.OutboxID, err)
	}
	return event, nil
}

func (r OutboxRelay) failed(logger *slog.Logger, row ports.OutboxMessage, event ports.EventEnvelope, stage string, err error) {
	if r.Observer != nil {
		r.Observer.RelayFailed(row.EventType, stage)
	}
	logger.Error("poll outbox relay failed",
		"event", "poll_outbox_"+stage+"_failed",
		"module", "ranking/poll-engine",
		"layer", "worker",
		"outbox_id", row.OutboxID,
		"event_id", event.EventID,
		"event_type", row.EventType,
		"partition_key", row.PartitionKey,
		"error", err.Error(),
	)
}
