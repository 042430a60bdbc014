package messaging

import (
	"context"
	"log/slog"

	"rankit/contexts/ranking/poll-engine/ports"
	eventsv1 "rankit/contracts/gen/events/v1"
	"rankit/internal/platform/observability"
)

// EventLog consumes poll events in process: each one becomes a structured
// log line and a count in rankit_events_consumed_total. It is the worker's
// consumer when events are not shipped to NATS.
type EventLog struct {
	logger *slog.Logger
}

func NewEventLog(logger *slog.Logger) *EventLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLog{logger: logger}
}

// Register subscribes the log to every poll event type on bus.
func (l *EventLog) Register(bus *Bus) {
	bus.Subscribe(eventsv1.EventTypePollStarted, l.Handle)
	bus.Subscribe(eventsv1.EventTypePollCompleted, l.Handle)
}

func (l *EventLog) Handle(_ context.Context, event ports.EventEnvelope) error {
	payload, err := eventsv1.DecodePollEvent(event)
	if err != nil {
		return err
	}

	switch data := payload.(type) {
	case eventsv1.PollStartedData:
		l.logger.Info("poll started",
			"event", "event_log_poll_started",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"event_id", event.EventID,
			"account_id", data.AccountID,
			"category_id", data.CategoryID,
			"thing_id_a", data.ThingIDA,
			"thing_id_b", data.ThingIDB,
			"run", data.Run,
		)
	case eventsv1.PollCompletedData:
		l.logger.Info("poll completed",
			"event", "event_log_poll_completed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"event_id", event.EventID,
			"account_id", data.AccountID,
			"category_id", data.CategoryID,
			"preference", data.Preference,
			"score_a", data.ScoreA,
			"score_b", data.ScoreB,
		)
	}
	observability.EventsConsumed.WithLabelValues(event.EventType).Inc()
	return nil
}
