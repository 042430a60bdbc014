package observability

import (
	"errors"
	"time"

	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	"rankit/contexts/ranking/poll-engine/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rankit",
			Name:      "poll_started_total",
			Help:      "Polls started successfully",
		},
	)

	PollsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rankit",
			Name:      "poll_completed_total",
			Help:      "Polls scored and closed",
		},
	)

	PollFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankit",
			Name:      "poll_failures_total",
			Help:      "Failed poll operations by operation and reason",
		},
		[]string{"operation", "reason"},
	)

	OutboxRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankit",
			Name:      "outbox_relayed_total",
			Help:      "Outbox rows published and marked, by event type",
		},
		[]string{"event_type"},
	)

	OutboxRelayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankit",
			Name:      "outbox_relay_failures_total",
			Help:      "Outbox rows left pending, by event type and failing stage",
		},
		[]string{"event_type", "stage"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankit",
			Name:      "events_consumed_total",
			Help:      "Poll events handled by the in-process event log",
		},
		[]string{"event_type"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rankit",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordPollFailure counts a failed start or end under a bounded reason label.
func RecordPollFailure(operation string, err error) {
	PollFailures.WithLabelValues(operation, FailureReason(err)).Inc()
}

func FailureReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domainerrors.ErrNotEnoughItems):
		return "not_enough_items"
	case errors.Is(err, domainerrors.ErrNotInPollingState):
		return "not_polling"
	case errors.Is(err, domainerrors.ErrCategoryNotFound):
		return "category_not_found"
	case errors.Is(err, domainerrors.ErrInvalidPreference), errors.Is(err, domainerrors.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

// RelayMetrics reports outbox relay outcomes to the counters above.
type RelayMetrics struct{}

func (RelayMetrics) Relayed(eventType string) {
	OutboxRelayed.WithLabelValues(eventType).Inc()
}

func (RelayMetrics) RelayFailed(eventType string, stage string) {
	OutboxRelayFailures.WithLabelValues(eventType, stage).Inc()
}

var _ ports.RelayObserver = RelayMetrics{}

func ObserveRequest(route string, started time.Time) {
	HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}
