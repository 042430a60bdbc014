package observability

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerFormatsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "event", "level_check")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"event":"level_check"`)

	buf.Reset()
	newLogger(&buf, "debug", "text").Debug("plain", "k", "v")
	assert.Contains(t, buf.String(), "k=v")

	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
}

func TestFailureReasonIsBounded(t *testing.T) {
	assert.Equal(t, "not_enough_items", FailureReason(fmt.Errorf("draw: %w", domainerrors.ErrNotEnoughItems)))
	assert.Equal(t, "not_polling", FailureReason(domainerrors.ErrNotInPollingState))
	assert.Equal(t, "invalid_input", FailureReason(domainerrors.ErrInvalidPreference))
	assert.Equal(t, "internal", FailureReason(errors.New("connection reset")))
}

func TestRecordPollFailureIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(PollFailures.WithLabelValues("end", "not_polling"))
	RecordPollFailure("end", domainerrors.ErrNotInPollingState)
	after := testutil.ToFloat64(PollFailures.WithLabelValues("end", "not_polling"))
	assert.Equal(t, before+1, after)
}

func TestRelayMetricsCountOutcomes(t *testing.T) {
	metrics := RelayMetrics{}
	relayed := testutil.ToFloat64(OutboxRelayed.WithLabelValues("poll.started"))
	failed := testutil.ToFloat64(OutboxRelayFailures.WithLabelValues("poll.completed", "publish"))

	metrics.Relayed("poll.started")
	metrics.RelayFailed("poll.completed", "publish")

	assert.Equal(t, relayed+1, testutil.ToFloat64(OutboxRelayed.WithLabelValues("poll.started")))
	assert.Equal(t, failed+1, testutil.ToFloat64(OutboxRelayFailures.WithLabelValues("poll.completed", "publish")))
}
