package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"rankit/contexts/ranking/poll-engine/adapters/memory"
	"rankit/contexts/ranking/poll-engine/application/workers"
	"rankit/contexts/ranking/poll-engine/ports"
	eventsv1 "rankit/contracts/gen/events/v1"
	"rankit/internal/platform/observability"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func testEvent() ports.EventEnvelope {
	return ports.EventEnvelope{
		EventID:      "evt-42",
		EventType:    "poll.completed",
		OccurredAt:   time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
		PartitionKey: "42",
		Data:         json.RawMessage(`{"account_id":42}`),
	}
}

func TestNATSPublisherPublishesOnPrefixedSubject(t *testing.T) {
	server := startTestNATSServer(t)
	conn, err := ConnectNATS(server.ClientURL(), "rankit-test")
	require.NoError(t, err)
	publisher := NewNATSPublisher(conn, "rankit.", nil)
	t.Cleanup(func() { _ = publisher.Close() })

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	received, err := sub.SubscribeSync("rankit.poll.>")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	require.NoError(t, publisher.Publish(context.Background(), "poll.completed", testEvent()))

	msg, err := received.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "rankit.poll.completed", msg.Subject)
	assert.Equal(t, "evt-42", msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "42", msg.Header.Get("Rankit-Partition-Key"))

	var decoded ports.EventEnvelope
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "poll.completed", decoded.EventType)
	assert.JSONEq(t, `{"account_id":42}`, string(decoded.Data))
}

func TestNATSPublisherHonoursCancelledContext(t *testing.T) {
	server := startTestNATSServer(t)
	conn, err := ConnectNATS(server.ClientURL(), "rankit-test")
	require.NoError(t, err)
	publisher := NewNATSPublisher(conn, "", nil)
	t.Cleanup(func() { _ = publisher.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, publisher.Publish(ctx, "poll.started", testEvent()), context.Canceled)
	assert.Equal(t, "poll.started", publisher.Subject("poll.started"))
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS(" ", "rankit")
	require.Error(t, err)
}

func TestBusDeliversToSubscribersOfTopic(t *testing.T) {
	bus := NewBus(nil)
	var delivered []string
	bus.Subscribe("poll.completed", func(_ context.Context, event ports.EventEnvelope) error {
		delivered = append(delivered, event.EventID)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), "poll.completed", testEvent()))
	assert.Equal(t, []string{"evt-42"}, delivered)

	err := bus.Publish(context.Background(), "poll.started", testEvent())
	require.ErrorIs(t, err, ErrNoSubscribers)
	assert.Len(t, delivered, 1)
}

func TestBusReportsHandlerFailure(t *testing.T) {
	bus := NewBus(nil)
	boom := errors.New("sink full")
	bus.Subscribe("poll.completed", func(context.Context, ports.EventEnvelope) error { return boom })

	require.ErrorIs(t, bus.Publish(context.Background(), "poll.completed", testEvent()), boom)
}

func seedPollCycle(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	for _, event := range []eventsv1.PollEvent{
		eventsv1.PollStartedData{AccountID: 5, CategoryID: 1, ThingIDA: 1, ThingIDB: 2, Run: 1},
		eventsv1.PollCompletedData{AccountID: 5, CategoryID: 1, ThingIDA: 1, ThingIDB: 2, Preference: "A", ScoreA: 1216, ScoreB: 1184},
	} {
		id, err := store.NewID(ctx)
		require.NoError(t, err)
		envelope, err := eventsv1.NewPollEnvelope(id, "poll-engine", time.Now(), event)
		require.NoError(t, err)
		require.NoError(t, store.AppendOutbox(ctx, envelope))
	}
}

func TestRelayOverBusWithoutConsumersKeepsOutboxPending(t *testing.T) {
	store := memory.NewStore()
	seedPollCycle(t, store)
	relay := workers.OutboxRelay{Outbox: store, Publisher: NewBus(nil), BatchSize: 10}

	require.ErrorIs(t, relay.RunOnce(context.Background()), ErrNoSubscribers)

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestRelayOverBusDrainsIntoEventLog(t *testing.T) {
	store := memory.NewStore()
	seedPollCycle(t, store)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	bus := NewBus(logger)
	NewEventLog(logger).Register(bus)
	assert.ElementsMatch(t, []string{eventsv1.EventTypePollStarted, eventsv1.EventTypePollCompleted}, bus.Topics())

	consumed := testutil.ToFloat64(observability.EventsConsumed.WithLabelValues(eventsv1.EventTypePollCompleted))
	relay := workers.OutboxRelay{Outbox: store, Publisher: bus, BatchSize: 10}
	require.NoError(t, relay.RunOnce(context.Background()))

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Contains(t, buf.String(), `"event":"event_log_poll_started"`)
	assert.Contains(t, buf.String(), `"event":"event_log_poll_completed"`)
	assert.Equal(t, consumed+1, testutil.ToFloat64(observability.EventsConsumed.WithLabelValues(eventsv1.EventTypePollCompleted)))
}
