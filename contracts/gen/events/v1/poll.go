package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	EventTypePollStarted   = "poll.started"
	EventTypePollCompleted = "poll.completed"
)

const pollSchemaVersion = 1

var (
	ErrUnknownEventType  = errors.New("unknown poll event type")
	ErrPartitionMismatch = errors.New("partition key does not match payload account")
)

// PollEvent is a poll payload. Poll events are keyed by account so one
// account's start/end cycle stays ordered for consumers.
type PollEvent interface {
	EventType() string
	PartitionKey() string
}

type PollStartedData struct {
	AccountID  int64 `json:"account_id"`
	CategoryID int64 `json:"category_id"`
	ThingIDA   int64 `json:"thing_id_a"`
	ThingIDB   int64 `json:"thing_id_b"`
	Run        int64 `json:"run"`
}

func (PollStartedData) EventType() string { return EventTypePollStarted }

func (d PollStartedData) PartitionKey() string { return strconv.FormatInt(d.AccountID, 10) }

type PollCompletedData struct {
	AccountID      int64   `json:"account_id"`
	CategoryID     int64   `json:"category_id"`
	ThingIDA       int64   `json:"thing_id_a"`
	ThingIDB       int64   `json:"thing_id_b"`
	Preference     string  `json:"preference"`
	PreviousScoreA float64 `json:"previous_score_a"`
	PreviousScoreB float64 `json:"previous_score_b"`
	ScoreA         float64 `json:"score_a"`
	ScoreB         float64 `json:"score_b"`
}

func (PollCompletedData) EventType() string { return EventTypePollCompleted }

func (d PollCompletedData) PartitionKey() string { return strconv.FormatInt(d.AccountID, 10) }

// NewPollEnvelope wraps a poll payload. The event id doubles as trace id
// until requests carry one.
func NewPollEnvelope(eventID string, source string, occurredAt time.Time, event PollEvent) (Envelope, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", event.EventType(), err)
	}
	return Envelope{
		EventID:          eventID,
		EventType:        event.EventType(),
		OccurredAt:       occurredAt.UTC(),
		SourceService:    source,
		TraceID:          eventID,
		SchemaVersion:    pollSchemaVersion,
		PartitionKeyPath: "account_id",
		PartitionKey:     event.PartitionKey(),
		Data:             data,
	}, nil
}

// DecodePollEvent returns the typed payload of envelope. It rejects event
// types this schema does not define and payloads whose account differs from
// the envelope's partition key.
func DecodePollEvent(envelope Envelope) (PollEvent, error) {
	var event PollEvent
	switch envelope.EventType {
	case EventTypePollStarted:
		var data PollStartedData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
		}
		event = data
	case EventTypePollCompleted:
		var data PollCompletedData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
		}
		event = data
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, envelope.EventType)
	}
	if event.PartitionKey() != envelope.PartitionKey {
		return nil, fmt.Errorf("%w: key %q, payload %q", ErrPartitionMismatch, envelope.PartitionKey, event.PartitionKey())
	}
	return event, nil
}
