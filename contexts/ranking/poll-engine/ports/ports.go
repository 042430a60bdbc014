package ports

import (
	"context"
	"time"

	"rankit/contexts/ranking/poll-engine/domain/entities"
	eventsv1 "rankit/contracts/gen/events/v1"
)

// UnitOfWork runs fn inside one transaction. Repository calls made with the
// ctx passed to fn join that transaction; a nested WithinTx joins the outer
// one instead of opening a new one.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type RankRepository interface {
	// GetLiveRanksOrdered returns live ranks of a category ordered by
	// (run, shuffle), locked for update. limit <= 0 returns all of them.
	GetLiveRanksOrdered(ctx context.Context, categoryID int64, limit int) ([]entities.Rank, error)
	// Advance sets run on the given ranks and gives each a fresh shuffle.
	Advance(ctx context.Context, rankIDs []int64, newRun int64) error
	UpdateScore(ctx context.Context, thingID int64, categoryID int64, score float64) error
	// Create inserts a live rank at the initial score and the category's
	// minimum run. ErrDuplicateRecord when one already exists.
	Create(ctx context.Context, thingID int64, categoryID int64) (entities.Rank, error)
	SoftDelete(ctx context.Context, rankID int64, at time.Time) error
	SoftDeleteByCategory(ctx context.Context, categoryID int64, at time.Time) error
	SoftDeleteByThing(ctx context.Context, thingID int64, at time.Time) error
	// ListRankedThings returns live ranks with their things, best score first.
	ListRankedThings(ctx context.Context, categoryID int64) ([]entities.RankedThing, error)
}

type PairingRepository interface {
	DeletePairing(ctx context.Context, accountID int64) error
	// UpsertPairing stores the account's pairing, replacing any pairing the
	// account already holds, including one written by a concurrent start.
	UpsertPairing(ctx context.Context, pairing entities.Pairing) error
	// GetScoredPairing reads the account's pairing joined with both live rank
	// scores, locking the rows. found is false when there is nothing to score.
	GetScoredPairing(ctx context.Context, accountID int64) (entities.ScoredPairing, bool, error)
	DeletePairingsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CatalogRepository interface {
	GetCategory(ctx context.Context, categoryID int64) (entities.Category, error)
	ListCategories(ctx context.Context) ([]entities.Category, error)
	CreateCategory(ctx context.Context, name string, createdAt time.Time) (entities.Category, error)
	SoftDeleteCategory(ctx context.Context, categoryID int64, at time.Time) error
	GetThing(ctx context.Context, thingID int64) (entities.Thing, error)
	ListThings(ctx context.Context, query entities.ThingQuery) ([]entities.Thing, error)
	CreateThing(ctx context.Context, name string, file string, createdAt time.Time) (entities.Thing, error)
	SoftDeleteThing(ctx context.Context, thingID int64, at time.Time) error
}

type ShuffleSource interface {
	NextShuffle() int64
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = eventsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// RelayObserver is told the outcome of every outbox row the relay handles.
// stage is one of "decode", "publish" or "mark".
type RelayObserver interface {
	Relayed(eventType string)
	RelayFailed(eventType string, stage string)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
