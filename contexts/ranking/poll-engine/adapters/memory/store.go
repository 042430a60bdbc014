package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	"rankit/contexts/ranking/poll-engine/ports"

	"github.com/google/uuid"
)

type txKey struct{}

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
	seq       int
}

type state struct {
	categories map[int64]entities.Category
	things     map[int64]entities.Thing
	ranks      map[int64]entities.Rank
	pairings   map[int64]entities.Pairing
	outbox     map[string]outboxRecord

	nextCategoryID int64
	nextThingID    int64
	nextRankID     int64
	nextOutboxSeq  int
}

func (s state) clone() state {
	out := state{
		categories:     make(map[int64]entities.Category, len(s.categories)),
		things:         make(map[int64]entities.Thing, len(s.things)),
		ranks:          make(map[int64]entities.Rank, len(s.ranks)),
		pairings:       make(map[int64]entities.Pairing, len(s.pairings)),
		outbox:         make(map[string]outboxRecord, len(s.outbox)),
		nextCategoryID: s.nextCategoryID,
		nextThingID:    s.nextThingID,
		nextRankID:     s.nextRankID,
		nextOutboxSeq:  s.nextOutboxSeq,
	}
	for k, v := range s.categories {
		out.categories[k] = v
	}
	for k, v := range s.things {
		out.things[k] = v
	}
	for k, v := range s.ranks {
		out.ranks[k] = v
	}
	for k, v := range s.pairings {
		out.pairings[k] = v
	}
	for k, v := range s.outbox {
		out.outbox[k] = v
	}
	return out
}

type seededShuffle struct {
	rng *rand.Rand
}

func (s seededShuffle) NextShuffle() int64 {
	return int64(s.rng.Int32())
}

// Store is the in-memory adapter used by tests and local wiring. A unit of
// work holds the store mutex for its whole duration and restores the
// previous state when it fails.
type Store struct {
	mu      sync.Mutex
	data    state
	shuffle ports.ShuffleSource

	clockMu sync.Mutex
	now     time.Time

	failMu   sync.Mutex
	failures map[string]error
}

func NewStore() *Store {
	return &Store{
		data: state{
			categories:     make(map[int64]entities.Category),
			things:         make(map[int64]entities.Thing),
			ranks:          make(map[int64]entities.Rank),
			pairings:       make(map[int64]entities.Pairing),
			outbox:         make(map[string]outboxRecord),
			nextCategoryID: 1,
			nextThingID:    1,
			nextRankID:     1,
		},
		shuffle:  seededShuffle{rng: rand.New(rand.NewPCG(0x72616e6b, 0x6974))},
		failures: make(map[string]error),
	}
}

// SetShuffleSource replaces the deterministic default shuffle generator.
func (s *Store) SetShuffleSource(source ports.ShuffleSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if source != nil {
		s.shuffle = source
	}
}

// SetNow pins the store clock. A zero time restores the wall clock.
func (s *Store) SetNow(now time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = now.UTC()
}

// FailOn makes the next call of the named operation return err.
func (s *Store) FailOn(operation string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[operation] = err
}

func (s *Store) injected(operation string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	err, ok := s.failures[operation]
	if !ok {
		return nil
	}
	delete(s.failures, operation)
	return err
}

func (s *Store) Now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	if s.now.IsZero() {
		return time.Now().UTC()
	}
	return s.now
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// withLock runs fn under the store mutex unless ctx already belongs to an
// open unit of work of this store, which holds the mutex.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if s.inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) GetLiveRanksOrdered(ctx context.Context, categoryID int64, limit int) ([]entities.Rank, error) {
	if err := s.injected("GetLiveRanksOrdered"); err != nil {
		return nil, err
	}
	var items []entities.Rank
	err := s.withLock(ctx, func() error {
		items = s.liveRanksLocked(categoryID)
		sort.Slice(items, func(i, j int) bool {
			return items[i].Less(items[j])
		})
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return nil
	})
	return items, err
}

func (s *Store) Advance(ctx context.Context, rankIDs []int64, newRun int64) error {
	if err := s.injected("Advance"); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		for _, rankID := range rankIDs {
			rank, ok := s.data.ranks[rankID]
			if !ok || !rank.Live() {
				return domainerrors.ErrRankNotFound
			}
			rank.Run = newRun
			rank.Shuffle = s.shuffle.NextShuffle()
			s.data.ranks[rankID] = rank
		}
		return nil
	})
}

func (s *Store) UpdateScore(ctx context.Context, thingID int64, categoryID int64, score float64) error {
	if err := s.injected("UpdateScore"); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		rank, ok := s.liveRankLocked(thingID, categoryID)
		if !ok {
			return domainerrors.ErrRankNotFound
		}
		rank.Score = score
		s.data.ranks[rank.RankID] = rank
		return nil
	})
}

func (s *Store) Create(ctx context.Context, thingID int64, categoryID int64) (entities.Rank, error) {
	if err := s.injected("Create"); err != nil {
		return entities.Rank{}, err
	}
	var rank entities.Rank
	err := s.withLock(ctx, func() error {
		if _, exists := s.liveRankLocked(thingID, categoryID); exists {
			return domainerrors.ErrDuplicateRecord
		}
		var minRun int64
		for i, existing := range s.liveRanksLocked(categoryID) {
			if i == 0 || existing.Run < minRun {
				minRun = existing.Run
			}
		}
		rank = entities.Rank{
			RankID:     s.data.nextRankID,
			ThingID:    thingID,
			CategoryID: categoryID,
			Score:      entities.InitialScore,
			Run:        minRun,
			Shuffle:    s.shuffle.NextShuffle(),
		}
		s.data.nextRankID++
		s.data.ranks[rank.RankID] = rank
		return nil
	})
	return rank, err
}

func (s *Store) SoftDelete(ctx context.Context, rankID int64, at time.Time) error {
	return s.withLock(ctx, func() error {
		rank, ok := s.data.ranks[rankID]
		if !ok || !rank.Live() {
			return domainerrors.ErrRankNotFound
		}
		deletedAt := at.UTC()
		rank.DeletedAt = &deletedAt
		s.data.ranks[rankID] = rank
		return nil
	})
}

func (s *Store) SoftDeleteByCategory(ctx context.Context, categoryID int64, at time.Time) error {
	if err := s.injected("SoftDeleteByCategory"); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		s.softDeleteRanksLocked(at, func(rank entities.Rank) bool {
			return rank.CategoryID == categoryID
		})
		return nil
	})
}

func (s *Store) SoftDeleteByThing(ctx context.Context, thingID int64, at time.Time) error {
	if err := s.injected("SoftDeleteByThing"); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		s.softDeleteRanksLocked(at, func(rank entities.Rank) bool {
			return rank.ThingID == thingID
		})
		return nil
	})
}

func (s *Store) ListRankedThings(ctx context.Context, categoryID int64) ([]entities.RankedThing, error) {
	var items []entities.RankedThing
	err := s.withLock(ctx, func() error {
		for _, rank := range s.liveRanksLocked(categoryID) {
			thing, ok := s.data.things[rank.ThingID]
			if !ok || thing.DeletedAt != nil {
				continue
			}
			items = append(items, entities.RankedThing{Rank: rank, Thing: thing})
		}
		return nil
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].Rank.Score == items[j].Rank.Score {
			return items[i].Rank.RankID < items[j].Rank.RankID
		}
		return items[i].Rank.Score > items[j].Rank.Score
	})
	return items, err
}

func (s *Store) DeletePairing(ctx context.Context, accountID int64) error {
	if err := s.injected("DeletePairing"); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		delete(s.data.pairings, accountID)
		return nil
	})
}

func (s *Store) UpsertPairing(ctx context.Context, pairing entities.Pairing) error {
	if err := s.injected("UpsertPairing"); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		pairing.CreatedAt = pairing.CreatedAt.UTC()
		s.data.pairings[pairing.AccountID] = pairing
		return nil
	})
}

func (s *Store) GetScoredPairing(ctx context.Context, accountID int64) (entities.ScoredPairing, bool, error) {
	if err := s.injected("GetScoredPairing"); err != nil {
		return entities.ScoredPairing{}, false, err
	}
	var (
		scored entities.ScoredPairing
		found  bool
	)
	err := s.withLock(ctx, func() error {
		pairing, ok := s.data.pairings[accountID]
		if !ok {
			return nil
		}
		rankA, okA := s.liveRankLocked(pairing.ThingIDA, pairing.CategoryID)
		rankB, okB := s.liveRankLocked(pairing.ThingIDB, pairing.CategoryID)
		if !okA || !okB {
			return nil
		}
		scored = entities.ScoredPairing{Pairing: pairing, ScoreA: rankA.Score, ScoreB: rankB.Score}
		found = true
		return nil
	})
	return scored, found, err
}

func (s *Store) DeletePairingsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.withLock(ctx, func() error {
		for accountID, pairing := range s.data.pairings {
			if pairing.CreatedAt.Before(cutoff) {
				delete(s.data.pairings, accountID)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (s *Store) GetCategory(ctx context.Context, categoryID int64) (entities.Category, error) {
	var category entities.Category
	err := s.withLock(ctx, func() error {
		item, ok := s.data.categories[categoryID]
		if !ok || item.DeletedAt != nil {
			return domainerrors.ErrCategoryNotFound
		}
		category = item
		return nil
	})
	return category, err
}

func (s *Store) ListCategories(ctx context.Context) ([]entities.Category, error) {
	items := make([]entities.Category, 0)
	err := s.withLock(ctx, func() error {
		for _, category := range s.data.categories {
			if category.DeletedAt == nil {
				items = append(items, category)
			}
		}
		return nil
	})
	sort.Slice(items, func(i, j int) bool {
		return items[i].CategoryID < items[j].CategoryID
	})
	return items, err
}

func (s *Store) CreateCategory(ctx context.Context, name string, createdAt time.Time) (entities.Category, error) {
	var category entities.Category
	err := s.withLock(ctx, func() error {
		for _, existing := range s.data.categories {
			if existing.DeletedAt == nil && existing.Name == name {
				return domainerrors.ErrDuplicateRecord
			}
		}
		category = entities.Category{
			CategoryID: s.data.nextCategoryID,
			Name:       name,
			CreatedAt:  createdAt.UTC(),
		}
		s.data.nextCategoryID++
		s.data.categories[category.CategoryID] = category
		return nil
	})
	return category, err
}

func (s *Store) SoftDeleteCategory(ctx context.Context, categoryID int64, at time.Time) error {
	return s.withLock(ctx, func() error {
		category, ok := s.data.categories[categoryID]
		if !ok || category.DeletedAt != nil {
			return domainerrors.ErrCategoryNotFound
		}
		deletedAt := at.UTC()
		category.DeletedAt = &deletedAt
		s.data.categories[categoryID] = category
		return nil
	})
}

func (s *Store) GetThing(ctx context.Context, thingID int64) (entities.Thing, error) {
	var thing entities.Thing
	err := s.withLock(ctx, func() error {
		item, ok := s.data.things[thingID]
		if !ok || item.DeletedAt != nil {
			return domainerrors.ErrThingNotFound
		}
		thing = item
		return nil
	})
	return thing, err
}

func (s *Store) ListThings(ctx context.Context, query entities.ThingQuery) ([]entities.Thing, error) {
	query = query.Normalize()
	items := make([]entities.Thing, 0)
	err := s.withLock(ctx, func() error {
		for _, thing := range s.data.things {
			if thing.DeletedAt == nil {
				items = append(items, thing)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if query.Desc {
			a, b = b, a
		}
		switch query.Order {
		case entities.ThingOrderName:
			if cmp := strings.Compare(a.Name, b.Name); cmp != 0 {
				return cmp < 0
			}
		case entities.ThingOrderCreated:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ThingID < b.ThingID
	})

	if query.Offset >= len(items) {
		return []entities.Thing{}, nil
	}
	items = items[query.Offset:]
	if len(items) > query.Limit {
		items = items[:query.Limit]
	}
	return items, nil
}

func (s *Store) CreateThing(ctx context.Context, name string, file string, createdAt time.Time) (entities.Thing, error) {
	var thing entities.Thing
	err := s.withLock(ctx, func() error {
		for _, existing := range s.data.things {
			if existing.DeletedAt == nil && existing.Name == name {
				return domainerrors.ErrDuplicateRecord
			}
		}
		thing = entities.Thing{
			ThingID:   s.data.nextThingID,
			Name:      name,
			File:      file,
			CreatedAt: createdAt.UTC(),
		}
		s.data.nextThingID++
		s.data.things[thing.ThingID] = thing
		return nil
	})
	return thing, err
}

func (s *Store) SoftDeleteThing(ctx context.Context, thingID int64, at time.Time) error {
	return s.withLock(ctx, func() error {
		thing, ok := s.data.things[thingID]
		if !ok || thing.DeletedAt != nil {
			return domainerrors.ErrThingNotFound
		}
		deletedAt := at.UTC()
		thing.DeletedAt = &deletedAt
		s.data.things[thingID] = thing
		return nil
	})
}

func (s *Store) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	if err := s.injected("AppendOutbox"); err != nil {
		return err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		if existing, ok := s.data.outbox[outboxID]; ok {
			if !bytes.Equal(existing.message.Payload, payload) {
				return domainerrors.ErrDuplicateRecord
			}
			return nil
		}
		s.data.nextOutboxSeq++
		s.data.outbox[outboxID] = outboxRecord{
			message: ports.OutboxMessage{
				OutboxID:     outboxID,
				EventType:    envelope.EventType,
				PartitionKey: envelope.PartitionKey,
				Payload:      payload,
				CreatedAt:    envelope.OccurredAt.UTC(),
			},
			seq: s.data.nextOutboxSeq,
		}
		return nil
	})
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []outboxRecord
	err := s.withLock(ctx, func() error {
		for _, record := range s.data.outbox {
			if !record.published {
				records = append(records, record)
			}
		}
		return nil
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].seq < records[j].seq
	})
	if len(records) > limit {
		records = records[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(records))
	for _, record := range records {
		message := record.message
		message.Payload = append([]byte(nil), message.Payload...)
		items = append(items, message)
	}
	return items, err
}

func (s *Store) MarkOutboxPublished(ctx context.Context, outboxID string, _ time.Time) error {
	return s.withLock(ctx, func() error {
		record, ok := s.data.outbox[strings.TrimSpace(outboxID)]
		if !ok {
			return domainerrors.ErrOutboxMessageNotFound
		}
		record.published = true
		s.data.outbox[record.message.OutboxID] = record
		return nil
	})
}

// Rank returns a copy of a rank row, live or not.
func (s *Store) Rank(rankID int64) (entities.Rank, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rank, ok := s.data.ranks[rankID]
	return rank, ok
}

// Pairing returns the stored pairing of an account.
func (s *Store) Pairing(accountID int64) (entities.Pairing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pairing, ok := s.data.pairings[accountID]
	return pairing, ok
}

func (s *Store) PairingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.pairings)
}

func (s *Store) liveRanksLocked(categoryID int64) []entities.Rank {
	items := make([]entities.Rank, 0)
	for _, rank := range s.data.ranks {
		if rank.CategoryID == categoryID && rank.Live() {
			items = append(items, rank)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].RankID < items[j].RankID
	})
	return items
}

func (s *Store) liveRankLocked(thingID int64, categoryID int64) (entities.Rank, bool) {
	for _, rank := range s.data.ranks {
		if rank.ThingID == thingID && rank.CategoryID == categoryID && rank.Live() {
			return rank, true
		}
	}
	return entities.Rank{}, false
}

func (s *Store) softDeleteRanksLocked(at time.Time, match func(entities.Rank) bool) {
	deletedAt := at.UTC()
	for rankID, rank := range s.data.ranks {
		if rank.Live() && match(rank) {
			stamp := deletedAt
			rank.DeletedAt = &stamp
			s.data.ranks[rankID] = rank
		}
	}
}

var _ ports.UnitOfWork = (*Store)(nil)
var _ ports.RankRepository = (*Store)(nil)
var _ ports.PairingRepository = (*Store)(nil)
var _ ports.CatalogRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
