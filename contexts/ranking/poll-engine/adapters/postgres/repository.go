package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	"rankit/contexts/ranking/poll-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type txKey struct{}

type Repository struct {
	db      *gorm.DB
	logger  *slog.Logger
	shuffle ports.ShuffleSource
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:      db,
		logger:  logger,
		shuffle: RandomShuffle{},
	}
}

// WithShuffleSource returns a copy of the repository drawing shuffle keys from
// source.
func (r *Repository) WithShuffleSource(source ports.ShuffleSource) *Repository {
	clone := *r
	if source != nil {
		clone.shuffle = source
	}
	return &clone
}

// WithinTx opens a gorm transaction and binds it to the ctx handed to fn.
// A ctx that already carries a transaction joins it.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *Repository) GetLiveRanksOrdered(ctx context.Context, categoryID int64, limit int) ([]entities.Rank, error) {
	db := r.conn(ctx)

	// The category row lock serializes concurrent draws on one category, so
	// the rank read below always sees the previous draw's advance.
	var category categoryModel
	if err := db.Clauses(clause.Locking{Strength: "NO KEY UPDATE"}).
		Select("id").
		Where("id = ?", categoryID).
		Take(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []entities.Rank{}, nil
		}
		return nil, r.logError("poll_repo_lock_category_failed", err, "category_id", categoryID)
	}

	query := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("category_id = ?", categoryID).
		Where("deleted IS NULL").
		Order("run ASC").
		Order("shuffle ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []rankModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_get_live_ranks_failed", err, "category_id", categoryID)
	}
	return toRankEntities(rows), nil
}

func (r *Repository) Advance(ctx context.Context, rankIDs []int64, newRun int64) error {
	db := r.conn(ctx)
	for _, rankID := range rankIDs {
		result := db.Model(&rankModel{}).
			Where("id = ?", rankID).
			Where("deleted IS NULL").
			Updates(map[string]any{
				"run":     newRun,
				"shuffle": r.shuffle.NextShuffle(),
			})
		if result.Error != nil {
			return r.logError("poll_repo_advance_failed", result.Error,
				"rank_id", rankID,
				"run", newRun,
			)
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrRankNotFound
		}
	}
	return nil
}

func (r *Repository) UpdateScore(ctx context.Context, thingID int64, categoryID int64, score float64) error {
	result := r.conn(ctx).Model(&rankModel{}).
		Where("thing_id = ?", thingID).
		Where("category_id = ?", categoryID).
		Where("deleted IS NULL").
		Update("score", score)
	if result.Error != nil {
		return r.logError("poll_repo_update_score_failed", result.Error,
			"thing_id", thingID,
			"category_id", categoryID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRankNotFound
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, thingID int64, categoryID int64) (entities.Rank, error) {
	db := r.conn(ctx)

	var existing int64
	if err := db.Model(&rankModel{}).
		Where("thing_id = ?", thingID).
		Where("category_id = ?", categoryID).
		Where("deleted IS NULL").
		Count(&existing).Error; err != nil {
		return entities.Rank{}, r.logError("poll_repo_rank_exists_failed", err,
			"thing_id", thingID,
			"category_id", categoryID,
		)
	}
	if existing > 0 {
		return entities.Rank{}, domainerrors.ErrDuplicateRecord
	}

	var minRun int64
	if err := db.Model(&rankModel{}).
		Select("COALESCE(MIN(run), 0)").
		Where("category_id = ?", categoryID).
		Where("deleted IS NULL").
		Row().
		Scan(&minRun); err != nil {
		return entities.Rank{}, r.logError("poll_repo_min_run_failed", err, "category_id", categoryID)
	}

	row := rankModel{
		ThingID:    thingID,
		CategoryID: categoryID,
		Score:      entities.InitialScore,
		Run:        minRun,
		Shuffle:    r.shuffle.NextShuffle(),
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Rank{}, domainerrors.ErrDuplicateRecord
		}
		return entities.Rank{}, r.logError("poll_repo_create_rank_failed", err,
			"thing_id", thingID,
			"category_id", categoryID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) SoftDelete(ctx context.Context, rankID int64, at time.Time) error {
	result := r.conn(ctx).Model(&rankModel{}).
		Where("id = ?", rankID).
		Where("deleted IS NULL").
		Update("deleted", at.UTC())
	if result.Error != nil {
		return r.logError("poll_repo_soft_delete_rank_failed", result.Error, "rank_id", rankID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRankNotFound
	}
	return nil
}

func (r *Repository) SoftDeleteByCategory(ctx context.Context, categoryID int64, at time.Time) error {
	if err := r.conn(ctx).Model(&rankModel{}).
		Where("category_id = ?", categoryID).
		Where("deleted IS NULL").
		Update("deleted", at.UTC()).Error; err != nil {
		return r.logError("poll_repo_soft_delete_ranks_by_category_failed", err, "category_id", categoryID)
	}
	return nil
}

func (r *Repository) SoftDeleteByThing(ctx context.Context, thingID int64, at time.Time) error {
	if err := r.conn(ctx).Model(&rankModel{}).
		Where("thing_id = ?", thingID).
		Where("deleted IS NULL").
		Update("deleted", at.UTC()).Error; err != nil {
		return r.logError("poll_repo_soft_delete_ranks_by_thing_failed", err, "thing_id", thingID)
	}
	return nil
}

func (r *Repository) ListRankedThings(ctx context.Context, categoryID int64) ([]entities.RankedThing, error) {
	var rows []rankedThingRow
	if err := r.conn(ctx).
		Table("rank AS r").
		Select(
			"r.id, r.thing_id, r.category_id, r.score, r.run, r.shuffle, " +
				"t.name AS thing_name, t.file AS thing_file, t.created_at AS thing_created_at",
		).
		Joins("JOIN thing t ON t.id = r.thing_id").
		Where("r.category_id = ?", categoryID).
		Where("r.deleted IS NULL").
		Where("t.deleted IS NULL").
		Order("r.score DESC").
		Order("r.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_ranked_things_failed", err, "category_id", categoryID)
	}
	items := make([]entities.RankedThing, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) DeletePairing(ctx context.Context, accountID int64) error {
	if err := r.conn(ctx).
		Where("account_id = ?", accountID).
		Delete(&pairingModel{}).Error; err != nil {
		return r.logError("poll_repo_delete_pairing_failed", err, "account_id", accountID)
	}
	return nil
}

// UpsertPairing writes the account's single poll row. A start that raced
// another start for the same account past its DELETE overwrites the row
// instead of failing on the primary key.
func (r *Repository) UpsertPairing(ctx context.Context, pairing entities.Pairing) error {
	row := pairingModelFromEntity(pairing)
	err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"category_id", "thing_id_a", "thing_id_b", "created_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return r.logError("poll_repo_upsert_pairing_failed", err,
			"account_id", pairing.AccountID,
			"category_id", pairing.CategoryID,
		)
	}
	return nil
}

func (r *Repository) GetScoredPairing(ctx context.Context, accountID int64) (entities.ScoredPairing, bool, error) {
	db := r.conn(ctx)

	var pairing pairingModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", accountID).
		Take(&pairing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ScoredPairing{}, false, nil
		}
		return entities.ScoredPairing{}, false, r.logError("poll_repo_get_pairing_failed", err, "account_id", accountID)
	}

	var ranks []rankModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("category_id = ?", pairing.CategoryID).
		Where("thing_id IN ?", []int64{pairing.ThingIDA, pairing.ThingIDB}).
		Where("deleted IS NULL").
		Order("id ASC").
		Find(&ranks).Error; err != nil {
		return entities.ScoredPairing{}, false, r.logError("poll_repo_get_pairing_ranks_failed", err,
			"account_id", accountID,
			"category_id", pairing.CategoryID,
		)
	}

	scores := make(map[int64]float64, len(ranks))
	for _, rank := range ranks {
		scores[rank.ThingID] = rank.Score
	}
	scoreA, okA := scores[pairing.ThingIDA]
	scoreB, okB := scores[pairing.ThingIDB]
	if !okA || !okB {
		return entities.ScoredPairing{}, false, nil
	}
	return entities.ScoredPairing{
		Pairing: pairing.toEntity(),
		ScoreA:  scoreA,
		ScoreB:  scoreB,
	}, true, nil
}

func (r *Repository) DeletePairingsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.conn(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Delete(&pairingModel{})
	if result.Error != nil {
		return 0, r.logError("poll_repo_expire_pairings_failed", result.Error, "cutoff", cutoff.UTC())
	}
	return result.RowsAffected, nil
}

func (r *Repository) GetCategory(ctx context.Context, categoryID int64) (entities.Category, error) {
	var row categoryModel
	if err := r.conn(ctx).
		Where("id = ?", categoryID).
		Where("deleted IS NULL").
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Category{}, domainerrors.ErrCategoryNotFound
		}
		return entities.Category{}, r.logError("poll_repo_get_category_failed", err, "category_id", categoryID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]entities.Category, error) {
	var rows []categoryModel
	if err := r.conn(ctx).
		Where("deleted IS NULL").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_categories_failed", err)
	}
	items := make([]entities.Category, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateCategory(ctx context.Context, name string, createdAt time.Time) (entities.Category, error) {
	db := r.conn(ctx)
	var existing int64
	if err := db.Model(&categoryModel{}).
		Where("name = ?", name).
		Where("deleted IS NULL").
		Count(&existing).Error; err != nil {
		return entities.Category{}, r.logError("poll_repo_category_exists_failed", err, "name", name)
	}
	if existing > 0 {
		return entities.Category{}, domainerrors.ErrDuplicateRecord
	}

	row := categoryModel{Name: name, CreatedAt: createdAt.UTC()}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Category{}, domainerrors.ErrDuplicateRecord
		}
		return entities.Category{}, r.logError("poll_repo_create_category_failed", err, "name", name)
	}
	return row.toEntity(), nil
}

func (r *Repository) SoftDeleteCategory(ctx context.Context, categoryID int64, at time.Time) error {
	result := r.conn(ctx).Model(&categoryModel{}).
		Where("id = ?", categoryID).
		Where("deleted IS NULL").
		Update("deleted", at.UTC())
	if result.Error != nil {
		return r.logError("poll_repo_soft_delete_category_failed", result.Error, "category_id", categoryID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCategoryNotFound
	}
	return nil
}

func (r *Repository) GetThing(ctx context.Context, thingID int64) (entities.Thing, error) {
	var row thingModel
	if err := r.conn(ctx).
		Where("id = ?", thingID).
		Where("deleted IS NULL").
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Thing{}, domainerrors.ErrThingNotFound
		}
		return entities.Thing{}, r.logError("poll_repo_get_thing_failed", err, "thing_id", thingID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListThings(ctx context.Context, query entities.ThingQuery) ([]entities.Thing, error) {
	query = query.Normalize()
	direction := " ASC"
	if query.Desc {
		direction = " DESC"
	}

	tx := r.conn(ctx).Where("deleted IS NULL")
	switch query.Order {
	case entities.ThingOrderName:
		tx = tx.Order("name" + direction)
	case entities.ThingOrderCreated:
		tx = tx.Order("created_at" + direction)
	}
	tx = tx.Order("id" + direction)

	var rows []thingModel
	if err := tx.Limit(query.Limit).Offset(query.Offset).Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_things_failed", err,
			"order", string(query.Order),
			"limit", query.Limit,
		)
	}
	items := make([]entities.Thing, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateThing(ctx context.Context, name string, file string, createdAt time.Time) (entities.Thing, error) {
	db := r.conn(ctx)
	var existing int64
	if err := db.Model(&thingModel{}).
		Where("name = ?", name).
		Where("deleted IS NULL").
		Count(&existing).Error; err != nil {
		return entities.Thing{}, r.logError("poll_repo_thing_exists_failed", err, "name", name)
	}
	if existing > 0 {
		return entities.Thing{}, domainerrors.ErrDuplicateRecord
	}

	row := thingModel{Name: name, File: file, CreatedAt: createdAt.UTC()}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Thing{}, domainerrors.ErrDuplicateRecord
		}
		return entities.Thing{}, r.logError("poll_repo_create_thing_failed", err, "name", name)
	}
	return row.toEntity(), nil
}

func (r *Repository) SoftDeleteThing(ctx context.Context, thingID int64, at time.Time) error {
	result := r.conn(ctx).Model(&thingModel{}).
		Where("id = ?", thingID).
		Where("deleted IS NULL").
		Update("deleted", at.UTC())
	if result.Error != nil {
		return r.logError("poll_repo_soft_delete_thing_failed", result.Error, "thing_id", thingID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrThingNotFound
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("poll_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	db := r.conn(ctx)
	create := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("poll_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := db.Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		Take(&existing).Error; err != nil {
		return r.logError("poll_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrDuplicateRecord
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.conn(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.conn(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("poll_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxMessageNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "ranking/poll-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("poll repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.UnitOfWork = (*Repository)(nil)
var _ ports.RankRepository = (*Repository)(nil)
var _ ports.PairingRepository = (*Repository)(nil)
var _ ports.CatalogRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
