package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "rankit/contexts/ranking/poll-engine/application"
	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	"rankit/contexts/ranking/poll-engine/ports"
)

type CreateRankCommand struct {
	ThingID    int64
	CategoryID int64
}

// RankUseCase places things into categories and removes them again.
type RankUseCase struct {
	UnitOfWork ports.UnitOfWork
	Ranks      ports.RankRepository
	Catalog    ports.CatalogRepository
	Clock      ports.Clock
	Logger     *slog.Logger
}

// CreateRank inserts a live rank for an existing thing and category. The new
// rank enters at the category's lowest run so it is drawn before ranks that
// have already been presented.
func (uc RankUseCase) CreateRank(ctx context.Context, cmd CreateRankCommand) (entities.Rank, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.ThingID <= 0 || cmd.CategoryID <= 0 {
		return entities.Rank{}, domainerrors.ErrInvalidInput
	}

	var rank entities.Rank
	err := uc.UnitOfWork.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.Catalog.GetThing(ctx, cmd.ThingID); err != nil {
			return asThingOrCategoryNotFound(err)
		}
		if _, err := uc.Catalog.GetCategory(ctx, cmd.CategoryID); err != nil {
			return asThingOrCategoryNotFound(err)
		}
		created, err := uc.Ranks.Create(ctx, cmd.ThingID, cmd.CategoryID)
		if err != nil {
			return err
		}
		rank = created
		return nil
	})
	if err != nil {
		logger.Warn("rank create failed",
			"event", "rank_create_failed",
			"module", "ranking/poll-engine",
			"layer", "application",
			"thing_id", cmd.ThingID,
			"category_id", cmd.CategoryID,
			"error", err.Error(),
		)
		return entities.Rank{}, err
	}

	logger.Info("rank created",
		"event", "rank_created",
		"module", "ranking/poll-engine",
		"layer", "application",
		"rank_id", rank.RankID,
		"thing_id", rank.ThingID,
		"category_id", rank.CategoryID,
		"run", rank.Run,
	)
	return rank, nil
}

func (uc RankUseCase) DeleteRank(ctx context.Context, rankID int64) error {
	logger := application.ResolveLogger(uc.Logger)
	if rankID <= 0 {
		return domainerrors.ErrRankNotFound
	}
	if err := uc.Ranks.SoftDelete(ctx, rankID, uc.now()); err != nil {
		return err
	}
	logger.Info("rank deleted",
		"event", "rank_deleted",
		"module", "ranking/poll-engine",
		"layer", "application",
		"rank_id", rankID,
	)
	return nil
}

func (uc RankUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func asThingOrCategoryNotFound(err error) error {
	if errors.Is(err, domainerrors.ErrThingNotFound) || errors.Is(err, domainerrors.ErrCategoryNotFound) {
		return domainerrors.ErrThingOrCategoryNotFound
	}
	return err
}
