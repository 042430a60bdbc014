package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "rankit/contexts/ranking/poll-engine/application"
	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	"rankit/contexts/ranking/poll-engine/ports"
)

const maxNameLength = 200

type CreateThingCommand struct {
	Name string
	File string
}

// CatalogUseCase maintains categories and things. Deleting either one
// deactivates every rank that references it in the same unit of work.
type CatalogUseCase struct {
	UnitOfWork ports.UnitOfWork
	Catalog    ports.CatalogRepository
	Ranks      ports.RankRepository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (uc CatalogUseCase) CreateCategory(ctx context.Context, name string) (entities.Category, error) {
	logger := application.ResolveLogger(uc.Logger)
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return entities.Category{}, domainerrors.ErrInvalidInput
	}
	category, err := uc.Catalog.CreateCategory(ctx, name, uc.now())
	if err != nil {
		return entities.Category{}, err
	}
	logger.Info("category created",
		"event", "catalog_category_created",
		"module", "ranking/poll-engine",
		"layer", "application",
		"category_id", category.CategoryID,
	)
	return category, nil
}

func (uc CatalogUseCase) DeleteCategory(ctx context.Context, categoryID int64) error {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	err := uc.UnitOfWork.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.Catalog.SoftDeleteCategory(ctx, categoryID, now); err != nil {
			return err
		}
		return uc.Ranks.SoftDeleteByCategory(ctx, categoryID, now)
	})
	if err != nil {
		return err
	}
	logger.Info("category deleted",
		"event", "catalog_category_deleted",
		"module", "ranking/poll-engine",
		"layer", "application",
		"category_id", categoryID,
	)
	return nil
}

func (uc CatalogUseCase) CreateThing(ctx context.Context, cmd CreateThingCommand) (entities.Thing, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Name)
	if name == "" || len(name) > maxNameLength {
		return entities.Thing{}, domainerrors.ErrInvalidInput
	}
	thing, err := uc.Catalog.CreateThing(ctx, name, strings.TrimSpace(cmd.File), uc.now())
	if err != nil {
		return entities.Thing{}, err
	}
	logger.Info("thing created",
		"event", "catalog_thing_created",
		"module", "ranking/poll-engine",
		"layer", "application",
		"thing_id", thing.ThingID,
	)
	return thing, nil
}

func (uc CatalogUseCase) DeleteThing(ctx context.Context, thingID int64) error {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	err := uc.UnitOfWork.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.Catalog.SoftDeleteThing(ctx, thingID, now); err != nil {
			return err
		}
		return uc.Ranks.SoftDeleteByThing(ctx, thingID, now)
	})
	if err != nil {
		return err
	}
	logger.Info("thing deleted",
		"event", "catalog_thing_deleted",
		"module", "ranking/poll-engine",
		"layer", "application",
		"thing_id", thingID,
	)
	return nil
}

func (uc CatalogUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
