package queries

import (
	"context"

	"rankit/contexts/ranking/poll-engine/domain/entities"
	"rankit/contexts/ranking/poll-engine/ports"
)

type CatalogUseCase struct {
	Catalog ports.CatalogRepository
	Ranks   ports.RankRepository
}

func (uc CatalogUseCase) GetCategory(ctx context.Context, categoryID int64) (entities.Category, error) {
	return uc.Catalog.GetCategory(ctx, categoryID)
}

func (uc CatalogUseCase) ListCategories(ctx context.Context) ([]entities.Category, error) {
	return uc.Catalog.ListCategories(ctx)
}

func (uc CatalogUseCase) GetThing(ctx context.Context, thingID int64) (entities.Thing, error) {
	return uc.Catalog.GetThing(ctx, thingID)
}

func (uc CatalogUseCase) ListThings(ctx context.Context, query entities.ThingQuery) ([]entities.Thing, error) {
	return uc.Catalog.ListThings(ctx, query.Normalize())
}

// CategoryStatistics returns the live ranked things of a category, best
// score first.
func (uc CatalogUseCase) CategoryStatistics(ctx context.Context, categoryID int64) (entities.CategoryStatistics, error) {
	category, err := uc.Catalog.GetCategory(ctx, categoryID)
	if err != nil {
		return entities.CategoryStatistics{}, err
	}
	things, err := uc.Ranks.ListRankedThings(ctx, category.CategoryID)
	if err != nil {
		return entities.CategoryStatistics{}, err
	}
	return entities.CategoryStatistics{
		Category: category,
		Things:   things,
	}, nil
}
