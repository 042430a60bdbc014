package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"rankit/contexts/ranking/poll-engine/application/commands"
	"rankit/contexts/ranking/poll-engine/application/queries"
	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	httptransport "rankit/contexts/ranking/poll-engine/transport/http"
)

type Handler struct {
	Polls        commands.PollUseCase
	Ranks        commands.RankUseCase
	Catalog      commands.CatalogUseCase
	CatalogQuery queries.CatalogUseCase
	Logger       *slog.Logger
}

// StartPollHandler godoc
// @Summary Start a poll
// @Description Draws two things from the category and makes them the account's active pairing, replacing any previous one.
// @Tags polls
// @Accept json
// @Produce json
// @Param X-Account-Id header int true "Polling account id"
// @Param request body httptransport.StartPollRequest true "Category to poll"
// @Success 201 {object} httptransport.StartPollResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls [post]
func (h Handler) StartPollHandler(
	ctx context.Context,
	accountID int64,
	req httptransport.StartPollRequest,
) (httptransport.StartPollResponse, error) {
	result, err := h.Polls.StartPoll(ctx, commands.StartPollCommand{
		AccountID:  accountID,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return httptransport.StartPollResponse{}, err
	}
	return httptransport.StartPollResponse{
		Category: mapCategory(result.Category),
		ThingA:   mapThing(result.ThingA),
		ThingB:   mapThing(result.ThingB),
	}, nil
}

// EndPollHandler godoc
// @Summary End the active poll
// @Description Scores the active pairing with the preferred side and returns the account to idle.
// @Tags polls
// @Accept json
// @Param X-Account-Id header int true "Polling account id"
// @Param request body httptransport.EndPollRequest true "Preference A or B"
// @Success 204
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /polls/end [post]
func (h Handler) EndPollHandler(ctx context.Context, accountID int64, req httptransport.EndPollRequest) error {
	preference, ok := entities.ParsePreference(req.Preference)
	if !ok {
		return domainerrors.ErrInvalidPreference
	}
	_, err := h.Polls.EndPoll(ctx, commands.EndPollCommand{
		AccountID:  accountID,
		Preference: preference,
	})
	return err
}

func (h Handler) CreateCategoryHandler(
	ctx context.Context,
	req httptransport.CreateCategoryRequest,
) (httptransport.CategoryResponse, error) {
	category, err := h.Catalog.CreateCategory(ctx, req.Name)
	if err != nil {
		return httptransport.CategoryResponse{}, err
	}
	return mapCategory(category), nil
}

func (h Handler) GetCategoryHandler(ctx context.Context, categoryID int64) (httptransport.CategoryResponse, error) {
	category, err := h.CatalogQuery.GetCategory(ctx, categoryID)
	if err != nil {
		return httptransport.CategoryResponse{}, err
	}
	return mapCategory(category), nil
}

func (h Handler) ListCategoriesHandler(ctx context.Context) (httptransport.CategoryListResponse, error) {
	categories, err := h.CatalogQuery.ListCategories(ctx)
	if err != nil {
		return httptransport.CategoryListResponse{}, err
	}
	items := make([]httptransport.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, mapCategory(category))
	}
	return httptransport.CategoryListResponse{Items: items}, nil
}

func (h Handler) DeleteCategoryHandler(ctx context.Context, categoryID int64) error {
	return h.Catalog.DeleteCategory(ctx, categoryID)
}

// CategoryStatisticsHandler godoc
// @Summary Category ranking
// @Description Live things of a category ordered by score, best first.
// @Tags categories
// @Produce json
// @Param category_id path int true "Category id"
// @Success 200 {object} httptransport.CategoryStatisticsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /categories/{category_id}/statistics [get]
func (h Handler) CategoryStatisticsHandler(
	ctx context.Context,
	categoryID int64,
) (httptransport.CategoryStatisticsResponse, error) {
	statistics, err := h.CatalogQuery.CategoryStatistics(ctx, categoryID)
	if err != nil {
		return httptransport.CategoryStatisticsResponse{}, err
	}
	items := make([]httptransport.RankedThingResponse, 0, len(statistics.Things))
	for index, ranked := range statistics.Things {
		items = append(items, httptransport.RankedThingResponse{
			Position: index + 1,
			RankID:   ranked.Rank.RankID,
			Score:    ranked.Rank.Score,
			Thing:    mapThing(ranked.Thing),
		})
	}
	return httptransport.CategoryStatisticsResponse{
		Category: mapCategory(statistics.Category),
		Items:    items,
	}, nil
}

func (h Handler) CreateThingHandler(
	ctx context.Context,
	req httptransport.CreateThingRequest,
) (httptransport.ThingResponse, error) {
	thing, err := h.Catalog.CreateThing(ctx, commands.CreateThingCommand{
		Name: req.Name,
		File: req.File,
	})
	if err != nil {
		return httptransport.ThingResponse{}, err
	}
	return mapThing(thing), nil
}

func (h Handler) GetThingHandler(ctx context.Context, thingID int64) (httptransport.ThingResponse, error) {
	thing, err := h.CatalogQuery.GetThing(ctx, thingID)
	if err != nil {
		return httptransport.ThingResponse{}, err
	}
	return mapThing(thing), nil
}

func (h Handler) ListThingsHandler(ctx context.Context, query entities.ThingQuery) (httptransport.ThingListResponse, error) {
	query = query.Normalize()
	things, err := h.CatalogQuery.ListThings(ctx, query)
	if err != nil {
		return httptransport.ThingListResponse{}, err
	}
	items := make([]httptransport.ThingResponse, 0, len(things))
	for _, thing := range things {
		items = append(items, mapThing(thing))
	}
	return httptransport.ThingListResponse{
		Items:  items,
		Limit:  query.Limit,
		Offset: query.Offset,
	}, nil
}

func (h Handler) DeleteThingHandler(ctx context.Context, thingID int64) error {
	return h.Catalog.DeleteThing(ctx, thingID)
}

// CreateRankHandler godoc
// @Summary Add a thing to a category
// @Tags ranks
// @Accept json
// @Produce json
// @Param request body httptransport.CreateRankRequest true "Thing and category"
// @Success 201 {object} httptransport.RankResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /ranks [post]
func (h Handler) CreateRankHandler(
	ctx context.Context,
	req httptransport.CreateRankRequest,
) (httptransport.RankResponse, error) {
	rank, err := h.Ranks.CreateRank(ctx, commands.CreateRankCommand{
		ThingID:    req.ThingID,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		return httptransport.RankResponse{}, err
	}
	return httptransport.RankResponse{
		RankID:     rank.RankID,
		ThingID:    rank.ThingID,
		CategoryID: rank.CategoryID,
		Score:      rank.Score,
		Run:        rank.Run,
	}, nil
}

func (h Handler) DeleteRankHandler(ctx context.Context, rankID int64) error {
	return h.Ranks.DeleteRank(ctx, rankID)
}

func mapCategory(category entities.Category) httptransport.CategoryResponse {
	return httptransport.CategoryResponse{
		CategoryID: category.CategoryID,
		Name:       category.Name,
		CreatedAt:  category.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapThing(thing entities.Thing) httptransport.ThingResponse {
	return httptransport.ThingResponse{
		ThingID:   thing.ThingID,
		Name:      thing.Name,
		File:      thing.File,
		CreatedAt: thing.CreatedAt.UTC().Format(time.RFC3339),
	}
}
