package commands

import (
	"context"
	"log/slog"

	application "rankit/contexts/ranking/poll-engine/application"
	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	"rankit/contexts/ranking/poll-engine/ports"
)

// DrawScheduler picks the two least recently presented ranks of a category
// and pushes them behind every rank that has not been presented since.
type DrawScheduler struct {
	UnitOfWork ports.UnitOfWork
	Ranks      ports.RankRepository
	Logger     *slog.Logger
}

// DrawTwo selects and advances two distinct live ranks. Selection and advance
// share one unit of work, joining the caller's when one is open.
func (s DrawScheduler) DrawTwo(ctx context.Context, categoryID int64) (entities.Rank, entities.Rank, error) {
	logger := application.ResolveLogger(s.Logger)
	var rankA, rankB entities.Rank
	err := s.UnitOfWork.WithinTx(ctx, func(ctx context.Context) error {
		ranks, err := s.Ranks.GetLiveRanksOrdered(ctx, categoryID, 2)
		if err != nil {
			return err
		}
		if len(ranks) < 2 {
			logger.Info("draw found too few live ranks",
				"event", "poll_draw_not_enough_items",
				"module", "ranking/poll-engine",
				"layer", "application",
				"category_id", categoryID,
				"live_ranks", len(ranks),
			)
			return domainerrors.ErrNotEnoughItems
		}

		rankA, rankB = ranks[0], ranks[1]
		newRun := max(rankA.Run, rankB.Run) + 1
		if err := s.Ranks.Advance(ctx, []int64{rankA.RankID, rankB.RankID}, newRun); err != nil {
			return err
		}
		rankA.Run = newRun
		rankB.Run = newRun
		return nil
	})
	if err != nil {
		return entities.Rank{}, entities.Rank{}, err
	}

	logger.Debug("draw advanced ranks",
		"event", "poll_draw_advanced",
		"module", "ranking/poll-engine",
		"layer", "application",
		"category_id", categoryID,
		"thing_id_a", rankA.ThingID,
		"thing_id_b", rankB.ThingID,
		"run", rankA.Run,
	)
	return rankA, rankB, nil
}
