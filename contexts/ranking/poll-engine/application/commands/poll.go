package commands

import (
	"context"
	"log/slog"
	"time"

	application "rankit/contexts/ranking/poll-engine/application"
	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	"rankit/contexts/ranking/poll-engine/domain/rating"
	"rankit/contexts/ranking/poll-engine/ports"
	eventsv1 "rankit/contracts/gen/events/v1"
)

const pollEventSource = "poll-engine"

type StartPollCommand struct {
	AccountID  int64
	CategoryID int64
}

// StartPollResult is the pairing presented to the account, hydrated with
// display data for both things.
type StartPollResult struct {
	Category entities.Category
	ThingA   entities.Thing
	ThingB   entities.Thing
}

type EndPollCommand struct {
	AccountID  int64
	Preference entities.Preference
}

type EndPollResult struct {
	Pairing entities.Pairing
	ScoreA  float64
	ScoreB  float64
}

// PollUseCase is the per-account poll state machine. An account is idle when
// it has no pairing row and polling while it has one.
type PollUseCase struct {
	UnitOfWork ports.UnitOfWork
	Draws      DrawScheduler
	Pairings   ports.PairingRepository
	Ranks      ports.RankRepository
	Catalog    ports.CatalogRepository
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Rating     rating.Model
	Logger     *slog.Logger
}

// StartPoll discards any previous pairing of the account, draws two ranks and
// stores the new pairing, all in one unit of work.
func (uc PollUseCase) StartPoll(ctx context.Context, cmd StartPollCommand) (StartPollResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("poll start processing started",
		"event", "poll_start_started",
		"module", "ranking/poll-engine",
		"layer", "application",
		"account_id", cmd.AccountID,
		"category_id", cmd.CategoryID,
	)
	if cmd.AccountID <= 0 || cmd.CategoryID <= 0 {
		return StartPollResult{}, domainerrors.ErrInvalidInput
	}

	now := uc.now()
	var result StartPollResult
	err := uc.UnitOfWork.WithinTx(ctx, func(ctx context.Context) error {
		category, err := uc.Catalog.GetCategory(ctx, cmd.CategoryID)
		if err != nil {
			return err
		}
		if err := uc.Pairings.DeletePairing(ctx, cmd.AccountID); err != nil {
			return err
		}
		rankA, rankB, err := uc.Draws.DrawTwo(ctx, category.CategoryID)
		if err != nil {
			return err
		}

		pairing := entities.Pairing{
			AccountID:  cmd.AccountID,
			CategoryID: category.CategoryID,
			ThingIDA:   rankA.ThingID,
			ThingIDB:   rankB.ThingID,
			CreatedAt:  now,
		}
		if err := uc.Pairings.UpsertPairing(ctx, pairing); err != nil {
			return err
		}

		thingA, err := uc.Catalog.GetThing(ctx, rankA.ThingID)
		if err != nil {
			return err
		}
		thingB, err := uc.Catalog.GetThing(ctx, rankB.ThingID)
		if err != nil {
			return err
		}

		if err := uc.appendEvent(ctx, now, eventsv1.PollStartedData{
			AccountID:  cmd.AccountID,
			CategoryID: category.CategoryID,
			ThingIDA:   rankA.ThingID,
			ThingIDB:   rankB.ThingID,
			Run:        rankA.Run,
		}); err != nil {
			return err
		}

		result = StartPollResult{
			Category: category,
			ThingA:   thingA,
			ThingB:   thingB,
		}
		return nil
	})
	if err != nil {
		logger.Warn("poll start failed",
			"event", "poll_start_failed",
			"module", "ranking/poll-engine",
			"layer", "application",
			"account_id", cmd.AccountID,
			"category_id", cmd.CategoryID,
			"error", err.Error(),
		)
		return StartPollResult{}, err
	}

	logger.Info("poll started",
		"event", "poll_started",
		"module", "ranking/poll-engine",
		"layer", "application",
		"account_id", cmd.AccountID,
		"category_id", cmd.CategoryID,
		"thing_id_a", result.ThingA.ThingID,
		"thing_id_b", result.ThingB.ThingID,
	)
	return result, nil
}

// EndPoll scores the account's pairing with the submitted preference and
// returns the account to idle.
func (uc PollUseCase) EndPoll(ctx context.Context, cmd EndPollCommand) (EndPollResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("poll end processing started",
		"event", "poll_end_started",
		"module", "ranking/poll-engine",
		"layer", "application",
		"account_id", cmd.AccountID,
		"preference", string(cmd.Preference),
	)
	if cmd.Preference != entities.PreferenceA && cmd.Preference != entities.PreferenceB {
		return EndPollResult{}, domainerrors.ErrInvalidPreference
	}
	if cmd.AccountID <= 0 {
		return EndPollResult{}, domainerrors.ErrInvalidInput
	}

	model := uc.Rating
	if model.K == 0 && model.Scale == 0 {
		model = rating.DefaultModel()
	}
	now := uc.now()

	var result EndPollResult
	err := uc.UnitOfWork.WithinTx(ctx, func(ctx context.Context) error {
		scored, found, err := uc.Pairings.GetScoredPairing(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrNotInPollingState
		}

		pairing := scored.Pairing
		scoreA, scoreB := model.Update(scored.ScoreA, scored.ScoreB, cmd.Preference.Outcome())
		if err := uc.Ranks.UpdateScore(ctx, pairing.ThingIDA, pairing.CategoryID, scoreA); err != nil {
			return err
		}
		if err := uc.Ranks.UpdateScore(ctx, pairing.ThingIDB, pairing.CategoryID, scoreB); err != nil {
			return err
		}
		if err := uc.Pairings.DeletePairing(ctx, cmd.AccountID); err != nil {
			return err
		}

		if err := uc.appendEvent(ctx, now, eventsv1.PollCompletedData{
			AccountID:      cmd.AccountID,
			CategoryID:     pairing.CategoryID,
			ThingIDA:       pairing.ThingIDA,
			ThingIDB:       pairing.ThingIDB,
			Preference:     string(cmd.Preference),
			PreviousScoreA: scored.ScoreA,
			PreviousScoreB: scored.ScoreB,
			ScoreA:         scoreA,
			ScoreB:         scoreB,
		}); err != nil {
			return err
		}

		result = EndPollResult{
			Pairing: pairing,
			ScoreA:  scoreA,
			ScoreB:  scoreB,
		}
		return nil
	})
	if err != nil {
		logger.Warn("poll end failed",
			"event", "poll_end_failed",
			"module", "ranking/poll-engine",
			"layer", "application",
			"account_id", cmd.AccountID,
			"error", err.Error(),
		)
		return EndPollResult{}, err
	}

	logger.Info("poll completed",
		"event", "poll_completed",
		"module", "ranking/poll-engine",
		"layer", "application",
		"account_id", cmd.AccountID,
		"category_id", result.Pairing.CategoryID,
		"score_a", result.ScoreA,
		"score_b", result.ScoreB,
	)
	return result, nil
}

// appendEvent writes event to the outbox inside the caller's unit of work.
// Without an outbox or id generator wired, events are not recorded.
func (uc PollUseCase) appendEvent(ctx context.Context, occurredAt time.Time, event eventsv1.PollEvent) error {
	if uc.Outbox == nil || uc.IDGen == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := eventsv1.NewPollEnvelope(eventID, pollEventSource, occurredAt, event)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc PollUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
