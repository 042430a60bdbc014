package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"rankit/contexts/ranking/poll-engine/adapters/memory"
	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedShuffle struct {
	values []int64
	next   int
}

func (f *fixedShuffle) NextShuffle() int64 {
	value := f.values[f.next%len(f.values)]
	f.next++
	return value
}

func seedRanks(t *testing.T, store *memory.Store, things int) (entities.Category, []entities.Rank) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	category, err := store.CreateCategory(ctx, "films", now)
	require.NoError(t, err)

	ranks := make([]entities.Rank, 0, things)
	for i := 0; i < things; i++ {
		thing, err := store.CreateThing(ctx, "thing-"+string(rune('a'+i)), "", now)
		require.NoError(t, err)
		rank, err := store.Create(ctx, thing.ThingID, category.CategoryID)
		require.NoError(t, err)
		ranks = append(ranks, rank)
	}
	return category, ranks
}

func TestDrawTwoPicksLowestRunsAndAdvances(t *testing.T) {
	store := memory.NewStore()
	// Later ranks get smaller shuffle keys, so they win ties inside run 0.
	store.SetShuffleSource(&fixedShuffle{values: []int64{30, 20, 10, 50, 60, 70, 80}})
	category, ranks := seedRanks(t, store, 3)
	scheduler := DrawScheduler{UnitOfWork: store, Ranks: store}

	rankA, rankB, err := scheduler.DrawTwo(context.Background(), category.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, ranks[2].RankID, rankA.RankID)
	assert.Equal(t, ranks[1].RankID, rankB.RankID)
	assert.Equal(t, int64(1), rankA.Run)
	assert.Equal(t, int64(1), rankB.Run)

	untouched, ok := store.Rank(ranks[0].RankID)
	require.True(t, ok)
	assert.Equal(t, int64(0), untouched.Run)

	rankA, _, err = scheduler.DrawTwo(context.Background(), category.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, ranks[0].RankID, rankA.RankID)
	assert.Equal(t, int64(2), rankA.Run)
}

func TestDrawTwoNotEnoughItemsLeavesRanksUntouched(t *testing.T) {
	store := memory.NewStore()
	category, ranks := seedRanks(t, store, 1)
	scheduler := DrawScheduler{UnitOfWork: store, Ranks: store}

	_, _, err := scheduler.DrawTwo(context.Background(), category.CategoryID)
	require.ErrorIs(t, err, domainerrors.ErrNotEnoughItems)

	rank, ok := store.Rank(ranks[0].RankID)
	require.True(t, ok)
	assert.Equal(t, ranks[0], rank)
}

func TestDrawTwoSkipsDeletedRanks(t *testing.T) {
	store := memory.NewStore()
	category, ranks := seedRanks(t, store, 3)
	require.NoError(t, store.SoftDelete(context.Background(), ranks[0].RankID, time.Now()))
	scheduler := DrawScheduler{UnitOfWork: store, Ranks: store}

	rankA, rankB, err := scheduler.DrawTwo(context.Background(), category.CategoryID)
	require.NoError(t, err)
	assert.NotEqual(t, ranks[0].RankID, rankA.RankID)
	assert.NotEqual(t, ranks[0].RankID, rankB.RankID)
	assert.NotEqual(t, rankA.RankID, rankB.RankID)
}

func TestDrawTwoAdvanceFailureRollsBack(t *testing.T) {
	store := memory.NewStore()
	category, ranks := seedRanks(t, store, 2)
	scheduler := DrawScheduler{UnitOfWork: store, Ranks: store}
	boom := errors.New("advance failed")
	store.FailOn("Advance", boom)

	_, _, err := scheduler.DrawTwo(context.Background(), category.CategoryID)
	require.ErrorIs(t, err, boom)
	for _, original := range ranks {
		rank, _ := store.Rank(original.RankID)
		assert.Equal(t, original.Run, rank.Run)
	}
}

func TestDrawTwoRunsStayWithinOneOfEachOther(t *testing.T) {
	store := memory.NewStore()
	category, ranks := seedRanks(t, store, 6)
	scheduler := DrawScheduler{UnitOfWork: store, Ranks: store}

	for i := 0; i < 40; i++ {
		_, _, err := scheduler.DrawTwo(context.Background(), category.CategoryID)
		require.NoError(t, err)

		var low, high int64
		for j, original := range ranks {
			rank, _ := store.Rank(original.RankID)
			if j == 0 || rank.Run < low {
				low = rank.Run
			}
			if j == 0 || rank.Run > high {
				high = rank.Run
			}
		}
		assert.LessOrEqual(t, high-low, int64(2), "draw %d spread runs too far", i)
	}
}
