package pollengine_test

import (
	"context"
	"errors"
	"math"
	"testing"

	pollengine "rankit/contexts/ranking/poll-engine"
	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	httptransport "rankit/contexts/ranking/poll-engine/transport/http"
	eventsv1 "rankit/contracts/gen/events/v1"
)

type seededCategory struct {
	categoryID int64
	thingIDs   []int64
	rankIDs    []int64
}

func seed(t *testing.T, module pollengine.Module, name string, things ...string) seededCategory {
	t.Helper()
	ctx := context.Background()
	category, err := module.Handler.CreateCategoryHandler(ctx, httptransport.CreateCategoryRequest{Name: name})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	out := seededCategory{categoryID: category.CategoryID}
	for _, thingName := range things {
		thing, err := module.Handler.CreateThingHandler(ctx, httptransport.CreateThingRequest{Name: name + "/" + thingName})
		if err != nil {
			t.Fatalf("create thing failed: %v", err)
		}
		rank, err := module.Handler.CreateRankHandler(ctx, httptransport.CreateRankRequest{
			ThingID:    thing.ThingID,
			CategoryID: category.CategoryID,
		})
		if err != nil {
			t.Fatalf("create rank failed: %v", err)
		}
		out.thingIDs = append(out.thingIDs, thing.ThingID)
		out.rankIDs = append(out.rankIDs, rank.RankID)
	}
	return out
}

func scoresByThing(t *testing.T, module pollengine.Module, categoryID int64) map[int64]float64 {
	t.Helper()
	stats, err := module.Handler.CategoryStatisticsHandler(context.Background(), categoryID)
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	out := make(map[int64]float64, len(stats.Items))
	for _, item := range stats.Items {
		out[item.Thing.ThingID] = item.Score
	}
	return out
}

func TestPollStartKeepsSingleActivePairing(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat", "ran", "jaws")
	ctx := context.Background()

	if _, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID}); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	second, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID})
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if count := module.Store.PairingCount(); count != 1 {
		t.Fatalf("expected one pairing, got %d", count)
	}
	pairing, ok := module.Store.Pairing(1)
	if !ok {
		t.Fatalf("expected pairing for account 1")
	}
	if pairing.ThingIDA != second.ThingA.ThingID || pairing.ThingIDB != second.ThingB.ThingID {
		t.Fatalf("stored pairing does not match the latest start: %+v", pairing)
	}
}

func TestPollStartNeverPairsThingWithItself(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat", "ran")
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		result, err := module.Handler.StartPollHandler(ctx, 5, httptransport.StartPollRequest{CategoryID: films.categoryID})
		if err != nil {
			t.Fatalf("start %d failed: %v", i, err)
		}
		if result.ThingA.ThingID == result.ThingB.ThingID {
			t.Fatalf("start %d paired thing %d with itself", i, result.ThingA.ThingID)
		}
	}
}

func TestPollStartAdvancesDrawnRanks(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat", "ran")
	ctx := context.Background()

	result, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	drawn := map[int64]bool{result.ThingA.ThingID: true, result.ThingB.ThingID: true}
	for i, rankID := range films.rankIDs {
		rank, _ := module.Store.Rank(rankID)
		want := int64(0)
		if drawn[films.thingIDs[i]] {
			want = 1
		}
		if rank.Run != want {
			t.Fatalf("rank %d: expected run %d, got %d", rankID, want, rank.Run)
		}
	}
}

func TestPollDrawsEveryRankWithinHalfTheCategory(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat", "ran", "jaws", "up")
	ctx := context.Background()

	presented := map[int64]bool{}
	polls := (len(films.thingIDs) + 1) / 2
	for i := 0; i < polls; i++ {
		result, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID})
		if err != nil {
			t.Fatalf("start %d failed: %v", i, err)
		}
		presented[result.ThingA.ThingID] = true
		presented[result.ThingB.ThingID] = true
	}
	for _, thingID := range films.thingIDs {
		if !presented[thingID] {
			t.Fatalf("thing %d was never presented in %d polls", thingID, polls)
		}
	}
}

func TestPollStartWithTooFewItemsLeavesStateUntouched(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat")
	single := seed(t, module, "solo", "only")
	ctx := context.Background()

	if _, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	before, _ := module.Store.Pairing(1)

	_, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: single.categoryID})
	if !errors.Is(err, domainerrors.ErrNotEnoughItems) {
		t.Fatalf("expected ErrNotEnoughItems, got %v", err)
	}
	after, ok := module.Store.Pairing(1)
	if !ok || after != before {
		t.Fatalf("expected previous pairing to survive, got %+v (found=%v)", after, ok)
	}
	rank, _ := module.Store.Rank(single.rankIDs[0])
	if rank.Run != 0 {
		t.Fatalf("expected run 0 on undrawn rank, got %d", rank.Run)
	}

	empty := seed(t, module, "empty")
	_, err = module.Handler.StartPollHandler(ctx, 2, httptransport.StartPollRequest{CategoryID: empty.categoryID})
	if !errors.Is(err, domainerrors.ErrNotEnoughItems) {
		t.Fatalf("expected ErrNotEnoughItems for empty category, got %v", err)
	}
}

func TestPollStartUnknownCategory(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	_, err := module.Handler.StartPollHandler(context.Background(), 1, httptransport.StartPollRequest{CategoryID: 99})
	if !errors.Is(err, domainerrors.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestPollEndWithoutStart(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	err := module.Handler.EndPollHandler(context.Background(), 1, httptransport.EndPollRequest{Preference: "A"})
	if !errors.Is(err, domainerrors.ErrNotInPollingState) {
		t.Fatalf("expected ErrNotInPollingState, got %v", err)
	}
}

func TestPollEndRejectsUnknownPreference(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat")
	ctx := context.Background()
	if _, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	err := module.Handler.EndPollHandler(ctx, 1, httptransport.EndPollRequest{Preference: "C"})
	if !errors.Is(err, domainerrors.ErrInvalidPreference) {
		t.Fatalf("expected ErrInvalidPreference, got %v", err)
	}
	if _, ok := module.Store.Pairing(1); !ok {
		t.Fatalf("expected pairing to remain after rejected preference")
	}
}

func TestPollEndAppliesEloAndReturnsToIdle(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat")
	ctx := context.Background()

	started, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := module.Handler.EndPollHandler(ctx, 1, httptransport.EndPollRequest{Preference: "a"}); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	scores := scoresByThing(t, module, films.categoryID)
	if got := scores[started.ThingA.ThingID]; got != 1216 {
		t.Fatalf("expected winner score 1216, got %f", got)
	}
	if got := scores[started.ThingB.ThingID]; got != 1184 {
		t.Fatalf("expected loser score 1184, got %f", got)
	}
	if _, ok := module.Store.Pairing(1); ok {
		t.Fatalf("expected account to be idle after end")
	}
	err = module.Handler.EndPollHandler(ctx, 1, httptransport.EndPollRequest{Preference: "A"})
	if !errors.Is(err, domainerrors.ErrNotInPollingState) {
		t.Fatalf("expected second end to fail with ErrNotInPollingState, got %v", err)
	}
}

func TestPollEndDeltasAreEqualAndOpposite(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat", "ran", "jaws")
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		before := scoresByThing(t, module, films.categoryID)
		started, err := module.Handler.StartPollHandler(ctx, 3, httptransport.StartPollRequest{CategoryID: films.categoryID})
		if err != nil {
			t.Fatalf("start %d failed: %v", i, err)
		}
		preference := "A"
		if i%3 == 0 {
			preference = "B"
		}
		if err := module.Handler.EndPollHandler(ctx, 3, httptransport.EndPollRequest{Preference: preference}); err != nil {
			t.Fatalf("end %d failed: %v", i, err)
		}
		after := scoresByThing(t, module, films.categoryID)
		deltaA := after[started.ThingA.ThingID] - before[started.ThingA.ThingID]
		deltaB := after[started.ThingB.ThingID] - before[started.ThingB.ThingID]
		if math.Abs(deltaA+deltaB) > 1e-9 {
			t.Fatalf("poll %d: deltas %f and %f are not opposite", i, deltaA, deltaB)
		}
	}
}

func TestPollEndRollsBackOnFailure(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat")
	ctx := context.Background()

	if _, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	boom := errors.New("storage unavailable")
	module.Store.FailOn("DeletePairing", boom)

	err := module.Handler.EndPollHandler(ctx, 1, httptransport.EndPollRequest{Preference: "B"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	for thingID, score := range scoresByThing(t, module, films.categoryID) {
		if score != entities.InitialScore {
			t.Fatalf("thing %d: expected score rolled back to %f, got %f", thingID, entities.InitialScore, score)
		}
	}
	if _, ok := module.Store.Pairing(1); !ok {
		t.Fatalf("expected pairing to survive rolled back end")
	}
}

func TestPollEndAfterRankRemovedIsNotPolling(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat", "ran")
	ctx := context.Background()

	started, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i, thingID := range films.thingIDs {
		if thingID == started.ThingA.ThingID {
			if err := module.Handler.DeleteRankHandler(ctx, films.rankIDs[i]); err != nil {
				t.Fatalf("delete rank failed: %v", err)
			}
		}
	}
	err = module.Handler.EndPollHandler(ctx, 1, httptransport.EndPollRequest{Preference: "A"})
	if !errors.Is(err, domainerrors.ErrNotInPollingState) {
		t.Fatalf("expected ErrNotInPollingState, got %v", err)
	}
}

func TestDeleteCategoryAndThingCascadeToRanks(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat", "ran")
	books := seed(t, module, "books", "dune", "emma")
	ctx := context.Background()

	if err := module.Handler.DeleteCategoryHandler(ctx, films.categoryID); err != nil {
		t.Fatalf("delete category failed: %v", err)
	}
	for _, rankID := range films.rankIDs {
		rank, _ := module.Store.Rank(rankID)
		if rank.Live() {
			t.Fatalf("expected rank %d to be soft deleted", rankID)
		}
	}
	if _, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID}); !errors.Is(err, domainerrors.ErrCategoryNotFound) {
		t.Fatalf("expected deleted category to be unknown, got %v", err)
	}

	if err := module.Handler.DeleteThingHandler(ctx, books.thingIDs[0]); err != nil {
		t.Fatalf("delete thing failed: %v", err)
	}
	rank, _ := module.Store.Rank(books.rankIDs[0])
	if rank.Live() {
		t.Fatalf("expected rank of deleted thing to be soft deleted")
	}
	other, _ := module.Store.Rank(books.rankIDs[1])
	if !other.Live() {
		t.Fatalf("expected unrelated rank to stay live")
	}
	if _, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: books.categoryID}); !errors.Is(err, domainerrors.ErrNotEnoughItems) {
		t.Fatalf("expected ErrNotEnoughItems after cascade, got %v", err)
	}
}

func TestCreateRankValidatesReferencesAndPlacement(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat")
	ctx := context.Background()

	_, err := module.Handler.CreateRankHandler(ctx, httptransport.CreateRankRequest{ThingID: 404, CategoryID: films.categoryID})
	if !errors.Is(err, domainerrors.ErrThingOrCategoryNotFound) {
		t.Fatalf("expected ErrThingOrCategoryNotFound, got %v", err)
	}
	_, err = module.Handler.CreateRankHandler(ctx, httptransport.CreateRankRequest{ThingID: films.thingIDs[0], CategoryID: films.categoryID})
	if !errors.Is(err, domainerrors.ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := module.Handler.StartPollHandler(ctx, 1, httptransport.StartPollRequest{CategoryID: films.categoryID}); err != nil {
			t.Fatalf("start failed: %v", err)
		}
	}
	thing, err := module.Handler.CreateThingHandler(ctx, httptransport.CreateThingRequest{Name: "newcomer"})
	if err != nil {
		t.Fatalf("create thing failed: %v", err)
	}
	rank, err := module.Handler.CreateRankHandler(ctx, httptransport.CreateRankRequest{ThingID: thing.ThingID, CategoryID: films.categoryID})
	if err != nil {
		t.Fatalf("create rank failed: %v", err)
	}
	if rank.Run != 3 || rank.Score != entities.InitialScore {
		t.Fatalf("expected new rank at run 3 and initial score, got run %d score %f", rank.Run, rank.Score)
	}
}

func TestPollCycleWritesOutboxEvents(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	films := seed(t, module, "films", "alien", "heat")
	ctx := context.Background()

	if _, err := module.Handler.StartPollHandler(ctx, 8, httptransport.StartPollRequest{CategoryID: films.categoryID}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := module.Handler.EndPollHandler(ctx, 8, httptransport.EndPollRequest{Preference: "B"}); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	pending, err := module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 outbox rows, got %d", len(pending))
	}
	if pending[0].EventType != eventsv1.EventTypePollStarted || pending[1].EventType != eventsv1.EventTypePollCompleted {
		t.Fatalf("unexpected event order: %s, %s", pending[0].EventType, pending[1].EventType)
	}
	if pending[0].PartitionKey != "8" {
		t.Fatalf("expected account partition key, got %q", pending[0].PartitionKey)
	}
}

func TestListThingsOrderingAndPaging(t *testing.T) {
	module := pollengine.NewInMemoryModule(nil)
	ctx := context.Background()
	for _, name := range []string{"cherry", "apple", "banana"} {
		if _, err := module.Handler.CreateThingHandler(ctx, httptransport.CreateThingRequest{Name: name}); err != nil {
			t.Fatalf("create thing failed: %v", err)
		}
	}
	if _, err := module.Handler.CreateThingHandler(ctx, httptransport.CreateThingRequest{Name: "apple"}); !errors.Is(err, domainerrors.ErrDuplicateRecord) {
		t.Fatalf("expected duplicate thing to be rejected, got %v", err)
	}

	page, err := module.Handler.ListThingsHandler(ctx, entities.ThingQuery{Order: entities.ThingOrderName, Limit: 2})
	if err != nil {
		t.Fatalf("list things failed: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].Name != "apple" || page.Items[1].Name != "banana" {
		t.Fatalf("unexpected first page: %+v", page.Items)
	}
	page, err = module.Handler.ListThingsHandler(ctx, entities.ThingQuery{Order: entities.ThingOrderName, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list things failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "cherry" {
		t.Fatalf("unexpected second page: %+v", page.Items)
	}
}
