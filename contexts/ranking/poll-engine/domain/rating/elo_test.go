package rating

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRoundValuesAtEqualRatings(t *testing.T) {
	assert.Equal(t, 1216.0, Compute(1200, 1200, 1, 32, 400))
	assert.Equal(t, 1184.0, Compute(1200, 1200, 0, 32, 400))
}

func TestComputeUsesOverriddenConstants(t *testing.T) {
	assert.Equal(t, 1205.0, Compute(1200, 1200, 1, 10, 400))
	assert.Equal(t, 1195.0, Compute(1200, 1200, 0, 10, 200))
}

func TestUpdateDeltasAreEqualAndOpposite(t *testing.T) {
	model := DefaultModel()
	cases := []struct {
		a, b    float64
		outcome float64
	}{
		{1200, 1200, 1},
		{1400, 1100, 1},
		{1400, 1100, 0},
		{873.25, 1622.5, 1},
		{-300, 50, 0},
	}
	for _, tc := range cases {
		newA, newB := model.Update(tc.a, tc.b, tc.outcome)
		deltaA := newA - tc.a
		deltaB := newB - tc.b
		assert.InDelta(t, 0, deltaA+deltaB, 1e-9, "a=%v b=%v outcome=%v", tc.a, tc.b, tc.outcome)
		require.NotZero(t, deltaA)
		assert.True(t, math.Signbit(deltaA) != math.Signbit(deltaB))
	}
}

func TestUpdateFavouriteGainsLessThanUnderdog(t *testing.T) {
	model := DefaultModel()
	favouriteWins, _ := model.Update(1600, 1200, 1)
	underdogWins, _ := model.Update(1200, 1600, 1)
	assert.Less(t, favouriteWins-1600, underdogWins-1200)
}

func TestExpectedIsComplementary(t *testing.T) {
	for _, pair := range [][2]float64{{1200, 1200}, {1500, 1000}, {0, 4000}} {
		sum := Expected(pair[0], pair[1], DefaultScale) + Expected(pair[1], pair[0], DefaultScale)
		assert.InDelta(t, 1, sum, 1e-12)
	}
}

func TestComputeLargeFiniteRatingsStayFinite(t *testing.T) {
	got := Compute(1e6, -1e6, 1, DefaultK, DefaultScale)
	assert.False(t, math.IsNaN(got))
	assert.False(t, math.IsInf(got, 0))
	assert.Equal(t, 1e6, got)
}

func TestComputeNaNPropagatesWithoutPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, math.IsNaN(Compute(math.NaN(), 1200, 1, DefaultK, DefaultScale)))
		assert.True(t, math.IsNaN(Compute(math.Inf(1), math.Inf(1), 1, DefaultK, DefaultScale)))
	})
}
