// Package rating holds the Elo model used to score pairwise polls.
package rating

import "math"

const (
	DefaultK     = 32.0
	DefaultScale = 400.0
)

// Model carries the Elo constants. The zero value is not usable; start from
// DefaultModel.
type Model struct {
	K     float64
	Scale float64
}

func DefaultModel() Model {
	return Model{K: DefaultK, Scale: DefaultScale}
}

// Expected is the probability that a side rated a beats a side rated b,
// 10^(a/s) / (10^(a/s) + 10^(b/s)). It is evaluated in the logistic form so
// large finite ratings do not overflow.
func Expected(a float64, b float64, scale float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/scale))
}

// Compute returns the updated rating of the side rated a after a comparison
// against b. outcome is 1 when side a won and 0 when it lost.
func Compute(a float64, b float64, outcome float64, k float64, scale float64) float64 {
	return a + k*(outcome-Expected(a, b, scale))
}

// Update scores one comparison from both sides. outcome is the result for
// side a.
func (m Model) Update(a float64, b float64, outcome float64) (float64, float64) {
	newA := Compute(a, b, outcome, m.K, m.Scale)
	newB := Compute(b, a, 1-outcome, m.K, m.Scale)
	return newA, newB
}
