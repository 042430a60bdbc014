package entities

import (
	"strings"
	"time"
)

type Preference string

const (
	PreferenceA Preference = "A"
	PreferenceB Preference = "B"
)

func ParsePreference(raw string) (Preference, bool) {
	switch Preference(strings.ToUpper(strings.TrimSpace(raw))) {
	case PreferenceA:
		return PreferenceA, true
	case PreferenceB:
		return PreferenceB, true
	default:
		return "", false
	}
}

// Outcome is the result for thing A: 1 when A was preferred, 0 otherwise.
func (p Preference) Outcome() float64 {
	if p == PreferenceA {
		return 1
	}
	return 0
}

// Pairing is the single active poll of an account.
type Pairing struct {
	AccountID  int64
	CategoryID int64
	ThingIDA   int64
	ThingIDB   int64
	CreatedAt  time.Time
}

// ScoredPairing is a pairing joined with the current scores of both ranks.
type ScoredPairing struct {
	Pairing Pairing
	ScoreA  float64
	ScoreB  float64
}
