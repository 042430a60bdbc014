package entities

import "time"

// InitialScore is the Elo rating every new rank starts from.
const InitialScore = 1200.0

type Rank struct {
	RankID     int64
	ThingID    int64
	CategoryID int64
	Score      float64
	Run        int64
	Shuffle    int64
	DeletedAt  *time.Time
}

func (r Rank) Live() bool {
	return r.DeletedAt == nil
}

// Less reports whether r is drawn before other: lower run first, shuffle
// breaks ties inside a run.
func (r Rank) Less(other Rank) bool {
	if r.Run == other.Run {
		if r.Shuffle == other.Shuffle {
			return r.RankID < other.RankID
		}
		return r.Shuffle < other.Shuffle
	}
	return r.Run < other.Run
}

type RankedThing struct {
	Rank  Rank
	Thing Thing
}
