package entities

import "time"

type Category struct {
	CategoryID int64
	Name       string
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

type Thing struct {
	ThingID   int64
	Name      string
	File      string
	CreatedAt time.Time
	DeletedAt *time.Time
}

type ThingOrder string

const (
	ThingOrderID      ThingOrder = ""
	ThingOrderName    ThingOrder = "name"
	ThingOrderCreated ThingOrder = "created"
)

type ThingQuery struct {
	Order  ThingOrder
	Desc   bool
	Limit  int
	Offset int
}

const (
	DefaultThingLimit = 20
	MaxThingLimit     = 100
)

// Normalize clamps the page window to the supported range.
func (q ThingQuery) Normalize() ThingQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultThingLimit
	}
	if q.Limit > MaxThingLimit {
		q.Limit = MaxThingLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	switch q.Order {
	case ThingOrderName, ThingOrderCreated:
	default:
		q.Order = ThingOrderID
	}
	return q
}

type CategoryStatistics struct {
	Category Category
	Things   []RankedThing
}
