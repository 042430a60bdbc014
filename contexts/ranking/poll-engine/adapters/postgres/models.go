package postgresadapter

import (
	"time"

	"rankit/contexts/ranking/poll-engine/domain/entities"
)

type categoryModel struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string     `gorm:"column:name"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	Deleted   *time.Time `gorm:"column:deleted"`
}

func (categoryModel) TableName() string { return "category" }

func (m categoryModel) toEntity() entities.Category {
	return entities.Category{
		CategoryID: m.ID,
		Name:       m.Name,
		CreatedAt:  m.CreatedAt.UTC(),
		DeletedAt:  utcPtr(m.Deleted),
	}
}

type thingModel struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string     `gorm:"column:name"`
	File      string     `gorm:"column:file"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	Deleted   *time.Time `gorm:"column:deleted"`
}

func (thingModel) TableName() string { return "thing" }

func (m thingModel) toEntity() entities.Thing {
	return entities.Thing{
		ThingID:   m.ID,
		Name:      m.Name,
		File:      m.File,
		CreatedAt: m.CreatedAt.UTC(),
		DeletedAt: utcPtr(m.Deleted),
	}
}

type rankModel struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ThingID    int64      `gorm:"column:thing_id"`
	CategoryID int64      `gorm:"column:category_id"`
	Score      float64    `gorm:"column:score"`
	Run        int64      `gorm:"column:run"`
	Shuffle    int64      `gorm:"column:shuffle"`
	Deleted    *time.Time `gorm:"column:deleted"`
}

func (rankModel) TableName() string { return "rank" }

func (m rankModel) toEntity() entities.Rank {
	return entities.Rank{
		RankID:     m.ID,
		ThingID:    m.ThingID,
		CategoryID: m.CategoryID,
		Score:      m.Score,
		Run:        m.Run,
		Shuffle:    m.Shuffle,
		DeletedAt:  utcPtr(m.Deleted),
	}
}

func toRankEntities(rows []rankModel) []entities.Rank {
	items := make([]entities.Rank, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

// pairingModel is one row per polling account; the unique account_id keeps
// at most one active poll.
type pairingModel struct {
	AccountID  int64     `gorm:"column:account_id;primaryKey;autoIncrement:false"`
	CategoryID int64     `gorm:"column:category_id"`
	ThingIDA   int64     `gorm:"column:thing_id_a"`
	ThingIDB   int64     `gorm:"column:thing_id_b"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (pairingModel) TableName() string { return "poll" }

func pairingModelFromEntity(pairing entities.Pairing) pairingModel {
	createdAt := pairing.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return pairingModel{
		AccountID:  pairing.AccountID,
		CategoryID: pairing.CategoryID,
		ThingIDA:   pairing.ThingIDA,
		ThingIDB:   pairing.ThingIDB,
		CreatedAt:  createdAt,
	}
}

func (m pairingModel) toEntity() entities.Pairing {
	return entities.Pairing{
		AccountID:  m.AccountID,
		CategoryID: m.CategoryID,
		ThingIDA:   m.ThingIDA,
		ThingIDB:   m.ThingIDB,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type rankedThingRow struct {
	ID             int64
	ThingID        int64
	CategoryID     int64
	Score          float64
	Run            int64
	Shuffle        int64
	ThingName      string
	ThingFile      string
	ThingCreatedAt time.Time
}

func (r rankedThingRow) toEntity() entities.RankedThing {
	return entities.RankedThing{
		Rank: entities.Rank{
			RankID:     r.ID,
			ThingID:    r.ThingID,
			CategoryID: r.CategoryID,
			Score:      r.Score,
			Run:        r.Run,
			Shuffle:    r.Shuffle,
		},
		Thing: entities.Thing{
			ThingID:   r.ThingID,
			Name:      r.ThingName,
			File:      r.ThingFile,
			CreatedAt: r.ThingCreatedAt.UTC(),
		},
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "poll_outbox" }

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
