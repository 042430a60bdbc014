package postgresadapter

import (
	"context"
	"math/rand/v2"
	"time"

	"rankit/contexts/ranking/poll-engine/ports"

	"github.com/google/uuid"
)

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator issues outbox event ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// RandomShuffle draws rank tie-break keys from the process-wide generator.
type RandomShuffle struct{}

func (RandomShuffle) NextShuffle() int64 {
	return int64(rand.Int32())
}

var (
	_ ports.Clock         = SystemClock{}
	_ ports.IDGenerator   = UUIDGenerator{}
	_ ports.ShuffleSource = RandomShuffle{}
)
