package workers

import (
	"context"
	"log/slog"
	"time"

	application "rankit/contexts/ranking/poll-engine/application"
	"rankit/contexts/ranking/poll-engine/ports"
)

// PairingExpirer drops pairings that were started but never scored. A zero
// TTL disables it; abandoned pairings are then only replaced by the next
// start-poll of the same account.
type PairingExpirer struct {
	Pairings ports.PairingRepository
	Clock    ports.Clock
	TTL      time.Duration
	Logger   *slog.Logger
}

func (e PairingExpirer) RunOnce(ctx context.Context) error {
	if e.TTL <= 0 {
		return nil
	}
	logger := application.ResolveLogger(e.Logger)
	now := time.Now().UTC()
	if e.Clock != nil {
		now = e.Clock.Now().UTC()
	}

	removed, err := e.Pairings.DeletePairingsCreatedBefore(ctx, now.Add(-e.TTL))
	if err != nil {
		logger.Error("pairing expiry failed",
			"event", "poll_pairing_expiry_failed",
			"module", "ranking/poll-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if removed > 0 {
		logger.Info("stale pairings expired",
			"event", "poll_pairing_expired",
			"module", "ranking/poll-engine",
			"layer", "worker",
			"removed", removed,
			"ttl", e.TTL.String(),
		)
	}
	return nil
}
