package rating

import (
	"context"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
)

// Repository persists ratings.
type Repository interface {
	Upsert(ctx context.Context, r *Rating) error
	Get(ctx context.Context, roundID string, receiverID int64) (*Rating, error)
	Delete(ctx context.Context, roundID string, receiverID int64) error
	ForRound(ctx context.Context, roundID string) ([]Rating, error)
}

// RoundRepository provides the round state needed for phase gating.
type RoundRepository interface {
	Get(ctx context.Context, id string) (*round.Round, error)
	Assignments(ctx context.Context, roundID string) ([]round.Assignment, error)
}

// AchievementSyncer recomputes achievements after a successful write. Best
// effort only.
type AchievementSyncer interface {
	RatingSaved(ctx context.Context, roundID string, userID int64) ([]string, error)
}

// Notifier fans out engine events to connected clients.
type Notifier interface {
	Broadcast(ev notify.Event)
}
