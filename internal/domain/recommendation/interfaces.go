package recommendation

import (
	"context"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
)

// Repository persists recommendations, comments, and likes.
type Repository interface {
	Upsert(ctx context.Context, rec *Recommendation) error
	Get(ctx context.Context, id string) (*Recommendation, error)
	GetByGiver(ctx context.Context, roundID string, giverID int64) (*Recommendation, error)
	ForRound(ctx context.Context, roundID string) ([]Recommendation, error)

	AddComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, id string) (*Comment, error)
	UpdateComment(ctx context.Context, c *Comment) error
	DeleteComment(ctx context.Context, id string) error
	Comments(ctx context.Context, recommendationID string) ([]Comment, error)

	// Like and Unlike report whether anything changed, so callers can skip
	// events on no-ops.
	Like(ctx context.Context, commentID string, userID int64) (bool, error)
	Unlike(ctx context.Context, commentID string, userID int64) (bool, error)
}

// RoundRepository provides the round state needed for phase gating.
type RoundRepository interface {
	Get(ctx context.Context, id string) (*round.Round, error)
	Participants(ctx context.Context, roundID string) ([]round.Participant, error)
	Assignments(ctx context.Context, roundID string) ([]round.Assignment, error)
}

// AchievementSyncer recomputes achievements after a successful write. Best
// effort: a failure here never invalidates the write that triggered it.
type AchievementSyncer interface {
	RecommendationSaved(ctx context.Context, roundID string, userID int64) ([]string, error)
}

// Notifier fans out engine events to connected clients.
type Notifier interface {
	Broadcast(ev notify.Event)
}
