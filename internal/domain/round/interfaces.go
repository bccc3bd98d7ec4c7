package round

import (
	"context"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
)

// Repository provides persistence for rounds and their sub-resources.
// Multi-row transitions (Create, SaveDraw, Delete) must commit as a unit; no
// intermediate state may be observable by readers.
type Repository interface {
	Create(ctx context.Context, r *Round, creator Participant) error
	Get(ctx context.Context, id string) (*Round, error)
	// Active returns the single non-closed round, or repository.ErrNotFound.
	Active(ctx context.Context) (*Round, error)
	Update(ctx context.Context, r *Round) error
	Delete(ctx context.Context, id string) error

	Participants(ctx context.Context, roundID string) ([]Participant, error)
	AddParticipant(ctx context.Context, p Participant) error
	// RemoveParticipant also drops exclusions referencing the member.
	RemoveParticipant(ctx context.Context, roundID string, userID int64) error

	Exclusions(ctx context.Context, roundID string) ([]PairExclusion, error)
	AddExclusion(ctx context.Context, e PairExclusion) error
	RemoveExclusion(ctx context.Context, e PairExclusion) error

	Assignments(ctx context.Context, roundID string) ([]Assignment, error)
	// SaveDraw persists the round's status flip and the full assignment set
	// in one transaction.
	SaveDraw(ctx context.Context, r *Round, assignments []Assignment) error
	MarkRevealed(ctx context.Context, roundID string, giverID int64) error
	// LastClosedPairing returns the giver-to-receiver map of the most
	// recently closed round, for the rotation preference. Empty when no
	// closed round exists.
	LastClosedPairing(ctx context.Context) (map[int64]int64, error)
}

// Notifier fans out engine events to connected clients. Delivery is
// best-effort and must never fail the triggering call.
type Notifier interface {
	Broadcast(ev notify.Event)
}
