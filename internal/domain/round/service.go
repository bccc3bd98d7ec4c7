package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/draw"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
	"github.com/google/uuid"
)

// Service drives the round lifecycle state machine. Mutations on a single
// round are serialized behind a per-round lock; different rounds do not
// contend.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger

	createMu sync.Mutex
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
}

// NewService creates a round service.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockRound acquires the mutation lock for one round and returns its
// release.
func (s *Service) lockRound(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Service) dropLock(id string) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

// Create opens a new round in draft with the actor as creator and first
// participant. Only one non-closed round may exist; the check and the insert
// share the creation lock, and the storage layer enforces the same invariant
// so a race cannot slip through.
func (s *Service) Create(ctx context.Context, actor Actor) (*Snapshot, error) {
	if actor.UserID <= 0 {
		return nil, fmt.Errorf("%w: a member must create the round", ErrValidation)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if _, err := s.repo.Active(ctx); err == nil {
		return nil, ErrActiveRoundExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking active round: %w", err)
	}

	now := time.Now()
	r := &Round{
		ID:        uuid.NewString(),
		CreatorID: actor.UserID,
		Status:    StatusDraft,
		CreatedAt: now,
	}
	creator := Participant{RoundID: r.ID, UserID: actor.UserID, JoinedAt: now}

	if err := s.repo.Create(ctx, r, creator); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrActiveRoundExists
		}
		return nil, fmt.Errorf("creating round: %w", err)
	}

	s.broadcast(notify.EventRoundCreated, r, actor, map[string]any{"status": r.Status})
	return s.snapshot(ctx, r)
}

// Get returns the round snapshot.
func (s *Service) Get(ctx context.Context, id string) (*Snapshot, error) {
	r, err := s.getRound(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, r)
}

// Current returns the snapshot of the single non-closed round.
func (s *Service) Current(ctx context.Context) (*Snapshot, error) {
	r, err := s.repo.Active(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no open round", ErrNotFound)
		}
		return nil, fmt.Errorf("loading active round: %w", err)
	}
	return s.snapshot(ctx, r)
}

// AddParticipant joins a member to a draft round. The prospective
// configuration is validated for feasibility before anything is persisted.
func (s *Service) AddParticipant(ctx context.Context, actor Actor, roundID string, userID int64) (*Snapshot, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrValidation)
	}

	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionEditParticipants, r, actor, time.Now()); err != nil {
		return nil, err
	}

	participants, exclusions, err := s.draftConfig(ctx, roundID)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if p == userID {
			return nil, fmt.Errorf("%w: member already joined", ErrDuplicate)
		}
	}
	if err := validateFeasibility(append(participants, userID), exclusions); err != nil {
		return nil, err
	}

	p := Participant{RoundID: roundID, UserID: userID, JoinedAt: time.Now()}
	if err := s.repo.AddParticipant(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: member already joined", ErrDuplicate)
		}
		return nil, fmt.Errorf("adding participant: %w", err)
	}

	s.broadcast(notify.EventRoundParticipantsChanged, r, actor,
		map[string]any{"userId": userID, "change": "joined"})
	return s.snapshot(ctx, r)
}

// RemoveParticipant removes a member from a draft round. The creator may
// never be removed. Exclusions referencing the member are dropped with them.
func (s *Service) RemoveParticipant(ctx context.Context, actor Actor, roundID string, userID int64) (*Snapshot, error) {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionEditParticipants, r, actor, time.Now()); err != nil {
		return nil, err
	}
	if userID == r.CreatorID {
		return nil, fmt.Errorf("%w: the creator cannot leave the round", ErrValidation)
	}

	participants, exclusions, err := s.draftConfig(ctx, roundID)
	if err != nil {
		return nil, err
	}
	remaining := participants[:0:0]
	found := false
	for _, p := range participants {
		if p == userID {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}
	if !found {
		return nil, fmt.Errorf("%w: participant", ErrNotFound)
	}
	kept := exclusions[:0:0]
	for _, e := range exclusions {
		if e.A == userID || e.B == userID {
			continue
		}
		kept = append(kept, e)
	}
	if err := validateFeasibility(remaining, kept); err != nil {
		return nil, err
	}

	if err := s.repo.RemoveParticipant(ctx, roundID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: participant", ErrNotFound)
		}
		return nil, fmt.Errorf("removing participant: %w", err)
	}

	s.broadcast(notify.EventRoundParticipantsChanged, r, actor,
		map[string]any{"userId": userID, "change": "left"})
	return s.snapshot(ctx, r)
}

// AddExclusion forbids a pair from being matched. Rejected when it would
// leave the round undrawable.
func (s *Service) AddExclusion(ctx context.Context, actor Actor, roundID string, userA, userB int64) (*Snapshot, error) {
	if userA == userB {
		return nil, fmt.Errorf("%w: an exclusion needs two distinct members", ErrValidation)
	}

	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionEditExclusions, r, actor, time.Now()); err != nil {
		return nil, err
	}

	participants, exclusions, err := s.draftConfig(ctx, roundID)
	if err != nil {
		return nil, err
	}
	pair := draw.NewPair(userA, userB)
	for _, e := range exclusions {
		if e == pair {
			return nil, fmt.Errorf("%w: exclusion already set", ErrDuplicate)
		}
	}
	if err := validateFeasibility(participants, append(exclusions, pair)); err != nil {
		return nil, err
	}

	if err := s.repo.AddExclusion(ctx, NewPairExclusion(roundID, userA, userB)); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: exclusion already set", ErrDuplicate)
		}
		return nil, fmt.Errorf("adding exclusion: %w", err)
	}

	s.broadcast(notify.EventRoundPairExclusionsChanged, r, actor,
		map[string]any{"userA": pair.A, "userB": pair.B, "change": "added"})
	return s.snapshot(ctx, r)
}

// RemoveExclusion lifts a forbidden pair. Removal only relaxes the
// configuration, so no re-validation is needed.
func (s *Service) RemoveExclusion(ctx context.Context, actor Actor, roundID string, userA, userB int64) (*Snapshot, error) {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionEditExclusions, r, actor, time.Now()); err != nil {
		return nil, err
	}

	e := NewPairExclusion(roundID, userA, userB)
	if err := s.repo.RemoveExclusion(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: exclusion", ErrNotFound)
		}
		return nil, fmt.Errorf("removing exclusion: %w", err)
	}

	s.broadcast(notify.EventRoundPairExclusionsChanged, r, actor,
		map[string]any{"userA": e.UserA, "userB": e.UserB, "change": "removed"})
	return s.snapshot(ctx, r)
}

// Draw validates feasibility, generates the assignment set, and moves the
// round from draft to reveal. The status flip and the full assignment set
// commit in one transaction.
func (s *Service) Draw(ctx context.Context, actor Actor, roundID string) (*Snapshot, error) {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionDraw, r, actor, time.Now()); err != nil {
		return nil, err
	}

	participants, exclusions, err := s.draftConfig(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: a draw needs at least two participants", ErrValidation)
	}
	if err := draw.Validate(participants, exclusions); err != nil {
		return nil, err
	}

	prior, err := s.repo.LastClosedPairing(ctx)
	if err != nil {
		// Rotation is a preference, not a requirement.
		s.logger.Warn("loading prior pairing for rotation", "round_id", roundID, "error", err)
		prior = nil
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	pairing, err := draw.Generate(participants, exclusions, prior, rng)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	r.Status = StatusReveal
	r.StartedAt = &now

	assignments := make([]Assignment, 0, len(pairing))
	for _, giver := range participants {
		assignments = append(assignments, Assignment{
			RoundID:    roundID,
			GiverID:    giver,
			ReceiverID: pairing[giver],
		})
	}
	if err := s.repo.SaveDraw(ctx, r, assignments); err != nil {
		return nil, fmt.Errorf("saving draw: %w", err)
	}

	s.broadcast(notify.EventRoundDrawCompleted, r, actor, map[string]any{"status": r.Status})
	return s.snapshot(ctx, r)
}

// Reveal marks one giver's assignment as shown. Re-marking an already
// revealed assignment is a no-op success.
func (s *Service) Reveal(ctx context.Context, actor Actor, roundID string, giverID int64) (*Snapshot, error) {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionReveal, r, actor, time.Now()); err != nil {
		return nil, err
	}

	assignments, err := s.repo.Assignments(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}
	var current *Assignment
	for i := range assignments {
		if assignments[i].GiverID == giverID {
			current = &assignments[i]
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%w: assignment", ErrNotFound)
	}

	if !current.Revealed {
		if err := s.repo.MarkRevealed(ctx, roundID, giverID); err != nil {
			return nil, fmt.Errorf("marking revealed: %w", err)
		}
		s.broadcast(notify.EventRoundRevealProgress, r, actor,
			map[string]any{"giverId": giverID})
	}

	return s.snapshot(ctx, r)
}

// StartIndication opens the recommendation window. The supplied rating start
// must lie strictly in the future; it also marks the end of that window.
func (s *Service) StartIndication(ctx context.Context, actor Actor, roundID string, ratingStartsAt time.Time) (*Snapshot, error) {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionStartIndication, r, actor, time.Now()); err != nil {
		return nil, err
	}
	if !ratingStartsAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: rating start must be in the future", ErrValidation)
	}

	r.Status = StatusIndication
	r.RatingStartsAt = &ratingStartsAt
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("updating round: %w", err)
	}

	s.broadcast(notify.EventRoundIndicationStarted, r, actor,
		map[string]any{"status": r.Status, "ratingStartsAt": ratingStartsAt.UTC()})
	return s.snapshot(ctx, r)
}

// Close ends the rating window.
func (s *Service) Close(ctx context.Context, actor Actor, roundID string) (*Snapshot, error) {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionClose, r, actor, time.Now()); err != nil {
		return nil, err
	}

	now := time.Now()
	r.Status = StatusClosed
	r.ClosedAt = &now
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("updating round: %w", err)
	}

	s.broadcast(notify.EventRoundClosed, r, actor, map[string]any{"status": r.Status})
	return s.snapshot(ctx, r)
}

// Reopen lets privileged actors correct ratings after close. The rating
// window restarts immediately.
func (s *Service) Reopen(ctx context.Context, actor Actor, roundID string) (*Snapshot, error) {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionReopen, r, actor, time.Now()); err != nil {
		return nil, err
	}

	now := time.Now()
	r.Status = StatusReopened
	r.ClosedAt = nil
	r.RatingStartsAt = &now
	r.ReopenedCount++
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("updating round: %w", err)
	}

	s.broadcast(notify.EventRoundReopened, r, actor,
		map[string]any{"status": r.Status, "reopenedCount": r.ReopenedCount})
	return s.snapshot(ctx, r)
}

// Finalize closes a reopened round again.
func (s *Service) Finalize(ctx context.Context, actor Actor, roundID string) (*Snapshot, error) {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionFinalize, r, actor, time.Now()); err != nil {
		return nil, err
	}

	now := time.Now()
	r.Status = StatusClosed
	r.ClosedAt = &now
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("updating round: %w", err)
	}

	s.broadcast(notify.EventRoundReopenedFinalized, r, actor, map[string]any{"status": r.Status})
	return s.snapshot(ctx, r)
}

// ForceUpdate sets status and/or the rating start directly, skipping the
// transition table. It exists for corrective edits and diverges from the
// modeled state machine, so every use is logged for review.
func (s *Service) ForceUpdate(ctx context.Context, actor Actor, roundID, status string, ratingStartsAt *time.Time) (*Snapshot, error) {
	if status == "" && ratingStartsAt == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := Check(ActionForceUpdate, r, actor, time.Now()); err != nil {
		return nil, err
	}

	if status != "" {
		parsed, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		r.Status = parsed
	}
	if ratingStartsAt != nil {
		if ratingStartsAt.IsZero() {
			return nil, fmt.Errorf("%w: rating start must be a real timestamp", ErrValidation)
		}
		r.RatingStartsAt = ratingStartsAt
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("updating round: %w", err)
	}

	s.logger.Warn("forced round override outside the lifecycle transitions",
		"round_id", roundID, "actor", actor.UserID, "status", r.Status)

	fields := map[string]any{"status": r.Status}
	if r.RatingStartsAt != nil {
		fields["ratingStartsAt"] = r.RatingStartsAt.UTC()
	}
	s.broadcast(notify.EventRoundUpdated, r, actor, fields)
	return s.snapshot(ctx, r)
}

// Delete removes a round and everything scoped to it.
func (s *Service) Delete(ctx context.Context, actor Actor, roundID string) error {
	unlock := s.lockRound(roundID)
	defer unlock()

	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return err
	}
	if err := Check(ActionDelete, r, actor, time.Now()); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, roundID); err != nil {
		return fmt.Errorf("deleting round: %w", err)
	}
	s.dropLock(roundID)

	s.broadcast(notify.EventRoundDeleted, r, actor, nil)
	return nil
}

func (s *Service) getRound(ctx context.Context, id string) (*Round, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: round id is required", ErrValidation)
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: round", ErrNotFound)
		}
		return nil, fmt.Errorf("loading round: %w", err)
	}
	return r, nil
}

// draftConfig loads the participant IDs and exclusion pairs in the shape the
// draw package consumes.
func (s *Service) draftConfig(ctx context.Context, roundID string) ([]int64, []draw.Pair, error) {
	participants, err := s.repo.Participants(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading participants: %w", err)
	}
	exclusions, err := s.repo.Exclusions(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading exclusions: %w", err)
	}

	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	pairs := make([]draw.Pair, 0, len(exclusions))
	for _, e := range exclusions {
		pairs = append(pairs, draw.NewPair(e.UserA, e.UserB))
	}
	return ids, pairs, nil
}

// validateFeasibility re-runs the exclusion validator on a prospective draft
// configuration. With no exclusions there is nothing to satisfy: membership
// may shrink to the creator alone, and the participant minimum is enforced
// at the draw.
func validateFeasibility(participants []int64, exclusions []draw.Pair) error {
	if len(exclusions) == 0 {
		return nil
	}
	return draw.Validate(participants, exclusions)
}

func (s *Service) snapshot(ctx context.Context, r *Round) (*Snapshot, error) {
	participants, err := s.repo.Participants(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("loading participants: %w", err)
	}

	snap := &Snapshot{Round: *r, Participants: participants}

	if r.Status == StatusDraft {
		exclusions, err := s.repo.Exclusions(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("loading exclusions: %w", err)
		}
		snap.Exclusions = exclusions
		return snap, nil
	}

	assignments, err := s.repo.Assignments(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}
	views := make([]AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, a.View())
	}
	snap.Assignments = views
	return snap, nil
}

func (s *Service) broadcast(name string, r *Round, actor Actor, fields map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(notify.Event{
		Name:        name,
		RoundID:     r.ID,
		ActorUserID: actor.UserID,
		Fields:      fields,
	})
}
