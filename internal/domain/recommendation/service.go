// Package recommendation handles the items givers submit during the
// indication window, plus the comments and likes attached to them. Phase and
// actor gating reuse the round package's guard and error taxonomy.
package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
	"github.com/google/uuid"
)

// Service handles recommendation operations.
type Service struct {
	recs         Repository
	rounds       RoundRepository
	achievements AchievementSyncer
	notifier     Notifier
	logger       *slog.Logger
}

// NewService creates a recommendation service. The achievement syncer may be
// nil when no achievement backend is wired.
func NewService(recs Repository, rounds RoundRepository, achievements AchievementSyncer, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		recs:         recs,
		rounds:       rounds,
		achievements: achievements,
		notifier:     notifier,
		logger:       logger,
	}
}

// SaveRequest describes a recommendation write.
type SaveRequest struct {
	RoundID string
	Title   string
	Notes   string
}

// SaveResult carries the stored recommendation and any achievements the
// write unlocked.
type SaveResult struct {
	Recommendation *Recommendation `json:"recommendation"`
	Unlocked       []string        `json:"unlocked,omitempty"`
}

// Save creates or updates the actor's recommendation for the round. Allowed
// only during the indication window, before ratings open, and only for the
// member holding an assignment as giver.
func (s *Service) Save(ctx context.Context, actor round.Actor, req SaveRequest) (*SaveResult, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: a recommendation needs a title", round.ErrValidation)
	}

	r, err := s.getRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}
	if err := round.Check(round.ActionRecommend, r, actor, time.Now()); err != nil {
		return nil, err
	}
	if err := s.requireGiver(ctx, req.RoundID, actor.UserID); err != nil {
		return nil, err
	}

	now := time.Now()
	rec, err := s.recs.GetByGiver(ctx, req.RoundID, actor.UserID)
	switch {
	case err == nil:
		rec.Title = req.Title
		rec.Notes = req.Notes
		rec.UpdatedAt = now
	case errors.Is(err, repository.ErrNotFound):
		rec = &Recommendation{
			ID:        uuid.NewString(),
			RoundID:   req.RoundID,
			GiverID:   actor.UserID,
			Title:     req.Title,
			Notes:     req.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		return nil, fmt.Errorf("loading recommendation: %w", err)
	}

	if err := s.recs.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving recommendation: %w", err)
	}

	s.broadcast(notify.EventRecommendationSaved, req.RoundID, actor,
		map[string]any{"recommendationId": rec.ID, "giverId": rec.GiverID})

	return &SaveResult{
		Recommendation: rec,
		Unlocked:       s.syncAchievements(ctx, req.RoundID, actor.UserID),
	}, nil
}

// ForRound lists the round's recommendations.
func (s *Service) ForRound(ctx context.Context, roundID string) ([]Recommendation, error) {
	recs, err := s.recs.ForRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}
	return recs, nil
}

// AddComment attaches a participant comment to a recommendation. Open to any
// participant once the round has left draft.
func (s *Service) AddComment(ctx context.Context, actor round.Actor, recommendationID, body string) (*Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: a comment needs a body", round.ErrValidation)
	}

	rec, r, err := s.getRecommendationRound(ctx, recommendationID)
	if err != nil {
		return nil, err
	}
	if err := round.Check(round.ActionComment, r, actor, time.Now()); err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, rec.RoundID, actor); err != nil {
		return nil, err
	}

	c := &Comment{
		ID:               uuid.NewString(),
		RecommendationID: recommendationID,
		AuthorID:         actor.UserID,
		Body:             body,
		CreatedAt:        time.Now(),
	}
	if err := s.recs.AddComment(ctx, c); err != nil {
		return nil, fmt.Errorf("adding comment: %w", err)
	}

	s.broadcast(notify.EventRecommendationCommentChanged, rec.RoundID, actor,
		map[string]any{"recommendationId": recommendationID, "commentId": c.ID, "change": "created"})
	return c, nil
}

// UpdateComment rewrites a comment's body. Authors may edit their own;
// privileged actors may edit any.
func (s *Service) UpdateComment(ctx context.Context, actor round.Actor, commentID, body string) (*Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: a comment needs a body", round.ErrValidation)
	}

	c, rec, r, err := s.getCommentRound(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := round.Check(round.ActionComment, r, actor, time.Now()); err != nil {
		return nil, err
	}
	if c.AuthorID != actor.UserID && !actor.Privileged() {
		return nil, round.ErrPermission
	}

	c.Body = body
	if err := s.recs.UpdateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("updating comment: %w", err)
	}

	s.broadcast(notify.EventRecommendationCommentChanged, rec.RoundID, actor,
		map[string]any{"recommendationId": rec.ID, "commentId": c.ID, "change": "updated"})
	return c, nil
}

// DeleteComment removes a comment. Same ownership rule as UpdateComment.
func (s *Service) DeleteComment(ctx context.Context, actor round.Actor, commentID string) error {
	c, rec, r, err := s.getCommentRound(ctx, commentID)
	if err != nil {
		return err
	}
	if err := round.Check(round.ActionComment, r, actor, time.Now()); err != nil {
		return err
	}
	if c.AuthorID != actor.UserID && !actor.Privileged() {
		return round.ErrPermission
	}

	if err := s.recs.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}

	s.broadcast(notify.EventRecommendationCommentChanged, rec.RoundID, actor,
		map[string]any{"recommendationId": rec.ID, "commentId": commentID, "change": "deleted"})
	return nil
}

// LikeComment records the actor's like. Liking twice is a no-op success.
func (s *Service) LikeComment(ctx context.Context, actor round.Actor, commentID string) error {
	return s.setLike(ctx, actor, commentID, true)
}

// UnlikeComment withdraws the actor's like. Idempotent like LikeComment.
func (s *Service) UnlikeComment(ctx context.Context, actor round.Actor, commentID string) error {
	return s.setLike(ctx, actor, commentID, false)
}

func (s *Service) setLike(ctx context.Context, actor round.Actor, commentID string, liked bool) error {
	_, rec, r, err := s.getCommentRound(ctx, commentID)
	if err != nil {
		return err
	}
	if err := round.Check(round.ActionComment, r, actor, time.Now()); err != nil {
		return err
	}
	if err := s.requireParticipant(ctx, rec.RoundID, actor); err != nil {
		return err
	}

	var changed bool
	if liked {
		changed, err = s.recs.Like(ctx, commentID, actor.UserID)
	} else {
		changed, err = s.recs.Unlike(ctx, commentID, actor.UserID)
	}
	if err != nil {
		return fmt.Errorf("updating like: %w", err)
	}
	if !changed {
		return nil
	}

	s.broadcast(notify.EventRecommendationCommentLiked, rec.RoundID, actor,
		map[string]any{"recommendationId": rec.ID, "commentId": commentID, "liked": liked})
	return nil
}

func (s *Service) getRound(ctx context.Context, roundID string) (*round.Round, error) {
	if roundID == "" {
		return nil, fmt.Errorf("%w: round id is required", round.ErrValidation)
	}
	r, err := s.rounds.Get(ctx, roundID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: round", round.ErrNotFound)
		}
		return nil, fmt.Errorf("loading round: %w", err)
	}
	return r, nil
}

func (s *Service) getRecommendationRound(ctx context.Context, recommendationID string) (*Recommendation, *round.Round, error) {
	rec, err := s.recs.Get(ctx, recommendationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: recommendation", round.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("loading recommendation: %w", err)
	}
	r, err := s.getRound(ctx, rec.RoundID)
	if err != nil {
		return nil, nil, err
	}
	return rec, r, nil
}

func (s *Service) getCommentRound(ctx context.Context, commentID string) (*Comment, *Recommendation, *round.Round, error) {
	c, err := s.recs.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: comment", round.ErrNotFound)
		}
		return nil, nil, nil, fmt.Errorf("loading comment: %w", err)
	}
	rec, r, err := s.getRecommendationRound(ctx, c.RecommendationID)
	if err != nil {
		return nil, nil, nil, err
	}
	return c, rec, r, nil
}

// requireGiver verifies the actor holds an assignment as giver in the round.
func (s *Service) requireGiver(ctx context.Context, roundID string, userID int64) error {
	assignments, err := s.rounds.Assignments(ctx, roundID)
	if err != nil {
		return fmt.Errorf("loading assignments: %w", err)
	}
	for _, a := range assignments {
		if a.GiverID == userID {
			return nil
		}
	}
	return fmt.Errorf("%w: only the assigned giver may recommend", round.ErrPermission)
}

func (s *Service) requireParticipant(ctx context.Context, roundID string, actor round.Actor) error {
	if actor.Privileged() {
		return nil
	}
	participants, err := s.rounds.Participants(ctx, roundID)
	if err != nil {
		return fmt.Errorf("loading participants: %w", err)
	}
	for _, p := range participants {
		if p.UserID == actor.UserID {
			return nil
		}
	}
	return fmt.Errorf("%w: only participants may interact with recommendations", round.ErrPermission)
}

// syncAchievements runs the best-effort achievement recomputation. Failures
// are logged and swallowed; the primary write already succeeded.
func (s *Service) syncAchievements(ctx context.Context, roundID string, userID int64) []string {
	if s.achievements == nil {
		return nil
	}
	unlocked, err := s.achievements.RecommendationSaved(ctx, roundID, userID)
	if err != nil {
		s.logger.Warn("achievement sync failed",
			"round_id", roundID, "user_id", userID, "error", err)
		return nil
	}
	return unlocked
}

func (s *Service) broadcast(name, roundID string, actor round.Actor, fields map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(notify.Event{
		Name:        name,
		RoundID:     roundID,
		ActorUserID: actor.UserID,
		Fields:      fields,
	})
}
