// Package rating handles the scores receivers give once the rating window
// opens: during indication after RatingStartsAt, or while a round is
// reopened for corrections.
package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
)

// Service handles rating operations.
type Service struct {
	ratings      Repository
	rounds       RoundRepository
	achievements AchievementSyncer
	notifier     Notifier
	logger       *slog.Logger
}

// NewService creates a rating service. The achievement syncer may be nil.
func NewService(ratings Repository, rounds RoundRepository, achievements AchievementSyncer, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		ratings:      ratings,
		rounds:       rounds,
		achievements: achievements,
		notifier:     notifier,
		logger:       logger,
	}
}

// SaveRequest describes a rating write.
type SaveRequest struct {
	RoundID string
	Score   int
	Review  string
}

// SaveResult carries the stored rating and any achievements the write
// unlocked.
type SaveResult struct {
	Rating   *Rating  `json:"rating"`
	Unlocked []string `json:"unlocked,omitempty"`
}

// Save creates or updates the actor's rating. Only the assignment's receiver
// may rate, and only inside the rating window.
func (s *Service) Save(ctx context.Context, actor round.Actor, req SaveRequest) (*SaveResult, error) {
	if req.Score < 1 || req.Score > 5 {
		return nil, fmt.Errorf("%w: score must be between 1 and 5", round.ErrValidation)
	}

	r, err := s.getRound(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}
	if err := round.Check(round.ActionRate, r, actor, time.Now()); err != nil {
		return nil, err
	}
	if err := s.requireReceiver(ctx, req.RoundID, actor.UserID); err != nil {
		return nil, err
	}

	now := time.Now()
	rating, err := s.ratings.Get(ctx, req.RoundID, actor.UserID)
	switch {
	case err == nil:
		rating.Score = req.Score
		rating.Review = req.Review
		rating.UpdatedAt = now
	case errors.Is(err, repository.ErrNotFound):
		rating = &Rating{
			RoundID:    req.RoundID,
			ReceiverID: actor.UserID,
			Score:      req.Score,
			Review:     req.Review,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	default:
		return nil, fmt.Errorf("loading rating: %w", err)
	}

	if err := s.ratings.Upsert(ctx, rating); err != nil {
		return nil, fmt.Errorf("saving rating: %w", err)
	}

	s.broadcast(notify.EventRoundRatingSaved, req.RoundID, actor,
		map[string]any{"receiverId": actor.UserID})

	return &SaveResult{
		Rating:   rating,
		Unlocked: s.syncAchievements(ctx, req.RoundID, actor.UserID),
	}, nil
}

// Clear deletes the actor's rating. Same gating as Save.
func (s *Service) Clear(ctx context.Context, actor round.Actor, roundID string) error {
	r, err := s.getRound(ctx, roundID)
	if err != nil {
		return err
	}
	if err := round.Check(round.ActionRate, r, actor, time.Now()); err != nil {
		return err
	}

	if err := s.ratings.Delete(ctx, roundID, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: rating", round.ErrNotFound)
		}
		return fmt.Errorf("deleting rating: %w", err)
	}

	s.broadcast(notify.EventRoundRatingCleared, roundID, actor,
		map[string]any{"receiverId": actor.UserID})
	return nil
}

// ForRound lists the round's ratings.
func (s *Service) ForRound(ctx context.Context, roundID string) ([]Rating, error) {
	ratings, err := s.ratings.ForRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("listing ratings: %w", err)
	}
	return ratings, nil
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

// requireReceiver verifies the actor is the receiver of an assignment in the
// round.
func (s *Service) requireReceiver(ctx context.Context, roundID string, userID int64) error {
	assignments, err := s.rounds.Assignments(ctx, roundID)
	if err != nil {
		return fmt.Errorf("loading assignments: %w", err)
	}
	for _, a := range assignments {
		if a.ReceiverID == userID {
			return nil
		}
	}
	return fmt.Errorf("%w: only the assigned receiver may rate", round.ErrPermission)
}

func (s *Service) syncAchievements(ctx context.Context, roundID string, userID int64) []string {
	if s.achievements == nil {
		return nil
	}
	unlocked, err := s.achievements.RatingSaved(ctx, roundID, userID)
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
