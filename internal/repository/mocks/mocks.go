// Package mocks provides testify mocks for the repository interfaces the
// domain services consume, plus a recording Notifier.
package mocks

import (
	"context"
	"sync"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/rating"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/recommendation"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
	"github.com/stretchr/testify/mock"
)

// RoundRepository is a mock for round.Repository.
type RoundRepository struct {
	mock.Mock
}

func (m *RoundRepository) Create(ctx context.Context, r *round.Round, creator round.Participant) error {
	args := m.Called(ctx, r, creator)
	return args.Error(0)
}

func (m *RoundRepository) Get(ctx context.Context, id string) (*round.Round, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*round.Round); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) Active(ctx context.Context) (*round.Round, error) {
	args := m.Called(ctx)
	if r, ok := args.Get(0).(*round.Round); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) Update(ctx context.Context, r *round.Round) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *RoundRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RoundRepository) Participants(ctx context.Context, roundID string) ([]round.Participant, error) {
	args := m.Called(ctx, roundID)
	if list, ok := args.Get(0).([]round.Participant); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) AddParticipant(ctx context.Context, p round.Participant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *RoundRepository) RemoveParticipant(ctx context.Context, roundID string, userID int64) error {
	args := m.Called(ctx, roundID, userID)
	return args.Error(0)
}

func (m *RoundRepository) Exclusions(ctx context.Context, roundID string) ([]round.PairExclusion, error) {
	args := m.Called(ctx, roundID)
	if list, ok := args.Get(0).([]round.PairExclusion); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) AddExclusion(ctx context.Context, e round.PairExclusion) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *RoundRepository) RemoveExclusion(ctx context.Context, e round.PairExclusion) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *RoundRepository) Assignments(ctx context.Context, roundID string) ([]round.Assignment, error) {
	args := m.Called(ctx, roundID)
	if list, ok := args.Get(0).([]round.Assignment); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) SaveDraw(ctx context.Context, r *round.Round, assignments []round.Assignment) error {
	args := m.Called(ctx, r, assignments)
	return args.Error(0)
}

func (m *RoundRepository) MarkRevealed(ctx context.Context, roundID string, giverID int64) error {
	args := m.Called(ctx, roundID, giverID)
	return args.Error(0)
}

func (m *RoundRepository) LastClosedPairing(ctx context.Context) (map[int64]int64, error) {
	args := m.Called(ctx)
	if pairing, ok := args.Get(0).(map[int64]int64); ok {
		return pairing, args.Error(1)
	}
	return nil, args.Error(1)
}

// RecommendationRepository is a mock for recommendation.Repository.
type RecommendationRepository struct {
	mock.Mock
}

func (m *RecommendationRepository) Upsert(ctx context.Context, rec *recommendation.Recommendation) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *RecommendationRepository) Get(ctx context.Context, id string) (*recommendation.Recommendation, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*recommendation.Recommendation); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecommendationRepository) GetByGiver(ctx context.Context, roundID string, giverID int64) (*recommendation.Recommendation, error) {
	args := m.Called(ctx, roundID, giverID)
	if rec, ok := args.Get(0).(*recommendation.Recommendation); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecommendationRepository) ForRound(ctx context.Context, roundID string) ([]recommendation.Recommendation, error) {
	args := m.Called(ctx, roundID)
	if list, ok := args.Get(0).([]recommendation.Recommendation); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecommendationRepository) AddComment(ctx context.Context, c *recommendation.Comment) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *RecommendationRepository) GetComment(ctx context.Context, id string) (*recommendation.Comment, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*recommendation.Comment); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecommendationRepository) UpdateComment(ctx context.Context, c *recommendation.Comment) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *RecommendationRepository) DeleteComment(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RecommendationRepository) Comments(ctx context.Context, recommendationID string) ([]recommendation.Comment, error) {
	args := m.Called(ctx, recommendationID)
	if list, ok := args.Get(0).([]recommendation.Comment); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecommendationRepository) Like(ctx context.Context, commentID string, userID int64) (bool, error) {
	args := m.Called(ctx, commentID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RecommendationRepository) Unlike(ctx context.Context, commentID string, userID int64) (bool, error) {
	args := m.Called(ctx, commentID, userID)
	return args.Bool(0), args.Error(1)
}

// RatingRepository is a mock for rating.Repository.
type RatingRepository struct {
	mock.Mock
}

func (m *RatingRepository) Upsert(ctx context.Context, r *rating.Rating) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *RatingRepository) Get(ctx context.Context, roundID string, receiverID int64) (*rating.Rating, error) {
	args := m.Called(ctx, roundID, receiverID)
	if r, ok := args.Get(0).(*rating.Rating); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RatingRepository) Delete(ctx context.Context, roundID string, receiverID int64) error {
	args := m.Called(ctx, roundID, receiverID)
	return args.Error(0)
}

func (m *RatingRepository) ForRound(ctx context.Context, roundID string) ([]rating.Rating, error) {
	args := m.Called(ctx, roundID)
	if list, ok := args.Get(0).([]rating.Rating); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AchievementSyncer is a mock for the achievement callbacks.
type AchievementSyncer struct {
	mock.Mock
}

func (m *AchievementSyncer) RecommendationSaved(ctx context.Context, roundID string, userID int64) ([]string, error) {
	args := m.Called(ctx, roundID, userID)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AchievementSyncer) RatingSaved(ctx context.Context, roundID string, userID int64) ([]string, error) {
	args := m.Called(ctx, roundID, userID)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier records broadcast events for assertions.
type Notifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *Notifier) Broadcast(ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

// Events returns a copy of everything broadcast so far.
func (n *Notifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

// Names returns the broadcast event names in order.
func (n *Notifier) Names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		names = append(names, ev.Name)
	}
	return names
}
