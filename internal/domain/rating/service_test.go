package rating_test

import (
	"context"
	"testing"
	"time"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/rating"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/notify"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func ratingWindowRound() *round.Round {
	ratingStart := time.Now().Add(-time.Minute)
	return &round.Round{
		ID:             "round-1",
		CreatorID:      1,
		Status:         round.StatusIndication,
		CreatedAt:      time.Now(),
		RatingStartsAt: &ratingStart,
	}
}

func assignments() []round.Assignment {
	return []round.Assignment{
		{RoundID: "round-1", GiverID: 2, ReceiverID: 3, Revealed: true},
		{RoundID: "round-1", GiverID: 3, ReceiverID: 2, Revealed: true},
	}
}

func TestRatingService_Save(t *testing.T) {
	rounds := &mocks.RoundRepository{}
	rounds.On("Get", ctx, "round-1").Return(ratingWindowRound(), nil)
	rounds.On("Assignments", ctx, "round-1").Return(assignments(), nil)

	ratings := &mocks.RatingRepository{}
	ratings.On("Get", ctx, "round-1", int64(3)).
		Return((*rating.Rating)(nil), repository.ErrNotFound)
	ratings.On("Upsert", ctx, mock.Anything).Return(nil)

	notifier := &mocks.Notifier{}
	svc := rating.NewService(ratings, rounds, nil, notifier, nil)

	result, err := svc.Save(ctx, round.Actor{UserID: 3}, rating.SaveRequest{
		RoundID: "round-1",
		Score:   4,
		Review:  "solid pick",
	})
	require.NoError(t, err)
	require.Equal(t, 4, result.Rating.Score)
	require.Equal(t, int64(3), result.Rating.ReceiverID)
	require.Equal(t, []string{notify.EventRoundRatingSaved}, notifier.Names())
}

func TestRatingService_SaveScoreBounds(t *testing.T) {
	svc := rating.NewService(&mocks.RatingRepository{}, &mocks.RoundRepository{}, nil, nil, nil)

	for _, score := range []int{0, 6, -1} {
		_, err := svc.Save(ctx, round.Actor{UserID: 3}, rating.SaveRequest{RoundID: "round-1", Score: score})
		require.ErrorIs(t, err, round.ErrValidation)
	}
}

func TestRatingService_SaveBeforeWindow(t *testing.T) {
	r := ratingWindowRound()
	future := time.Now().Add(time.Hour)
	r.RatingStartsAt = &future

	rounds := &mocks.RoundRepository{}
	rounds.On("Get", ctx, "round-1").Return(r, nil)

	svc := rating.NewService(&mocks.RatingRepository{}, rounds, nil, nil, nil)
	_, err := svc.Save(ctx, round.Actor{UserID: 3}, rating.SaveRequest{RoundID: "round-1", Score: 3})
	require.ErrorIs(t, err, round.ErrPhaseConflict)
}

func TestRatingService_SaveDuringReopened(t *testing.T) {
	r := ratingWindowRound()
	r.Status = round.StatusReopened

	rounds := &mocks.RoundRepository{}
	rounds.On("Get", ctx, "round-1").Return(r, nil)
	rounds.On("Assignments", ctx, "round-1").Return(assignments(), nil)

	ratings := &mocks.RatingRepository{}
	ratings.On("Get", ctx, "round-1", int64(3)).
		Return(&rating.Rating{RoundID: "round-1", ReceiverID: 3, Score: 2}, nil)
	ratings.On("Upsert", ctx, mock.Anything).Return(nil)

	svc := rating.NewService(ratings, rounds, nil, nil, nil)
	result, err := svc.Save(ctx, round.Actor{UserID: 3}, rating.SaveRequest{RoundID: "round-1", Score: 5})
	require.NoError(t, err)
	require.Equal(t, 5, result.Rating.Score)
}

func TestRatingService_SaveOnlyReceiver(t *testing.T) {
	rounds := &mocks.RoundRepository{}
	rounds.On("Get", ctx, "round-1").Return(ratingWindowRound(), nil)
	rounds.On("Assignments", ctx, "round-1").Return(assignments(), nil)

	ratings := &mocks.RatingRepository{}
	svc := rating.NewService(ratings, rounds, nil, nil, nil)

	_, err := svc.Save(ctx, round.Actor{UserID: 9}, rating.SaveRequest{RoundID: "round-1", Score: 3})
	require.ErrorIs(t, err, round.ErrPermission)
	ratings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestRatingService_Clear(t *testing.T) {
	rounds := &mocks.RoundRepository{}
	rounds.On("Get", ctx, "round-1").Return(ratingWindowRound(), nil)

	ratings := &mocks.RatingRepository{}
	ratings.On("Delete", ctx, "round-1", int64(3)).Return(nil)

	notifier := &mocks.Notifier{}
	svc := rating.NewService(ratings, rounds, nil, notifier, nil)

	require.NoError(t, svc.Clear(ctx, round.Actor{UserID: 3}, "round-1"))
	require.Equal(t, []string{notify.EventRoundRatingCleared}, notifier.Names())
}

func TestRatingService_ClearMissing(t *testing.T) {
	rounds := &mocks.RoundRepository{}
	rounds.On("Get", ctx, "round-1").Return(ratingWindowRound(), nil)

	ratings := &mocks.RatingRepository{}
	ratings.On("Delete", ctx, "round-1", int64(3)).Return(repository.ErrNotFound)

	svc := rating.NewService(ratings, rounds, nil, nil, nil)
	err := svc.Clear(ctx, round.Actor{UserID: 3}, "round-1")
	require.ErrorIs(t, err, round.ErrNotFound)
}
