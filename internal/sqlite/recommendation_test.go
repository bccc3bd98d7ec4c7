package sqlite_test

import (
	"testing"
	"time"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/rating"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/recommendation"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/sqlite"
	"github.com/stretchr/testify/require"
)

func newRecommendation(id, roundID string, giverID int64, title string) *recommendation.Recommendation {
	now := time.Now().UTC()
	return &recommendation.Recommendation{
		ID:        id,
		RoundID:   roundID,
		GiverID:   giverID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRecommendationRepository_Upsert(t *testing.T) {
	db := newTestDB(t)
	createRound(t, sqlite.NewRoundRepository(db), "round-1", 7)
	repo := sqlite.NewRecommendationRepository(db)

	rec := newRecommendation("rec-1", "round-1", 7, "Outer Wilds")
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.GetByGiver(ctx, "round-1", 7)
	require.NoError(t, err)
	require.Equal(t, "rec-1", got.ID)
	require.Equal(t, "Outer Wilds", got.Title)

	// A second upsert for the same giver rewrites in place.
	rec.Title = "Hades"
	rec.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Upsert(ctx, rec))

	recs, err := repo.ForRound(ctx, "round-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Hades", recs[0].Title)
}

func TestRecommendationRepository_UpsertMissingRound(t *testing.T) {
	repo := sqlite.NewRecommendationRepository(newTestDB(t))
	err := repo.Upsert(ctx, newRecommendation("rec-1", "nope", 7, "Hades"))
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestRecommendationRepository_GetMissing(t *testing.T) {
	repo := sqlite.NewRecommendationRepository(newTestDB(t))

	_, err := repo.Get(ctx, "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByGiver(ctx, "round-1", 7)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func newComment(id, recID string, authorID int64, body string) *recommendation.Comment {
	return &recommendation.Comment{
		ID:               id,
		RecommendationID: recID,
		AuthorID:         authorID,
		Body:             body,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestRecommendationRepository_Comments(t *testing.T) {
	db := newTestDB(t)
	createRound(t, sqlite.NewRoundRepository(db), "round-1", 7)
	repo := sqlite.NewRecommendationRepository(db)
	require.NoError(t, repo.Upsert(ctx, newRecommendation("rec-1", "round-1", 7, "Hades")))

	require.NoError(t, repo.AddComment(ctx, newComment("c-1", "rec-1", 8, "nice")))
	require.NoError(t, repo.AddComment(ctx, newComment("c-2", "rec-1", 9, "played it")))

	comments, err := repo.Comments(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "c-1", comments[0].ID)
	require.Zero(t, comments[0].Likes)

	got, err := repo.GetComment(ctx, "c-1")
	require.NoError(t, err)
	got.Body = "really nice"
	require.NoError(t, repo.UpdateComment(ctx, got))

	got, err = repo.GetComment(ctx, "c-1")
	require.NoError(t, err)
	require.Equal(t, "really nice", got.Body)

	require.NoError(t, repo.DeleteComment(ctx, "c-2"))
	require.ErrorIs(t, repo.DeleteComment(ctx, "c-2"), repository.ErrNotFound)
}

func TestRecommendationRepository_Likes(t *testing.T) {
	db := newTestDB(t)
	createRound(t, sqlite.NewRoundRepository(db), "round-1", 7)
	repo := sqlite.NewRecommendationRepository(db)
	require.NoError(t, repo.Upsert(ctx, newRecommendation("rec-1", "round-1", 7, "Hades")))
	require.NoError(t, repo.AddComment(ctx, newComment("c-1", "rec-1", 8, "nice")))

	changed, err := repo.Like(ctx, "c-1", 9)
	require.NoError(t, err)
	require.True(t, changed)

	// Liking again changes nothing.
	changed, err = repo.Like(ctx, "c-1", 9)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = repo.Like(ctx, "c-1", 10)
	require.NoError(t, err)
	require.True(t, changed)

	got, err := repo.GetComment(ctx, "c-1")
	require.NoError(t, err)
	require.Equal(t, 2, got.Likes)

	changed, err = repo.Unlike(ctx, "c-1", 9)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.Unlike(ctx, "c-1", 9)
	require.NoError(t, err)
	require.False(t, changed)

	got, err = repo.GetComment(ctx, "c-1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Likes)
}

func TestRatingRepository_Upsert(t *testing.T) {
	db := newTestDB(t)
	createRound(t, sqlite.NewRoundRepository(db), "round-1", 7)
	repo := sqlite.NewRatingRepository(db)

	now := time.Now().UTC()
	rt := &rating.Rating{
		RoundID:    "round-1",
		ReceiverID: 8,
		Score:      4,
		Review:     "solid",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.Upsert(ctx, rt))

	rt.Score = 5
	require.NoError(t, repo.Upsert(ctx, rt))

	got, err := repo.Get(ctx, "round-1", 8)
	require.NoError(t, err)
	require.Equal(t, 5, got.Score)
	require.Equal(t, "solid", got.Review)

	ratings, err := repo.ForRound(ctx, "round-1")
	require.NoError(t, err)
	require.Len(t, ratings, 1)
}

func TestRatingRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	createRound(t, sqlite.NewRoundRepository(db), "round-1", 7)
	repo := sqlite.NewRatingRepository(db)

	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(ctx, &rating.Rating{
		RoundID: "round-1", ReceiverID: 8, Score: 3, CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, repo.Delete(ctx, "round-1", 8))
	require.ErrorIs(t, repo.Delete(ctx, "round-1", 8), repository.ErrNotFound)
	_, err := repo.Get(ctx, "round-1", 8)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRatingRepository_GetMissing(t *testing.T) {
	repo := sqlite.NewRatingRepository(newTestDB(t))
	_, err := repo.Get(ctx, "round-1", 8)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
