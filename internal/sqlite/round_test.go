package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/sqlite"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations())
	return db
}

func newRound(id string, creatorID int64) *round.Round {
	return &round.Round{
		ID:        id,
		CreatorID: creatorID,
		Status:    round.StatusDraft,
		CreatedAt: time.Now().UTC(),
	}
}

func createRound(t *testing.T, repo *sqlite.RoundRepository, id string, creatorID int64) *round.Round {
	t.Helper()
	r := newRound(id, creatorID)
	creator := round.Participant{RoundID: id, UserID: creatorID, JoinedAt: r.CreatedAt}
	require.NoError(t, repo.Create(ctx, r, creator))
	return r
}

func closeRound(t *testing.T, repo *sqlite.RoundRepository, r *round.Round, at time.Time) {
	t.Helper()
	r.Status = round.StatusClosed
	r.ClosedAt = &at
	require.NoError(t, repo.Update(ctx, r))
}

func TestRoundRepository_CreateAndGet(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))
	created := createRound(t, repo, "round-1", 7)

	got, err := repo.Get(ctx, "round-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, int64(7), got.CreatorID)
	require.Equal(t, round.StatusDraft, got.Status)
	require.Nil(t, got.StartedAt)
	require.Nil(t, got.ClosedAt)
	require.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Second)

	// The creator participant commits with the round.
	participants, err := repo.Participants(ctx, "round-1")
	require.NoError(t, err)
	require.Len(t, participants, 1)
	require.Equal(t, int64(7), participants[0].UserID)
}

func TestRoundRepository_GetMissing(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))
	_, err := repo.Get(ctx, "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRoundRepository_SingleActiveRound(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))
	first := createRound(t, repo, "round-1", 7)

	err := repo.Create(ctx, newRound("round-2", 8), round.Participant{
		RoundID: "round-2", UserID: 8, JoinedAt: time.Now(),
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	// The failed create must not leave partial rows behind.
	_, err = repo.Get(ctx, "round-2")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// Closing the first round frees the slot.
	closeRound(t, repo, first, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, newRound("round-2", 8), round.Participant{
		RoundID: "round-2", UserID: 8, JoinedAt: time.Now(),
	}))
}

func TestRoundRepository_Active(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))

	_, err := repo.Active(ctx)
	require.ErrorIs(t, err, repository.ErrNotFound)

	r := createRound(t, repo, "round-1", 7)
	active, err := repo.Active(ctx)
	require.NoError(t, err)
	require.Equal(t, "round-1", active.ID)

	closeRound(t, repo, r, time.Now().UTC())
	_, err = repo.Active(ctx)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRoundRepository_Participants(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))
	createRound(t, repo, "round-1", 7)

	require.NoError(t, repo.AddParticipant(ctx, round.Participant{
		RoundID: "round-1", UserID: 8, JoinedAt: time.Now(),
	}))

	err := repo.AddParticipant(ctx, round.Participant{
		RoundID: "round-1", UserID: 8, JoinedAt: time.Now(),
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	err = repo.AddParticipant(ctx, round.Participant{
		RoundID: "nope", UserID: 9, JoinedAt: time.Now(),
	})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestRoundRepository_RemoveParticipantDropsExclusions(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))
	createRound(t, repo, "round-1", 7)
	for _, id := range []int64{8, 9} {
		require.NoError(t, repo.AddParticipant(ctx, round.Participant{
			RoundID: "round-1", UserID: id, JoinedAt: time.Now(),
		}))
	}
	require.NoError(t, repo.AddExclusion(ctx, round.NewPairExclusion("round-1", 7, 8)))
	require.NoError(t, repo.AddExclusion(ctx, round.NewPairExclusion("round-1", 8, 9)))

	require.NoError(t, repo.RemoveParticipant(ctx, "round-1", 8))

	participants, err := repo.Participants(ctx, "round-1")
	require.NoError(t, err)
	require.Len(t, participants, 2)

	exclusions, err := repo.Exclusions(ctx, "round-1")
	require.NoError(t, err)
	require.Empty(t, exclusions)

	err = repo.RemoveParticipant(ctx, "round-1", 8)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRoundRepository_Exclusions(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))
	createRound(t, repo, "round-1", 7)

	e := round.NewPairExclusion("round-1", 9, 7)
	require.NoError(t, repo.AddExclusion(ctx, e))
	require.ErrorIs(t, repo.AddExclusion(ctx, e), repository.ErrConflict)

	exclusions, err := repo.Exclusions(ctx, "round-1")
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	require.Equal(t, int64(7), exclusions[0].UserA)
	require.Equal(t, int64(9), exclusions[0].UserB)

	require.NoError(t, repo.RemoveExclusion(ctx, e))
	require.ErrorIs(t, repo.RemoveExclusion(ctx, e), repository.ErrNotFound)
}

func drawRound(t *testing.T, repo *sqlite.RoundRepository, id string, pairing map[int64]int64) *round.Round {
	t.Helper()

	var creator int64
	for giver := range pairing {
		creator = giver
		break
	}
	r := createRound(t, repo, id, creator)
	for giver := range pairing {
		if giver == creator {
			continue
		}
		require.NoError(t, repo.AddParticipant(ctx, round.Participant{
			RoundID: id, UserID: giver, JoinedAt: time.Now(),
		}))
	}

	now := time.Now().UTC()
	r.Status = round.StatusReveal
	r.StartedAt = &now
	assignments := make([]round.Assignment, 0, len(pairing))
	for giver, receiver := range pairing {
		assignments = append(assignments, round.Assignment{
			RoundID: id, GiverID: giver, ReceiverID: receiver,
		})
	}
	require.NoError(t, repo.SaveDraw(ctx, r, assignments))
	return r
}

func TestRoundRepository_SaveDraw(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))
	drawRound(t, repo, "round-1", map[int64]int64{1: 2, 2: 3, 3: 1})

	got, err := repo.Get(ctx, "round-1")
	require.NoError(t, err)
	require.Equal(t, round.StatusReveal, got.Status)
	require.NotNil(t, got.StartedAt)

	assignments, err := repo.Assignments(ctx, "round-1")
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	for _, a := range assignments {
		require.False(t, a.Revealed)
	}
}

func TestRoundRepository_MarkRevealed(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))
	drawRound(t, repo, "round-1", map[int64]int64{1: 2, 2: 1})

	require.NoError(t, repo.MarkRevealed(ctx, "round-1", 1))
	// Re-marking stays a successful no-op.
	require.NoError(t, repo.MarkRevealed(ctx, "round-1", 1))
	require.ErrorIs(t, repo.MarkRevealed(ctx, "round-1", 42), repository.ErrNotFound)

	assignments, err := repo.Assignments(ctx, "round-1")
	require.NoError(t, err)
	for _, a := range assignments {
		require.Equal(t, a.GiverID == 1, a.Revealed)
	}
}

func TestRoundRepository_LastClosedPairing(t *testing.T) {
	repo := sqlite.NewRoundRepository(newTestDB(t))

	pairing, err := repo.LastClosedPairing(ctx)
	require.NoError(t, err)
	require.Empty(t, pairing)

	first := drawRound(t, repo, "round-1", map[int64]int64{1: 2, 2: 1})
	closeRound(t, repo, first, time.Now().UTC().Add(-time.Hour))

	second := drawRound(t, repo, "round-2", map[int64]int64{1: 2, 2: 3, 3: 1})
	closeRound(t, repo, second, time.Now().UTC())

	pairing, err = repo.LastClosedPairing(ctx)
	require.NoError(t, err)
	require.Equal(t, map[int64]int64{1: 2, 2: 3, 3: 1}, pairing)
}

func TestRoundRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewRoundRepository(db)
	drawRound(t, repo, "round-1", map[int64]int64{1: 2, 2: 1})

	require.NoError(t, repo.Delete(ctx, "round-1"))
	require.ErrorIs(t, repo.Delete(ctx, "round-1"), repository.ErrNotFound)

	participants, err := repo.Participants(ctx, "round-1")
	require.NoError(t, err)
	require.Empty(t, participants)

	assignments, err := repo.Assignments(ctx, "round-1")
	require.NoError(t, err)
	require.Empty(t, assignments)
}
