package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/round"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
)

// RoundRepository implements round.Repository for SQLite
type RoundRepository struct {
	db *DB
}

// NewRoundRepository creates a new RoundRepository
func NewRoundRepository(db *DB) *RoundRepository {
	return &RoundRepository{db: db}
}

const roundColumns = `id, creator_id, status, created_at, started_at, rating_starts_at, closed_at, reopened_count`

// Create inserts the round and its creator participant in one transaction.
// The single-active-round index turns a racing create into ErrConflict.
func (r *RoundRepository) Create(ctx context.Context, rd *round.Round, creator round.Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rounds (`+roundColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rd.ID,
		rd.CreatorID,
		rd.Status,
		rd.CreatedAt,
		nullTime(rd.StartedAt),
		nullTime(rd.RatingStartsAt),
		nullTime(rd.ClosedAt),
		rd.ReopenedCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create round: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participants (round_id, user_id, joined_at) VALUES (?, ?, ?)
	`, creator.RoundID, creator.UserID, creator.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to add creator: %w", err)
	}

	return tx.Commit()
}

// Get retrieves a round by ID
func (r *RoundRepository) Get(ctx context.Context, id string) (*round.Round, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+roundColumns+` FROM rounds WHERE id = ?
	`, id)
	return scanRound(row)
}

// Active returns the single non-closed round.
func (r *RoundRepository) Active(ctx context.Context) (*round.Round, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+roundColumns+` FROM rounds WHERE status <> 'closed' LIMIT 1
	`)
	return scanRound(row)
}

// Update persists the round's mutable fields.
func (r *RoundRepository) Update(ctx context.Context, rd *round.Round) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE rounds
		SET status = ?, started_at = ?, rating_starts_at = ?, closed_at = ?, reopened_count = ?
		WHERE id = ?
	`,
		rd.Status,
		nullTime(rd.StartedAt),
		nullTime(rd.RatingStartsAt),
		nullTime(rd.ClosedAt),
		rd.ReopenedCount,
		rd.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to update round: %w", err)
	}
	return requireRow(result)
}

// Delete removes the round; participants, exclusions, assignments,
// recommendations, and ratings cascade with it.
func (r *RoundRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rounds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	return requireRow(result)
}

// Participants lists members in join order.
func (r *RoundRepository) Participants(ctx context.Context, roundID string) ([]round.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT round_id, user_id, joined_at FROM participants
		WHERE round_id = ? ORDER BY joined_at, user_id
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []round.Participant
	for rows.Next() {
		var p round.Participant
		if err := rows.Scan(&p.RoundID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// AddParticipant joins a member to the round.
func (r *RoundRepository) AddParticipant(ctx context.Context, p round.Participant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO participants (round_id, user_id, joined_at) VALUES (?, ?, ?)
	`, p.RoundID, p.UserID, p.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant drops the member and any exclusions referencing them, as
// one transaction.
func (r *RoundRepository) RemoveParticipant(ctx context.Context, roundID string, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM participants WHERE round_id = ? AND user_id = ?
	`, roundID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM pair_exclusions WHERE round_id = ? AND (user_a = ? OR user_b = ?)
	`, roundID, userID, userID)
	if err != nil {
		return fmt.Errorf("failed to drop exclusions: %w", err)
	}

	return tx.Commit()
}

// Exclusions lists the round's forbidden pairs.
func (r *RoundRepository) Exclusions(ctx context.Context, roundID string) ([]round.PairExclusion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT round_id, user_a, user_b FROM pair_exclusions
		WHERE round_id = ? ORDER BY user_a, user_b
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}
	defer rows.Close()

	var exclusions []round.PairExclusion
	for rows.Next() {
		var e round.PairExclusion
		if err := rows.Scan(&e.RoundID, &e.UserA, &e.UserB); err != nil {
			return nil, fmt.Errorf("failed to scan exclusion: %w", err)
		}
		exclusions = append(exclusions, e)
	}
	return exclusions, rows.Err()
}

// AddExclusion stores a forbidden pair.
func (r *RoundRepository) AddExclusion(ctx context.Context, e round.PairExclusion) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pair_exclusions (round_id, user_a, user_b) VALUES (?, ?, ?)
	`, e.RoundID, e.UserA, e.UserB)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to add exclusion: %w", err)
	}
	return nil
}

// RemoveExclusion lifts a forbidden pair.
func (r *RoundRepository) RemoveExclusion(ctx context.Context, e round.PairExclusion) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pair_exclusions WHERE round_id = ? AND user_a = ? AND user_b = ?
	`, e.RoundID, e.UserA, e.UserB)
	if err != nil {
		return fmt.Errorf("failed to remove exclusion: %w", err)
	}
	return requireRow(result)
}

// Assignments lists the round's assignments.
func (r *RoundRepository) Assignments(ctx context.Context, roundID string) ([]round.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT round_id, giver_id, receiver_id, revealed FROM assignments
		WHERE round_id = ? ORDER BY giver_id
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []round.Assignment
	for rows.Next() {
		var a round.Assignment
		if err := rows.Scan(&a.RoundID, &a.GiverID, &a.ReceiverID, &a.Revealed); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// SaveDraw flips the round's status and writes the complete assignment set
// as a unit: readers never observe a partial draw.
func (r *RoundRepository) SaveDraw(ctx context.Context, rd *round.Round, assignments []round.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE rounds SET status = ?, started_at = ? WHERE id = ?
	`, rd.Status, nullTime(rd.StartedAt), rd.ID)
	if err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	for _, a := range assignments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assignments (round_id, giver_id, receiver_id, revealed)
			VALUES (?, ?, ?, ?)
		`, a.RoundID, a.GiverID, a.ReceiverID, a.Revealed)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	return tx.Commit()
}

// MarkRevealed flips one giver's revealed flag. Already-revealed rows are
// matched too, so re-marking stays a successful no-op.
func (r *RoundRepository) MarkRevealed(ctx context.Context, roundID string, giverID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET revealed = 1 WHERE round_id = ? AND giver_id = ?
	`, roundID, giverID)
	if err != nil {
		return fmt.Errorf("failed to mark revealed: %w", err)
	}
	return requireRow(result)
}

// LastClosedPairing returns the giver-to-receiver map of the most recently
// closed round, empty when none exists.
func (r *RoundRepository) LastClosedPairing(ctx context.Context) (map[int64]int64, error) {
	var roundID string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM rounds
		WHERE status = 'closed' AND closed_at IS NOT NULL
		ORDER BY closed_at DESC LIMIT 1
	`).Scan(&roundID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[int64]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find last closed round: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT giver_id, receiver_id FROM assignments WHERE round_id = ?
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior assignments: %w", err)
	}
	defer rows.Close()

	pairing := make(map[int64]int64)
	for rows.Next() {
		var giver, receiver int64
		if err := rows.Scan(&giver, &receiver); err != nil {
			return nil, fmt.Errorf("failed to scan prior assignment: %w", err)
		}
		pairing[giver] = receiver
	}
	return pairing, rows.Err()
}

func scanRound(row *sql.Row) (*round.Round, error) {
	var rd round.Round
	var startedAt, ratingStartsAt, closedAt sql.NullTime
	err := row.Scan(
		&rd.ID,
		&rd.CreatorID,
		&rd.Status,
		&rd.CreatedAt,
		&startedAt,
		&ratingStartsAt,
		&closedAt,
		&rd.ReopenedCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan round: %w", err)
	}
	rd.StartedAt = timePtr(startedAt)
	rd.RatingStartsAt = timePtr(ratingStartsAt)
	rd.ClosedAt = timePtr(closedAt)
	return &rd, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
