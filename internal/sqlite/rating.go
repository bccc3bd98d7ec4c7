package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/rating"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
)

// RatingRepository implements rating.Repository for SQLite
type RatingRepository struct {
	db *DB
}

// NewRatingRepository creates a new RatingRepository
func NewRatingRepository(db *DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert inserts or rewrites the receiver's rating for the round.
func (r *RatingRepository) Upsert(ctx context.Context, rt *rating.Rating) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratings (round_id, receiver_id, score, review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (round_id, receiver_id) DO UPDATE SET
			score = excluded.score,
			review = excluded.review,
			updated_at = excluded.updated_at
	`, rt.RoundID, rt.ReceiverID, rt.Score, rt.Review, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

// Get retrieves the receiver's rating for a round.
func (r *RatingRepository) Get(ctx context.Context, roundID string, receiverID int64) (*rating.Rating, error) {
	var rt rating.Rating
	err := r.db.QueryRowContext(ctx, `
		SELECT round_id, receiver_id, score, review, created_at, updated_at
		FROM ratings WHERE round_id = ? AND receiver_id = ?
	`, roundID, receiverID).Scan(&rt.RoundID, &rt.ReceiverID, &rt.Score,
		&rt.Review, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rating: %w", err)
	}
	return &rt, nil
}

// Delete removes the receiver's rating.
func (r *RatingRepository) Delete(ctx context.Context, roundID string, receiverID int64) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM ratings WHERE round_id = ? AND receiver_id = ?
	`, roundID, receiverID)
	if err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	return requireRow(result)
}

// ForRound lists the round's ratings.
func (r *RatingRepository) ForRound(ctx context.Context, roundID string) ([]rating.Rating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT round_id, receiver_id, score, review, created_at, updated_at
		FROM ratings WHERE round_id = ? ORDER BY receiver_id
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []rating.Rating
	for rows.Next() {
		var rt rating.Rating
		if err := rows.Scan(&rt.RoundID, &rt.ReceiverID, &rt.Score,
			&rt.Review, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}
