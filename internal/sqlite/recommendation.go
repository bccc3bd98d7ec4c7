package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/domain/recommendation"
	"github.com/Gabriel-Micael/Clube-do-Jogo-sub001/internal/repository"
)

// RecommendationRepository implements recommendation.Repository for SQLite
type RecommendationRepository struct {
	db *DB
}

// NewRecommendationRepository creates a new RecommendationRepository
func NewRecommendationRepository(db *DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Upsert inserts or rewrites the giver's recommendation for the round.
func (r *RecommendationRepository) Upsert(ctx context.Context, rec *recommendation.Recommendation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recommendations (id, round_id, giver_id, title, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (round_id, giver_id) DO UPDATE SET
			title = excluded.title,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, rec.ID, rec.RoundID, rec.GiverID, rec.Title, rec.Notes, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to upsert recommendation: %w", err)
	}
	return nil
}

// Get retrieves a recommendation by ID
func (r *RecommendationRepository) Get(ctx context.Context, id string) (*recommendation.Recommendation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, round_id, giver_id, title, notes, created_at, updated_at
		FROM recommendations WHERE id = ?
	`, id)
	return scanRecommendation(row)
}

// GetByGiver retrieves the giver's recommendation for a round.
func (r *RecommendationRepository) GetByGiver(ctx context.Context, roundID string, giverID int64) (*recommendation.Recommendation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, round_id, giver_id, title, notes, created_at, updated_at
		FROM recommendations WHERE round_id = ? AND giver_id = ?
	`, roundID, giverID)
	return scanRecommendation(row)
}

// ForRound lists the round's recommendations.
func (r *RecommendationRepository) ForRound(ctx context.Context, roundID string) ([]recommendation.Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, round_id, giver_id, title, notes, created_at, updated_at
		FROM recommendations WHERE round_id = ? ORDER BY created_at, id
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []recommendation.Recommendation
	for rows.Next() {
		var rec recommendation.Recommendation
		if err := rows.Scan(&rec.ID, &rec.RoundID, &rec.GiverID, &rec.Title,
			&rec.Notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// AddComment stores a comment.
func (r *RecommendationRepository) AddComment(ctx context.Context, c *recommendation.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, recommendation_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.RecommendationID, c.AuthorID, c.Body, c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

const commentColumns = `
	c.id, c.recommendation_id, c.author_id, c.body, c.created_at,
	COUNT(l.user_id) AS likes`

// GetComment retrieves a comment with its like count.
func (r *RecommendationRepository) GetComment(ctx context.Context, id string) (*recommendation.Comment, error) {
	var c recommendation.Comment
	err := r.db.QueryRowContext(ctx, `
		SELECT`+commentColumns+`
		FROM comments c
		LEFT JOIN comment_likes l ON l.comment_id = c.id
		WHERE c.id = ?
		GROUP BY c.id
	`, id).Scan(&c.ID, &c.RecommendationID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.Likes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}
	return &c, nil
}

// UpdateComment rewrites a comment's body.
func (r *RecommendationRepository) UpdateComment(ctx context.Context, c *recommendation.Comment) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE comments SET body = ? WHERE id = ?
	`, c.Body, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return requireRow(result)
}

// DeleteComment removes a comment; its likes cascade.
func (r *RecommendationRepository) DeleteComment(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return requireRow(result)
}

// Comments lists a recommendation's comments with like counts.
func (r *RecommendationRepository) Comments(ctx context.Context, recommendationID string) ([]recommendation.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+commentColumns+`
		FROM comments c
		LEFT JOIN comment_likes l ON l.comment_id = c.id
		WHERE c.recommendation_id = ?
		GROUP BY c.id
		ORDER BY c.created_at, c.id
	`, recommendationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []recommendation.Comment
	for rows.Next() {
		var c recommendation.Comment
		if err := rows.Scan(&c.ID, &c.RecommendationID, &c.AuthorID, &c.Body,
			&c.CreatedAt, &c.Likes); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Like records a like; reports false when it was already present.
func (r *RecommendationRepository) Like(ctx context.Context, commentID string, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO comment_likes (comment_id, user_id) VALUES (?, ?)
	`, commentID, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, repository.ErrForeignKeyViolation
		}
		return false, fmt.Errorf("failed to like comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// Unlike withdraws a like; reports false when none existed.
func (r *RecommendationRepository) Unlike(ctx context.Context, commentID string, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM comment_likes WHERE comment_id = ? AND user_id = ?
	`, commentID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func scanRecommendation(row *sql.Row) (*recommendation.Recommendation, error) {
	var rec recommendation.Recommendation
	err := row.Scan(&rec.ID, &rec.RoundID, &rec.GiverID, &rec.Title,
		&rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan recommendation: %w", err)
	}
	return &rec, nil
}
