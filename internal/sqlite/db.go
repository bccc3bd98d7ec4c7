// Package sqlite implements the repository interfaces over SQLite.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema.
func (db *DB) RunMigrations() error {
	migration := `
-- Rounds table. The partial unique index enforces the single-active-round
-- invariant at the storage level: every non-closed row indexes the same
-- value, so a second one violates uniqueness.
CREATE TABLE IF NOT EXISTS rounds (
    id TEXT PRIMARY KEY,
    creator_id INTEGER NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('draft', 'reveal', 'indication', 'reopened', 'closed')),
    created_at TIMESTAMP NOT NULL,
    started_at TIMESTAMP,
    rating_starts_at TIMESTAMP,
    closed_at TIMESTAMP,
    reopened_count INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_rounds_single_active
    ON rounds ((status <> 'closed')) WHERE status <> 'closed';
CREATE INDEX IF NOT EXISTS idx_rounds_status ON rounds(status);

CREATE TABLE IF NOT EXISTS participants (
    round_id TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    joined_at TIMESTAMP NOT NULL,
    PRIMARY KEY (round_id, user_id),
    FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
);

-- Unordered pairs stored normalized with user_a < user_b.
CREATE TABLE IF NOT EXISTS pair_exclusions (
    round_id TEXT NOT NULL,
    user_a INTEGER NOT NULL,
    user_b INTEGER NOT NULL,
    PRIMARY KEY (round_id, user_a, user_b),
    CHECK (user_a < user_b),
    FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS assignments (
    round_id TEXT NOT NULL,
    giver_id INTEGER NOT NULL,
    receiver_id INTEGER NOT NULL,
    revealed INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (round_id, giver_id),
    UNIQUE (round_id, receiver_id),
    CHECK (giver_id <> receiver_id),
    FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS recommendations (
    id TEXT PRIMARY KEY,
    round_id TEXT NOT NULL,
    giver_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (round_id, giver_id),
    FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_recommendations_round ON recommendations(round_id);

CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    recommendation_id TEXT NOT NULL,
    author_id INTEGER NOT NULL,
    body TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (recommendation_id) REFERENCES recommendations(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_comments_recommendation ON comments(recommendation_id);

CREATE TABLE IF NOT EXISTS comment_likes (
    comment_id TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    PRIMARY KEY (comment_id, user_id),
    FOREIGN KEY (comment_id) REFERENCES comments(id) ON DELETE CASCADE
);

-- Bearer tokens are stored hashed; role flags feed the actor resolved at the
-- transport edge.
CREATE TABLE IF NOT EXISTS api_keys (
    key_hash TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    is_owner INTEGER NOT NULL DEFAULT 0,
    is_moderator INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ratings (
    round_id TEXT NOT NULL,
    receiver_id INTEGER NOT NULL,
    score INTEGER NOT NULL CHECK(score BETWEEN 1 AND 5),
    review TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (round_id, receiver_id),
    FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
);
`

	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
