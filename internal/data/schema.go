package data

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is portable between PostgreSQL and DuckDB. ids come from a sequence
// so a deleted id is never handed out again.
var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS films_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS films (
		id        BIGINT PRIMARY KEY DEFAULT nextval('films_id_seq'),
		title     TEXT NOT NULL,
		favorite  BOOLEAN NOT NULL DEFAULT FALSE,
		watchdate DATE,
		rating    INTEGER CHECK (rating BETWEEN 1 AND 5)
	)`,
}

// EnsureSchema creates the films table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create schema: %w", ErrStorage, err)
		}
	}

	return nil
}
