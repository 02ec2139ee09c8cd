package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the idempotent DDL for the activity log and profile store.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS activity_events (
		id          BIGSERIAL PRIMARY KEY,
		student_id  TEXT NOT NULL,
		kind        TEXT NOT NULL,
		payload     JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS activity_events_student_created_idx
		ON activity_events (student_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		student_id  TEXT PRIMARY KEY,
		data        JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
