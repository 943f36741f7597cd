package migration

import (
	"context"
	"log"

	"gofestat/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the schema statements in execution order
func Statements() []string {
	return append([]string{createRunsTable, addRunColumns}, indexes...)
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createRunsTable); err != nil {
		return errors.DatabaseError("failed to create fe_runs table", err)
	}

	if _, err := db.ExecContext(ctx, addRunColumns); err != nil {
		return errors.DatabaseError("failed to add fe_runs columns", err)
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			log.Printf("[Migration] Warning: failed to create index: %v", err)
		}
	}

	return nil
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS fe_runs (
		id UUID PRIMARY KEY,
		frequency DOUBLE PRECISION NOT NULL,
		brave BOOLEAN NOT NULL DEFAULT false,
		pulsars JSONB NOT NULL,
		input_hash VARCHAR(64) NOT NULL,
		grid JSONB NOT NULL,
		sky_values JSONB NOT NULL,
		summary JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		duration_ms BIGINT NOT NULL DEFAULT 0
	)
`

// max_fe was added after the first schema; older databases get it here
const addRunColumns = `
	DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'fe_runs' AND column_name = 'max_fe'
		) THEN
			ALTER TABLE fe_runs ADD COLUMN max_fe DOUBLE PRECISION NOT NULL DEFAULT 0;
		END IF;
	END $$;
`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_fe_runs_created_at ON fe_runs(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_fe_runs_frequency ON fe_runs(frequency)",
	"CREATE INDEX IF NOT EXISTS idx_fe_runs_input_hash ON fe_runs(input_hash)",
	"CREATE INDEX IF NOT EXISTS idx_fe_runs_max_fe ON fe_runs(max_fe DESC)",
}
