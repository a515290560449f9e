package migration

import (
	"context"
	"fmt"

	"crewsight/internal/errors"

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

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createCrewMembersTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create crew_members table")
	}

	if err := r.createMetricScoresTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create metric_scores table")
	}

	if err := r.createHistoryEventsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create history_events table")
	}

	if err := r.createCertificationsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create certifications table")
	}

	if err := r.createPerformanceSummariesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create performance_summaries table")
	}

	if err := r.createConversationTurnsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create conversation_turns table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createCrewMembersTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS crew_members (
			id BIGSERIAL PRIMARY KEY,
			employee_code VARCHAR(50) UNIQUE NOT NULL,
			full_name VARCHAR(255) NOT NULL,
			rank VARCHAR(100) NOT NULL,
			department VARCHAR(100) NOT NULL DEFAULT '',
			vessel VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(50) NOT NULL DEFAULT 'onboard',
			hired_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createMetricScoresTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS metric_scores (
			id BIGSERIAL PRIMARY KEY,
			crew_id BIGINT NOT NULL REFERENCES crew_members(id) ON DELETE CASCADE,
			code VARCHAR(10) NOT NULL,
			score DECIMAL(6,2),
			category VARCHAR(100) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			source_view VARCHAR(100) NOT NULL DEFAULT '',
			detail JSONB DEFAULT '{}',
			UNIQUE(crew_id, code)
		)
	`)
	return err
}

func (r *MigrationRunner) createHistoryEventsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS history_events (
			id BIGSERIAL PRIMARY KEY,
			crew_id BIGINT NOT NULL REFERENCES crew_members(id) ON DELETE CASCADE,
			event_type VARCHAR(50) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createCertificationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS certifications (
			id BIGSERIAL PRIMARY KEY,
			crew_id BIGINT NOT NULL REFERENCES crew_members(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			issued_at TIMESTAMP WITH TIME ZONE NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE
		)
	`)
	return err
}

func (r *MigrationRunner) createPerformanceSummariesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS performance_summaries (
			id UUID PRIMARY KEY,
			crew_id BIGINT NOT NULL REFERENCES crew_members(id) ON DELETE CASCADE,
			summary TEXT NOT NULL,
			risk_level VARCHAR(10) NOT NULL CHECK (risk_level IN ('LOW', 'MEDIUM', 'HIGH', 'CRITICAL')),
			structured JSONB NOT NULL DEFAULT '{}',
			tokens_used INTEGER NOT NULL DEFAULT 0,
			generated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createConversationTurnsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id BIGSERIAL PRIMARY KEY,
			conversation_id VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL CHECK (role IN ('user', 'assistant')),
			text TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		// Crew lookup indexes
		"CREATE INDEX IF NOT EXISTS idx_crew_employee_code ON crew_members(employee_code)",
		"CREATE INDEX IF NOT EXISTS idx_crew_full_name ON crew_members(full_name)",
		"CREATE INDEX IF NOT EXISTS idx_crew_rank ON crew_members(rank)",

		// Metric score indexes
		"CREATE INDEX IF NOT EXISTS idx_metric_scores_crew_id ON metric_scores(crew_id)",
		"CREATE INDEX IF NOT EXISTS idx_metric_scores_code ON metric_scores(code)",

		// History indexes
		"CREATE INDEX IF NOT EXISTS idx_history_crew_occurred ON history_events(crew_id, occurred_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_history_event_type ON history_events(event_type)",
		"CREATE INDEX IF NOT EXISTS idx_certifications_crew_id ON certifications(crew_id)",

		// Summary indexes
		"CREATE INDEX IF NOT EXISTS idx_summaries_crew_generated ON performance_summaries(crew_id, generated_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_summaries_risk_level ON performance_summaries(risk_level)",

		// Conversation indexes
		"CREATE INDEX IF NOT EXISTS idx_turns_conversation_id ON conversation_turns(conversation_id, id)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			fmt.Printf("Warning: failed to create index: %v\n", err)
		}
	}

	return nil
}
