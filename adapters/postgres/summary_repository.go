package postgres

import (
	"context"
	"database/sql"

	"crewsight/models"
	"crewsight/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SummaryRepositoryImpl implements SummaryRepository for PostgreSQL
type SummaryRepositoryImpl struct {
	db *sqlx.DB
}

// NewSummaryRepository creates a new PostgreSQL summary repository
func NewSummaryRepository(db *sqlx.DB) ports.SummaryRepository {
	return &SummaryRepositoryImpl{db: db}
}

const summaryColumns = `id, crew_id, summary, risk_level, structured, tokens_used, generated_at`

// Save persists a generated summary. Re-saving the same id overwrites it.
func (r *SummaryRepositoryImpl) Save(ctx context.Context, record *models.SummaryRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO performance_summaries (
			id, crew_id, summary, risk_level, structured, tokens_used, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			summary = EXCLUDED.summary,
			risk_level = EXCLUDED.risk_level,
			structured = EXCLUDED.structured,
			tokens_used = EXCLUDED.tokens_used,
			generated_at = EXCLUDED.generated_at
	`, record.ID, record.CrewID, record.Summary, record.RiskLevel,
		record.Structured, record.TokensUsed, record.GeneratedAt)
	return err
}

// GetByID retrieves a summary by id, (nil, nil) when absent
func (r *SummaryRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.SummaryRecord, error) {
	var record models.SummaryRecord
	err := r.db.GetContext(ctx, &record, `
		SELECT `+summaryColumns+`
		FROM performance_summaries
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// LatestForCrew retrieves the newest summary for one crew member
func (r *SummaryRepositoryImpl) LatestForCrew(ctx context.Context, crewID int64) (*models.SummaryRecord, error) {
	var record models.SummaryRecord
	err := r.db.GetContext(ctx, &record, `
		SELECT `+summaryColumns+`
		FROM performance_summaries
		WHERE crew_id = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`, crewID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ByRiskLevels returns the newest summary per crew member whose risk level
// is in levels, capped at limit. Order is by crew id, not severity; the
// fleet assembly ranks candidates itself.
func (r *SummaryRepositoryImpl) ByRiskLevels(ctx context.Context, levels []string, limit int) ([]models.SummaryRecord, error) {
	var records []models.SummaryRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT DISTINCT ON (crew_id) `+summaryColumns+`
		FROM performance_summaries
		WHERE risk_level = ANY($1)
		ORDER BY crew_id, generated_at DESC
		LIMIT $2
	`, pq.Array(levels), limit)
	if err != nil {
		return nil, err
	}
	return records, nil
}
