package postgres

import (
	"context"
	"encoding/json"
	"log"

	"crewsight/models"
	"crewsight/ports"

	"github.com/jmoiron/sqlx"
)

// MetricRepositoryImpl implements MetricRepository for PostgreSQL
type MetricRepositoryImpl struct {
	db *sqlx.DB
}

// NewMetricRepository creates a new PostgreSQL metric repository
func NewMetricRepository(db *sqlx.DB) ports.MetricRepository {
	return &MetricRepositoryImpl{db: db}
}

// Snapshot returns the current metric readings for one crew member. Detail
// is stored as JSONB keyed by sub-indicator; a row with an unreadable detail
// blob still contributes its score.
func (r *MetricRepositoryImpl) Snapshot(ctx context.Context, crewID int64) ([]models.MetricReading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, score, category, description, source_view, detail
		FROM metric_scores
		WHERE crew_id = $1
		ORDER BY code ASC
	`, crewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.MetricReading
	for rows.Next() {
		var reading models.MetricReading
		var detailJSON []byte

		if err := rows.Scan(&reading.Code, &reading.Score, &reading.Category,
			&reading.Description, &reading.SourceView, &detailJSON); err != nil {
			return nil, err
		}

		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &reading.Detail); err != nil {
				log.Printf("[MetricRepository] crew %d metric %s: unreadable detail blob: %v", crewID, reading.Code, err)
			}
		}

		readings = append(readings, reading)
	}

	return readings, rows.Err()
}
