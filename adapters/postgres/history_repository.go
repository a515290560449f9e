package postgres

import (
	"context"
	"time"

	"crewsight/models"
	"crewsight/ports"

	"github.com/jmoiron/sqlx"
)

// HistoryRepositoryImpl implements HistoryRepository for PostgreSQL
type HistoryRepositoryImpl struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new PostgreSQL history repository
func NewHistoryRepository(db *sqlx.DB) ports.HistoryRepository {
	return &HistoryRepositoryImpl{db: db}
}

// RecentEvents returns the newest events for a crew member, newest first
func (r *HistoryRepositoryImpl) RecentEvents(ctx context.Context, crewID int64, limit int) ([]models.HistoryEvent, error) {
	var events []models.HistoryEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, crew_id, event_type, description, occurred_at
		FROM history_events
		WHERE crew_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, crewID, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// EventsByType returns events of one type within a time window, oldest first
func (r *HistoryRepositoryImpl) EventsByType(ctx context.Context, crewID int64, eventType string, from, to time.Time) ([]models.HistoryEvent, error) {
	var events []models.HistoryEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, crew_id, event_type, description, occurred_at
		FROM history_events
		WHERE crew_id = $1 AND event_type = $2 AND occurred_at >= $3 AND occurred_at < $4
		ORDER BY occurred_at ASC
	`, crewID, eventType, from, to)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Certifications returns every certification held by a crew member,
// soonest-expiring first with open-ended certificates last.
func (r *HistoryRepositoryImpl) Certifications(ctx context.Context, crewID int64) ([]models.Certification, error) {
	var certs []models.Certification
	err := r.db.SelectContext(ctx, &certs, `
		SELECT id, crew_id, name, issued_at, expires_at
		FROM certifications
		WHERE crew_id = $1
		ORDER BY expires_at ASC NULLS LAST, name ASC
	`, crewID)
	if err != nil {
		return nil, err
	}
	return certs, nil
}
