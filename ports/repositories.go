package ports

import (
	"context"
	"time"

	"crewsight/models"

	"github.com/google/uuid"
)

// CrewRepository provides subject lookup by id, employee code, or fuzzy name
type CrewRepository interface {
	GetByID(ctx context.Context, id int64) (*models.CrewMember, error)
	GetByEmployeeCode(ctx context.Context, code string) (*models.CrewMember, error)
	// SearchByName performs a fuzzy name/alias search; first match wins
	SearchByName(ctx context.Context, query string) ([]models.CrewMember, error)
	ListIDs(ctx context.Context) ([]int64, error)
	// Sample returns up to limit crew members for heuristic fleet scans
	Sample(ctx context.Context, limit int) ([]models.CrewMember, error)
}

// MetricRepository provides the per-subject metric snapshot with
// structured detail
type MetricRepository interface {
	Snapshot(ctx context.Context, crewID int64) ([]models.MetricReading, error)
}

// HistoryRepository provides historical events and certifications
type HistoryRepository interface {
	RecentEvents(ctx context.Context, crewID int64, limit int) ([]models.HistoryEvent, error)
	EventsByType(ctx context.Context, crewID int64, eventType string, from, to time.Time) ([]models.HistoryEvent, error)
	Certifications(ctx context.Context, crewID int64) ([]models.Certification, error)
}

// BenchmarkRepository provides fleet-wide metric statistics
type BenchmarkRepository interface {
	ForMetric(ctx context.Context, code string) (*models.BenchmarkStats, error)
	ForMetricAndRank(ctx context.Context, code, rank string) (*models.BenchmarkStats, error)
	// PercentileRank places score within the fleet distribution for code,
	// returned in [0,100]
	PercentileRank(ctx context.Context, code string, score float64) (float64, error)
}

// SummaryRepository persists and retrieves generated performance summaries
type SummaryRepository interface {
	Save(ctx context.Context, record *models.SummaryRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SummaryRecord, error)
	LatestForCrew(ctx context.Context, crewID int64) (*models.SummaryRecord, error)
	// ByRiskLevels returns the newest summary per crew member whose risk
	// level is in levels, capped at limit
	ByRiskLevels(ctx context.Context, levels []string, limit int) ([]models.SummaryRecord, error)
}

// ConversationRepository appends to and reads the conversation log
type ConversationRepository interface {
	Append(ctx context.Context, turn *models.ConversationTurn) error
	// Tail returns the most recent turns in chronological order, capped at limit
	Tail(ctx context.Context, conversationID string, limit int) ([]models.ConversationTurn, error)
}
