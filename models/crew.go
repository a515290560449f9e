package models

import (
	"time"

	"github.com/google/uuid"
)

// CrewMember is the subject of queries and summaries
type CrewMember struct {
	ID           int64     `db:"id"`
	EmployeeCode string    `db:"employee_code"`
	FullName     string    `db:"full_name"`
	Rank         string    `db:"rank"`
	Department   string    `db:"department"`
	Vessel       string    `db:"vessel"`
	Status       string    `db:"status"` // onboard, on_leave, signed_off
	HiredAt      time.Time `db:"hired_at"`
}

// HistoryEvent is one historical record for a crew member
type HistoryEvent struct {
	ID          int64     `db:"id"`
	CrewID      int64     `db:"crew_id"`
	EventType   string    `db:"event_type"` // inspection, incident, appraisal, training, promotion
	Description string    `db:"description"`
	OccurredAt  time.Time `db:"occurred_at"`
}

// Certification is a held qualification with its validity window
type Certification struct {
	ID        int64      `db:"id"`
	CrewID    int64      `db:"crew_id"`
	Name      string     `db:"name"`
	IssuedAt  time.Time  `db:"issued_at"`
	ExpiresAt *time.Time `db:"expires_at"`
}

// BenchmarkStats describes the fleet-wide distribution of one metric
type BenchmarkStats struct {
	MetricCode string
	Rank       string // empty when fleet-wide
	Mean       float64
	Median     float64
	StdDev     float64
	P25        float64
	P75        float64
	SampleSize int
}

// SummaryRecord is a persisted performance summary for a crew member
type SummaryRecord struct {
	ID          uuid.UUID `db:"id"`
	CrewID      int64     `db:"crew_id"`
	Summary     string    `db:"summary"`
	RiskLevel   string    `db:"risk_level"` // LOW, MEDIUM, HIGH, CRITICAL
	Structured  []byte    `db:"structured"` // JSONB of the StructuredResponse
	TokensUsed  int       `db:"tokens_used"`
	GeneratedAt time.Time `db:"generated_at"`
}

// ConversationTurn is one persisted turn of a chat conversation
type ConversationTurn struct {
	ID             int64     `db:"id"`
	ConversationID string    `db:"conversation_id"`
	Role           string    `db:"role"`
	Text           string    `db:"text"`
	CreatedAt      time.Time `db:"created_at"`
}
