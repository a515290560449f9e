package models

// MetricReading is one entry of a subject's metric snapshot
type MetricReading struct {
	Code        string             `db:"code"`
	Score       *float64           `db:"score"`
	Detail      map[string]float64 // structured detail keyed by sub-indicator
	Category    string             `db:"category"`
	Description string             `db:"description"`
	SourceView  string             `db:"source_view"`
	// Percentile places the score within the fleet distribution for this
	// code, in [0,100]; set during context assembly, nil when unscored
	Percentile *float64
}

// SubjectContext is a single subject's full context, built fresh per request.
// Values may change between calls, so it is never cached.
type SubjectContext struct {
	Crew           *CrewMember
	Snapshot       []MetricReading
	History        []HistoryEvent
	Certifications []Certification
	Benchmarks     []BenchmarkStats
}

// Resolved reports whether a subject was actually found
func (c *SubjectContext) Resolved() bool {
	return c != nil && c.Crew != nil
}

// RiskCandidate is one entry of the ranked multi-subject set
type RiskCandidate struct {
	CrewID    int64
	FullName  string
	Rank      string
	Vessel    string
	Severity  string // LOW, MEDIUM, HIGH, CRITICAL
	RiskScore int    // heuristic score; 0 when sourced from persisted summaries
	Source    string // "summary" or "heuristic"
}

// ContextBranch names which assembly branch produced the context
type ContextBranch string

const (
	BranchMultiSubject  ContextBranch = "multi_subject"
	BranchSingleSubject ContextBranch = "single_subject"
	BranchNoSubject     ContextBranch = "no_subject"
)

// AssembledContext is the output of the context assembly stage
type AssembledContext struct {
	Branch  ContextBranch
	Subject *SubjectContext
	Fleet   []RiskCandidate
}
