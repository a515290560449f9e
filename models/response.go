package models

// FindingSeverity classifies a key finding
type FindingSeverity string

const (
	SeverityPositive FindingSeverity = "positive"
	SeverityNeutral  FindingSeverity = "neutral"
	SeverityConcern  FindingSeverity = "concern"
	SeverityCritical FindingSeverity = "critical"
)

// IsValid reports whether the severity belongs to the closed enumeration
func (s FindingSeverity) IsValid() bool {
	switch s {
	case SeverityPositive, SeverityNeutral, SeverityConcern, SeverityCritical:
		return true
	}
	return false
}

// RiskSeverity classifies a risk indicator
type RiskSeverity string

const (
	RiskLow      RiskSeverity = "LOW"
	RiskMedium   RiskSeverity = "MEDIUM"
	RiskHigh     RiskSeverity = "HIGH"
	RiskCritical RiskSeverity = "CRITICAL"
)

// IsValid reports whether the severity belongs to the closed enumeration
func (s RiskSeverity) IsValid() bool {
	switch s {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// rank orders risk severities for max() comparisons
func (s RiskSeverity) rank() int {
	switch s {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}

// MaxRiskSeverity returns the higher of two severities
func MaxRiskSeverity(a, b RiskSeverity) RiskSeverity {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// KeyFinding is one human-readable finding with its supporting metric codes
type KeyFinding struct {
	Finding         string          `json:"finding"`
	SupportingCodes []string        `json:"supporting_codes"`
	Severity        FindingSeverity `json:"severity"`
}

// RiskIndicator is one identified risk with its affected metric codes
type RiskIndicator struct {
	RiskType      string       `json:"risk_type"`
	Severity      RiskSeverity `json:"severity"`
	Description   string       `json:"description"`
	AffectedCodes []string     `json:"affected_codes"`
}

// TraceEntry maps one metric code mentioned in an answer back to its meaning
type TraceEntry struct {
	Code           string   `json:"code"`
	HumanName      string   `json:"human_name"`
	Category       string   `json:"category"`
	Score          *float64 `json:"score"`
	Interpretation string   `json:"interpretation"`
}

// StructuredResponse is the validated, typed answer shape returned to callers.
// Post-hoc invariant: no field outside SupportingCodes/AffectedCodes/
// Traceability[].Code may contain a raw metric code token.
type StructuredResponse struct {
	Summary            string          `json:"summary"`
	KeyFindings        []KeyFinding    `json:"key_findings"`
	RiskIndicators     []RiskIndicator `json:"risk_indicators"`
	RecommendedActions []string        `json:"recommended_actions"`
	Traceability       []TraceEntry    `json:"traceability"`
	DetailedAnalysis   string          `json:"detailed_analysis,omitempty"`
}

// ValidationResult reports rule violations found in a StructuredResponse.
// Critical holds the auto-repairable leaked-code violations; Errors holds
// every violation in check order, critical and soft alike.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Critical []string
}

// ChatAnswer is the outcome of a chat query. Structured is nil when the
// pipeline degraded to the plain-text fallback.
type ChatAnswer struct {
	DisplayText string
	Structured  *StructuredResponse
	TokensUsed  int
}

// AspectComparison is one aspect of a two-subject comparison
type AspectComparison struct {
	Aspect    string `json:"aspect"`
	SubjectA  string `json:"subject_a_assessment"`
	SubjectB  string `json:"subject_b_assessment"`
	Advantage string `json:"advantage"` // "a", "b", or "even"
}

// ComparisonResult is the structured outcome of comparing two subjects
type ComparisonResult struct {
	Narrative  string             `json:"narrative"`
	Aspects    []AspectComparison `json:"aspect_breakdown"`
	Overall    string             `json:"overall_recommendation"`
	TokensUsed int                `json:"-"`
}

// ReadinessLevel is the closed promotion-readiness classification
type ReadinessLevel string

const (
	ReadinessReady       ReadinessLevel = "ready"
	ReadinessNearlyReady ReadinessLevel = "nearly_ready"
	ReadinessNotReady    ReadinessLevel = "not_ready"
)

// IsValid reports whether the level belongs to the closed enumeration
func (l ReadinessLevel) IsValid() bool {
	switch l {
	case ReadinessReady, ReadinessNearlyReady, ReadinessNotReady:
		return true
	}
	return false
}

// ReadinessAssessment is the outcome of a promotion-readiness check
type ReadinessAssessment struct {
	Narrative  string         `json:"narrative"`
	Level      ReadinessLevel `json:"readiness_level"`
	Gaps       []string       `json:"gaps"`
	Timeline   string         `json:"timeline"`
	TokensUsed int            `json:"-"`
}

// BatchResult records one subject's outcome in a batch regeneration run
type BatchResult struct {
	CrewID     int64
	Success    bool
	Error      string
	TokensUsed int
}
