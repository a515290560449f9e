package models

// Intent is the closed classification of an incoming question
type Intent string

const (
	IntentSummary            Intent = "summary"
	IntentRiskAnalysis       Intent = "risk_analysis"
	IntentMetricQuery        Intent = "metric_query"
	IntentStatusQuery        Intent = "status_query"
	IntentComparison         Intent = "comparison"
	IntentTrendAnalysis      Intent = "trend_analysis"
	IntentCertificationCheck Intent = "certification_check"
	IntentExperienceQuery    Intent = "experience_query"
	IntentPromotionReadiness Intent = "promotion_readiness"
	IntentGeneralQuestion    Intent = "general_question"
)

// AllIntents lists every recognized intent, in prompt order
var AllIntents = []Intent{
	IntentSummary,
	IntentRiskAnalysis,
	IntentMetricQuery,
	IntentStatusQuery,
	IntentComparison,
	IntentTrendAnalysis,
	IntentCertificationCheck,
	IntentExperienceQuery,
	IntentPromotionReadiness,
	IntentGeneralQuestion,
}

// IsValid reports whether the intent belongs to the closed enumeration
func (i Intent) IsValid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// TimeRange is an optional extracted time window
type TimeRange struct {
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Description string `json:"description,omitempty"`
}

// Entities holds everything extracted from the raw question
type Entities struct {
	Subjects    []string   `json:"subjects"`
	MetricCodes []string   `json:"metric_codes"`
	Ranks       []string   `json:"ranks"`
	Departments []string   `json:"departments"`
	Vessels     []string   `json:"vessels"`
	TimeRange   *TimeRange `json:"time_range,omitempty"`
}

// QueryUnderstanding is the result of the query understanding stage.
// Produced once per question, consumed immediately, never persisted.
type QueryUnderstanding struct {
	Intent                 Intent   `json:"intent"`
	Confidence             float64  `json:"confidence"`
	Entities               Entities `json:"entities"`
	RequiredSources        []string `json:"required_sources"`
	ClarificationNeeded    bool     `json:"clarification_needed"`
	ClarificationQuestions []string `json:"clarification_questions,omitempty"`
}
