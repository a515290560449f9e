package app

import (
	"fmt"
	"regexp"
	"strings"

	"crewsight/domain/metrics"
	"crewsight/models"
)

const (
	maxSummaryChars     = 150
	maxFindings         = 5
	maxActions          = 3
	detailedAnalysisMin = 500
)

// Keyword sets driving heuristic severity inference. These are reference
// behavior, not sentiment analysis.
var (
	findingCriticalWords = []string{"fail", "failure", "incident", "detention", "urgent", "expired", "violation"}
	findingConcernWords  = []string{"risk", "decline", "declining", "poor", "below", "overdue", "warning", "concern", "weak"}
	findingPositiveWords = []string{"strong", "excellent", "success", "improved", "improving", "exceeds", "outstanding", "commend"}

	riskCriticalWords = []string{"critical", "immediate", "detention", "severe"}
	riskHighWords     = []string{"high", "urgent", "serious", "major"}
	riskMediumWords   = []string{"medium", "moderate", "elevated"}
)

var (
	bulletLinePattern = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	riskLinePattern   = regexp.MustCompile(`(?i)\brisks?\b|\bhazard\b|\bdanger\b`)
	actionLinePattern = regexp.MustCompile(`(?i)\brecommend(?:ed|s)?\b|\bshould\b|\bmust\b|\badvise\b|\bsuggest\b`)
	sentencePattern   = regexp.MustCompile(`[^.!?]+[.!?]?`)
)

// imperativeVerbs recognizes recommendation sentences in imperative mood
var imperativeVerbs = []string{
	"schedule", "review", "conduct", "assign", "monitor",
	"arrange", "complete", "renew", "provide", "escalate", "ensure",
}

// ResponseExtractor converts completion results into the typed response
// shape. Direct mode maps structured output one-to-one; heuristic mode is a
// deliberately approximate fallback formatter for free text. Both sit
// behind the same interface so the orchestrator never cares which ran.
type ResponseExtractor struct{}

// NewResponseExtractor creates the extractor
func NewResponseExtractor() *ResponseExtractor {
	return &ResponseExtractor{}
}

// FromStructured post-processes a structured completion: user-facing text
// fields are stripped of raw code tokens, code arrays are normalized, and
// traceability is rebuilt by scanning the raw model text.
func (e *ResponseExtractor) FromStructured(resp *models.StructuredResponse, rawText string, snapshot []models.MetricReading) *models.StructuredResponse {
	out := &models.StructuredResponse{
		Summary:          metrics.StripCodes(resp.Summary),
		DetailedAnalysis: metrics.StripCodes(resp.DetailedAnalysis),
	}

	for _, finding := range resp.KeyFindings {
		severity := finding.Severity
		if !severity.IsValid() {
			severity = inferFindingSeverity(finding.Finding)
		}
		out.KeyFindings = append(out.KeyFindings, models.KeyFinding{
			Finding:         metrics.StripCodes(finding.Finding),
			SupportingCodes: normalizeCodes(finding.SupportingCodes),
			Severity:        severity,
		})
	}

	for _, risk := range resp.RiskIndicators {
		severity := risk.Severity
		if !severity.IsValid() {
			severity = inferRiskSeverity(risk.Description)
		}
		out.RiskIndicators = append(out.RiskIndicators, models.RiskIndicator{
			RiskType:      metrics.StripCodes(risk.RiskType),
			Severity:      severity,
			Description:   metrics.StripCodes(risk.Description),
			AffectedCodes: normalizeCodes(risk.AffectedCodes),
		})
	}

	for _, action := range resp.RecommendedActions {
		out.RecommendedActions = append(out.RecommendedActions, metrics.StripCodes(action))
	}

	out.Traceability = buildTraceability(rawText, snapshot)
	return out
}

// FromText is the heuristic fallback formatter for a free-text completion
func (e *ResponseExtractor) FromText(text string, snapshot []models.MetricReading) *models.StructuredResponse {
	stripped := strings.TrimSpace(metrics.StripCodes(text))

	out := &models.StructuredResponse{
		Summary:            summarize(stripped),
		KeyFindings:        extractFindings(text),
		RiskIndicators:     extractRisks(text),
		RecommendedActions: extractActions(stripped),
		Traceability:       buildTraceability(text, snapshot),
	}
	if len(stripped) > detailedAnalysisMin {
		out.DetailedAnalysis = stripped
	}
	return out
}

// summarize takes the first 1-3 sentences, truncated to 150 characters
// with a trailing ellipsis.
func summarize(text string) string {
	sentences := sentencePattern.FindAllString(strings.ReplaceAll(text, "\n", " "), 3)
	summary := strings.TrimSpace(strings.Join(sentences, " "))
	return truncateSummary(summary)
}

// truncateSummary enforces the 150-character limit with an ellipsis. The
// limit counts characters, not bytes; cutting on a byte index could split a
// multibyte rune in a crew name.
func truncateSummary(summary string) string {
	runes := []rune(summary)
	if len(runes) <= maxSummaryChars {
		return summary
	}
	return strings.TrimSpace(string(runes[:maxSummaryChars-3])) + "..."
}

// extractFindings pulls bulleted or numbered lines, falling back to the
// leading paragraphs when the text has no list structure.
func extractFindings(text string) []models.KeyFinding {
	var rawFindings []string

	for _, line := range strings.Split(text, "\n") {
		if bulletLinePattern.MatchString(line) {
			rawFindings = append(rawFindings, bulletLinePattern.ReplaceAllString(line, ""))
		}
	}
	if len(rawFindings) == 0 {
		for _, paragraph := range strings.Split(text, "\n\n") {
			paragraph = strings.TrimSpace(paragraph)
			if paragraph != "" {
				rawFindings = append(rawFindings, paragraph)
			}
		}
	}
	if len(rawFindings) > maxFindings {
		rawFindings = rawFindings[:maxFindings]
	}

	findings := make([]models.KeyFinding, 0, len(rawFindings))
	for _, raw := range rawFindings {
		findings = append(findings, models.KeyFinding{
			Finding:         strings.TrimSpace(metrics.StripCodes(raw)),
			SupportingCodes: normalizeCodes(metrics.FindCodes(raw)),
			Severity:        inferFindingSeverity(raw),
		})
	}
	return findings
}

// extractRisks pulls risk-labelled lines and infers their severity
func extractRisks(text string) []models.RiskIndicator {
	var risks []models.RiskIndicator
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(bulletLinePattern.ReplaceAllString(line, ""))
		if trimmed == "" || !riskLinePattern.MatchString(trimmed) {
			continue
		}
		risks = append(risks, models.RiskIndicator{
			RiskType:      classifyRiskType(trimmed),
			Severity:      inferRiskSeverity(trimmed),
			Description:   strings.TrimSpace(metrics.StripCodes(trimmed)),
			AffectedCodes: normalizeCodes(metrics.FindCodes(trimmed)),
		})
	}
	return risks
}

// extractActions pulls recommendation-keyword lines, falling back to
// imperative-mood sentences, capped at 3.
func extractActions(stripped string) []string {
	var actions []string
	for _, line := range strings.Split(stripped, "\n") {
		trimmed := strings.TrimSpace(bulletLinePattern.ReplaceAllString(line, ""))
		if trimmed == "" || !actionLinePattern.MatchString(trimmed) {
			continue
		}
		actions = append(actions, trimmed)
		if len(actions) == maxActions {
			return actions
		}
	}
	if len(actions) > 0 {
		return actions
	}

	for _, sentence := range sentencePattern.FindAllString(strings.ReplaceAll(stripped, "\n", " "), -1) {
		sentence = strings.TrimSpace(sentence)
		if !startsWithImperative(sentence) {
			continue
		}
		actions = append(actions, sentence)
		if len(actions) == maxActions {
			break
		}
	}
	return actions
}

func startsWithImperative(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, verb := range imperativeVerbs {
		if strings.HasPrefix(lower, verb+" ") {
			return true
		}
	}
	return false
}

// classifyRiskType derives a short label from the line's subject matter
func classifyRiskType(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "safety"):
		return "safety"
	case strings.Contains(lower, "certific"):
		return "certification"
	case strings.Contains(lower, "medical"):
		return "medical"
	case strings.Contains(lower, "conduct") || strings.Contains(lower, "disciplin"):
		return "conduct"
	default:
		return "performance"
	}
}

// inferFindingSeverity applies the finding keyword sets in priority order
func inferFindingSeverity(text string) models.FindingSeverity {
	lower := strings.ToLower(text)
	if containsAny(lower, findingCriticalWords) {
		return models.SeverityCritical
	}
	if containsAny(lower, findingConcernWords) {
		return models.SeverityConcern
	}
	if containsAny(lower, findingPositiveWords) {
		return models.SeverityPositive
	}
	return models.SeverityNeutral
}

// inferRiskSeverity applies the risk keyword sets, defaulting to LOW
func inferRiskSeverity(text string) models.RiskSeverity {
	lower := strings.ToLower(text)
	if containsAny(lower, riskCriticalWords) {
		return models.RiskCritical
	}
	if containsAny(lower, riskHighWords) {
		return models.RiskHigh
	}
	if containsAny(lower, riskMediumWords) {
		return models.RiskMedium
	}
	return models.RiskLow
}

func containsAny(lower string, words []string) bool {
	for _, word := range words {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// buildTraceability scans the raw model text for every code token and
// resolves each against the reference table. Codes mentioned but absent
// from the snapshot are flagged with a null score.
func buildTraceability(rawText string, snapshot []models.MetricReading) []models.TraceEntry {
	scores := make(map[string]*float64, len(snapshot))
	for _, reading := range snapshot {
		scores[reading.Code] = reading.Score
	}

	var entries []models.TraceEntry
	for _, code := range metrics.FindCodes(rawText) {
		info, known := metrics.Lookup(code)
		if !known {
			continue
		}

		entry := models.TraceEntry{
			Code:      code,
			HumanName: info.HumanName,
			Category:  info.Category,
		}
		if score, present := scores[code]; present && score != nil {
			entry.Score = score
			entry.Interpretation = fmt.Sprintf("%s scored %.1f", metrics.AnnotateCodes(code), *score)
		} else {
			entry.Interpretation = "Data not available"
		}
		entries = append(entries, entry)
	}
	return entries
}

// normalizeCodes guarantees a non-nil, deduplicated code array
func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
