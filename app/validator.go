package app

import (
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"crewsight/domain/metrics"
	"crewsight/models"
)

const maxAnalysisWords = 500

// Validator checks a StructuredResponse against the hard business rules.
// All rules run independently; nothing short-circuits. Only the leaked-code
// class is auto-repaired: length and count overruns are reported but the
// response is still returned as-is.
type Validator struct{}

// NewValidator creates the validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every rule and partitions violations into critical
// (leaked codes, auto-repairable) and soft (reported only).
func (v *Validator) Validate(resp *models.StructuredResponse) models.ValidationResult {
	result := models.ValidationResult{Valid: true}

	report := func(critical bool, format string, args ...any) {
		message := fmt.Sprintf(format, args...)
		result.Valid = false
		result.Errors = append(result.Errors, message)
		if critical {
			result.Critical = append(result.Critical, message)
		}
	}

	if n := utf8.RuneCountInString(resp.Summary); n > maxSummaryChars {
		report(false, "summary exceeds %d characters (%d)", maxSummaryChars, n)
	}
	if len(resp.KeyFindings) > maxFindings {
		report(false, "key findings exceed limit of %d (%d)", maxFindings, len(resp.KeyFindings))
	}
	if len(resp.RecommendedActions) > maxActions {
		report(false, "recommended actions exceed limit of %d (%d)", maxActions, len(resp.RecommendedActions))
	}

	if metrics.ContainsCode(resp.Summary) {
		report(true, "summary contains a raw metric code")
	}
	for i, finding := range resp.KeyFindings {
		if metrics.ContainsCode(finding.Finding) {
			report(true, "key finding %d contains a raw metric code", i+1)
		}
		if strings.TrimSpace(finding.Finding) == "" {
			report(false, "key finding %d has empty text", i+1)
		}
		if finding.SupportingCodes == nil {
			report(false, "key finding %d is missing its supporting code array", i+1)
		}
		if !finding.Severity.IsValid() {
			report(false, "key finding %d has severity %q outside the enumeration", i+1, finding.Severity)
		}
	}
	for i, risk := range resp.RiskIndicators {
		if metrics.ContainsCode(risk.Description) {
			report(true, "risk indicator %d description contains a raw metric code", i+1)
		}
		if strings.TrimSpace(risk.RiskType) == "" {
			report(false, "risk indicator %d has empty type", i+1)
		}
		if strings.TrimSpace(risk.Description) == "" {
			report(false, "risk indicator %d has empty description", i+1)
		}
		if !risk.Severity.IsValid() {
			report(false, "risk indicator %d has severity %q outside the enumeration", i+1, risk.Severity)
		}
		if risk.AffectedCodes == nil {
			report(false, "risk indicator %d is missing its affected code array", i+1)
		}
	}
	for i, action := range resp.RecommendedActions {
		if metrics.ContainsCode(action) {
			report(true, "recommended action %d contains a raw metric code", i+1)
		}
	}
	if resp.DetailedAnalysis != "" {
		if words := len(strings.Fields(resp.DetailedAnalysis)); words > maxAnalysisWords {
			report(false, "detailed analysis exceeds %d words (%d)", maxAnalysisWords, words)
		}
		if metrics.ContainsCode(resp.DetailedAnalysis) {
			report(true, "detailed analysis contains a raw metric code")
		}
	}
	for i, entry := range resp.Traceability {
		if !metrics.IsKnown(entry.Code) {
			report(false, "traceability entry %d code %q does not resolve in the reference table", i+1, entry.Code)
		}
	}

	return result
}

// Repair rewrites every user-facing field that leaked a code, in place,
// using the deterministic stripping transform. No model re-query.
func (v *Validator) Repair(resp *models.StructuredResponse) {
	resp.Summary = metrics.StripCodes(resp.Summary)
	for i := range resp.KeyFindings {
		resp.KeyFindings[i].Finding = metrics.StripCodes(resp.KeyFindings[i].Finding)
	}
	for i := range resp.RiskIndicators {
		resp.RiskIndicators[i].Description = metrics.StripCodes(resp.RiskIndicators[i].Description)
	}
	for i := range resp.RecommendedActions {
		resp.RecommendedActions[i] = metrics.StripCodes(resp.RecommendedActions[i])
	}
	resp.DetailedAnalysis = metrics.StripCodes(resp.DetailedAnalysis)
}

// ValidateAndRepair validates, repairs the critical class if present, and
// returns the final validation state. Soft violations survive into the
// returned result; they are cosmetic and the response still ships.
func (v *Validator) ValidateAndRepair(resp *models.StructuredResponse) models.ValidationResult {
	result := v.Validate(resp)
	if len(result.Critical) == 0 {
		return result
	}

	log.Printf("[Validator] Repairing %d leaked-code violations", len(result.Critical))
	v.Repair(resp)
	return v.Validate(resp)
}
