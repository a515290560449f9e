package app

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"crewsight/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeToken = regexp.MustCompile(`[A-Z]{2}\d{4}`)

func TestFromTextSummaryTruncatedWithEllipsis(t *testing.T) {
	extractor := NewResponseExtractor()
	long := strings.Repeat("The crew member performed admirably across every watch period. ", 10)

	resp := extractor.FromText(long, nil)

	assert.LessOrEqual(t, len(resp.Summary), 150)
	assert.True(t, strings.HasSuffix(resp.Summary, "..."))
}

func TestFromTextSummaryTruncationIsRuneSafe(t *testing.T) {
	extractor := NewResponseExtractor()

	resp := extractor.FromText(strings.Repeat("é", 200)+".", nil)

	assert.True(t, utf8.ValidString(resp.Summary))
	assert.LessOrEqual(t, utf8.RuneCountInString(resp.Summary), 150)
	assert.True(t, strings.HasSuffix(resp.Summary, "..."))
}

func TestFromTextSummaryLimitCountsCharactersNotBytes(t *testing.T) {
	extractor := NewResponseExtractor()
	// 101 characters but 201 bytes; within the character limit
	text := strings.Repeat("é", 100) + "."

	resp := extractor.FromText(text, nil)

	assert.Equal(t, text, resp.Summary)
	assert.True(t, utf8.ValidString(resp.Summary))
}

func TestFromTextShortSummaryKeptWhole(t *testing.T) {
	extractor := NewResponseExtractor()

	resp := extractor.FromText("All metrics look healthy.", nil)

	assert.Equal(t, "All metrics look healthy.", resp.Summary)
}

func TestFromTextBulletedFindingsWithSeverity(t *testing.T) {
	extractor := NewResponseExtractor()
	text := `Overview of recent performance.

- Failed the last engine room inspection, an incident was logged
- Attendance shows a declining trend against SF0001
- Excellent bridge teamwork this quarter
- Watch handovers were routine
`

	resp := extractor.FromText(text, nil)

	require.Len(t, resp.KeyFindings, 4)
	assert.Equal(t, models.SeverityCritical, resp.KeyFindings[0].Severity)
	assert.Equal(t, models.SeverityConcern, resp.KeyFindings[1].Severity)
	assert.Equal(t, models.SeverityPositive, resp.KeyFindings[2].Severity)
	assert.Equal(t, models.SeverityNeutral, resp.KeyFindings[3].Severity)

	assert.Equal(t, []string{"SF0001"}, resp.KeyFindings[1].SupportingCodes)
	assert.NotContains(t, resp.KeyFindings[1].Finding, "SF0001", "finding text is stripped")
}

func TestFromTextFallsBackToLeadingParagraphs(t *testing.T) {
	extractor := NewResponseExtractor()
	text := "First paragraph of analysis.\n\nSecond paragraph with more detail.\n\nThird."

	resp := extractor.FromText(text, nil)

	require.GreaterOrEqual(t, len(resp.KeyFindings), 3)
	assert.Equal(t, "First paragraph of analysis.", resp.KeyFindings[0].Finding)
}

func TestFromTextRiskSeverityKeywords(t *testing.T) {
	extractor := NewResponseExtractor()
	text := `- There is a critical detention risk at the next port call
- High risk of certification lapse before the voyage
- Moderate risk around attendance
- Some risk of fatigue on long rotations
`

	resp := extractor.FromText(text, nil)

	require.Len(t, resp.RiskIndicators, 4)
	assert.Equal(t, models.RiskCritical, resp.RiskIndicators[0].Severity)
	assert.Equal(t, models.RiskHigh, resp.RiskIndicators[1].Severity)
	assert.Equal(t, models.RiskMedium, resp.RiskIndicators[2].Severity)
	assert.Equal(t, models.RiskLow, resp.RiskIndicators[3].Severity, "defaults to LOW")

	assert.Equal(t, "certification", resp.RiskIndicators[1].RiskType)
}

func TestFromTextActionsFromRecommendationLines(t *testing.T) {
	extractor := NewResponseExtractor()
	text := `Summary line.
We recommend refresher training before the next rotation.
The officer should be paired with a senior mentor.
You must renew the medical certificate.
Also we advise a follow-up review.
`

	resp := extractor.FromText(text, nil)

	assert.Len(t, resp.RecommendedActions, 3, "capped at 3")
}

func TestFromTextActionsImperativeFallback(t *testing.T) {
	extractor := NewResponseExtractor()
	text := "Performance held steady. Schedule a simulator session next month. Review the watch roster."

	resp := extractor.FromText(text, nil)

	require.Len(t, resp.RecommendedActions, 2)
	assert.Contains(t, resp.RecommendedActions[0], "Schedule a simulator session")
}

func TestFromTextDetailedAnalysisOnlyWhenLong(t *testing.T) {
	extractor := NewResponseExtractor()

	short := extractor.FromText("Brief answer.", nil)
	assert.Empty(t, short.DetailedAnalysis)

	long := extractor.FromText(strings.Repeat("Substantial narrative follows here. ", 20), nil)
	assert.NotEmpty(t, long.DetailedAnalysis)
}

func TestTraceabilityFlagsMissingSnapshotCodes(t *testing.T) {
	extractor := NewResponseExtractor()
	snapshot := []models.MetricReading{
		{Code: "SF0001", Score: floatPtr(42)},
	}
	text := "SF0001 is weak while CO0001 was not measured this period."

	resp := extractor.FromText(text, snapshot)

	require.Len(t, resp.Traceability, 2)

	present := resp.Traceability[0]
	assert.Equal(t, "SF0001", present.Code)
	assert.Equal(t, "Safety Compliance Rate", present.HumanName)
	require.NotNil(t, present.Score)
	assert.Equal(t, 42.0, *present.Score)
	assert.Contains(t, present.Interpretation, "Safety Compliance Rate (SF0001)")

	missing := resp.Traceability[1]
	assert.Equal(t, "CO0001", missing.Code)
	assert.Nil(t, missing.Score)
	assert.Equal(t, "Data not available", missing.Interpretation)
}

func TestFromStructuredStripsUserFacingFields(t *testing.T) {
	extractor := NewResponseExtractor()
	raw := &models.StructuredResponse{
		Summary: "CO0001 dipped below the fleet median.",
		KeyFindings: []models.KeyFinding{
			{Finding: "Watch performance on NV0301 declined", SupportingCodes: []string{"NV0301"}, Severity: models.SeverityConcern},
		},
		RiskIndicators: []models.RiskIndicator{
			{RiskType: "communication", Severity: models.RiskMedium, Description: "CO0001 trending down", AffectedCodes: []string{"CO0001"}},
		},
		RecommendedActions: []string{"Coach the officer on CO0001 basics"},
	}

	resp := extractor.FromStructured(raw, `{"summary": "CO0001 dipped"}`, nil)

	assert.False(t, codeToken.MatchString(resp.Summary))
	assert.False(t, codeToken.MatchString(resp.KeyFindings[0].Finding))
	assert.False(t, codeToken.MatchString(resp.RiskIndicators[0].Description))
	assert.False(t, codeToken.MatchString(resp.RecommendedActions[0]))

	// Code arrays keep their raw tokens
	assert.Equal(t, []string{"NV0301"}, resp.KeyFindings[0].SupportingCodes)
	assert.Equal(t, []string{"CO0001"}, resp.RiskIndicators[0].AffectedCodes)

	// Traceability is rebuilt from the raw model text
	require.Len(t, resp.Traceability, 1)
	assert.Equal(t, "CO0001", resp.Traceability[0].Code)
}

func TestFromStructuredInfersMissingSeverities(t *testing.T) {
	extractor := NewResponseExtractor()
	raw := &models.StructuredResponse{
		KeyFindings: []models.KeyFinding{
			{Finding: "Failed the port state inspection", Severity: "bogus"},
		},
		RiskIndicators: []models.RiskIndicator{
			{RiskType: "safety", Description: "serious hazard near the cargo deck", Severity: "??"},
		},
	}

	resp := extractor.FromStructured(raw, "", nil)

	assert.Equal(t, models.SeverityCritical, resp.KeyFindings[0].Severity)
	assert.Equal(t, models.RiskHigh, resp.RiskIndicators[0].Severity)
}
