package ai

import (
	"strings"
	"testing"
	"time"

	"crewsight/models"

	"github.com/stretchr/testify/assert"
)

func fixedSubject() *models.SubjectContext {
	score := 72.5
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	return &models.SubjectContext{
		Crew: &models.CrewMember{
			ID:           7,
			EmployeeCode: "EMP-0007",
			FullName:     "Ivan Petrov",
			Rank:         "Second Officer",
			Department:   "Deck",
			Vessel:       "MV Northern Star",
			Status:       "onboard",
			HiredAt:      time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		Snapshot: []models.MetricReading{
			{
				Code:        "NV0301",
				Score:       &score,
				Detail:      map[string]float64{"night_watch": 70, "port_approach": 75},
				Category:    "navigation",
				Description: "Navigation Watch Performance",
				SourceView:  "v_nav_watch",
			},
		},
		History: []models.HistoryEvent{
			{EventType: "appraisal", Description: "Annual appraisal completed", OccurredAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		},
		Certifications: []models.Certification{
			{Name: "STCW Basic Safety", IssuedAt: time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), ExpiresAt: &expiry},
		},
	}
}

func TestSystemGuardrailsRendersTranslationTable(t *testing.T) {
	prompt := SystemGuardrails()

	assert.Contains(t, prompt, "NEVER show a raw metric code")
	assert.Contains(t, prompt, "at most 150 characters")
	assert.Contains(t, prompt, "Do not speculate")
	assert.Contains(t, prompt, "CO0001 = Communication Effectiveness [communication]")
	assert.Contains(t, prompt, "SF0001 = Safety Compliance Rate [safety]")
}

func TestSystemGuardrailsIsDeterministic(t *testing.T) {
	assert.Equal(t, SystemGuardrails(), SystemGuardrails())
}

func TestBuildUnderstandingPromptListsClosedIntentSet(t *testing.T) {
	prompt := BuildUnderstandingPrompt("Is Ivan onboard?")

	for _, intent := range models.AllIntents {
		assert.Contains(t, prompt, string(intent))
	}
	assert.Contains(t, prompt, "crew_profile")
	assert.Contains(t, prompt, "clarification_needed to false")
	assert.True(t, strings.HasSuffix(prompt, "Is Ivan onboard?"))
}

func TestFormatSubjectBlockSnapshot(t *testing.T) {
	block := FormatSubjectBlock(fixedSubject())

	assert.Contains(t, block, "Name: Ivan Petrov")
	assert.Contains(t, block, "Rank: Second Officer")
	assert.Contains(t, block, "Vessel: MV Northern Star")
	assert.Contains(t, block, "NV0301 (Navigation Watch Performance, navigation): 72.5")
	assert.Contains(t, block, "night_watch=70.0, port_approach=75.0")
	assert.Contains(t, block, "STCW Basic Safety (expires 2027-03-01)")

	// Detail keys are sorted, so rendering is stable
	assert.Equal(t, block, FormatSubjectBlock(fixedSubject()))
}

func TestFormatSubjectBlockRendersFleetPercentile(t *testing.T) {
	subject := fixedSubject()
	percentile := 23.0
	subject.Snapshot[0].Percentile = &percentile

	block := FormatSubjectBlock(subject)

	assert.Contains(t, block, "72.5 (fleet percentile 23)")
}

func TestFormatSubjectBlockUnresolved(t *testing.T) {
	block := FormatSubjectBlock(&models.SubjectContext{})

	assert.Contains(t, block, "not resolved")
	assert.Contains(t, block, "do not fabricate")
}

func TestBuildChatPromptBranches(t *testing.T) {
	history := []models.ConversationTurn{
		{Role: "user", Text: "hello"},
		{Role: "assistant", Text: "hi"},
	}

	single := BuildChatPrompt("How is Ivan doing?", history, &models.AssembledContext{
		Branch:  models.BranchSingleSubject,
		Subject: fixedSubject(),
	})
	assert.Contains(t, single, "CONVERSATION SO FAR:")
	assert.Contains(t, single, "Name: Ivan Petrov")
	assert.Contains(t, single, `"summary"`)

	multi := BuildChatPrompt("Who is at risk?", nil, &models.AssembledContext{
		Branch: models.BranchMultiSubject,
		Fleet: []models.RiskCandidate{
			{CrewID: 1, FullName: "A B", Rank: "AB", Vessel: "MV One", Severity: "HIGH", RiskScore: 11, Source: "heuristic"},
		},
	})
	assert.Contains(t, multi, "FLEET RISK SET")
	assert.Contains(t, multi, "severity HIGH, 11 low metrics")

	empty := BuildChatPrompt("What is STCW?", nil, &models.AssembledContext{Branch: models.BranchNoSubject})
	assert.Contains(t, empty, "No subject context applies")
}

func TestBuildReadinessPrompt(t *testing.T) {
	prompt := BuildReadinessPrompt(fixedSubject(), "Chief Officer")

	assert.Contains(t, prompt, "promotion to Chief Officer")
	assert.Contains(t, prompt, `"readiness_level"`)
}
