package app

import (
	"context"
	"log"
	"strings"

	"crewsight/ai"
	"crewsight/models"
	"crewsight/ports"
)

// UnderstandingStage classifies intent and extracts entities from a raw
// question with a single structured completion call.
type UnderstandingStage struct {
	llm ports.CompletionClient
}

// NewUnderstandingStage creates the query understanding stage
func NewUnderstandingStage(llm ports.CompletionClient) *UnderstandingStage {
	return &UnderstandingStage{llm: llm}
}

// Understand runs the classification call and normalizes its output.
// The returned usage covers exactly one completion.
func (s *UnderstandingStage) Understand(ctx context.Context, question string) (*models.QueryUnderstanding, *models.CompletionResult, error) {
	req := models.CompletionRequest{
		System: "You are a precise intent classifier for a crew performance system. Respond only with JSON.",
		Turns: []models.Turn{
			{Role: models.RoleUser, Text: ai.BuildUnderstandingPrompt(question)},
		},
	}

	understanding, usage, err := ai.CompleteStructured[models.QueryUnderstanding](ctx, s.llm, req)
	if err != nil {
		return nil, nil, err
	}

	normalize(understanding)
	log.Printf("[Understanding] intent=%s confidence=%.2f subjects=%d clarification=%v",
		understanding.Intent, understanding.Confidence, len(understanding.Entities.Subjects), understanding.ClarificationNeeded)

	return understanding, usage, nil
}

// normalize coerces model output onto the closed enumerations
func normalize(u *models.QueryUnderstanding) {
	u.Intent = models.Intent(strings.ToLower(strings.TrimSpace(string(u.Intent))))
	if !u.Intent.IsValid() {
		log.Printf("[Understanding] Unknown intent %q, treating as general_question", u.Intent)
		u.Intent = models.IntentGeneralQuestion
	}

	if u.Confidence < 0 {
		u.Confidence = 0
	}
	if u.Confidence > 1 {
		u.Confidence = 1
	}

	// The prompt contract reserves clarification for questions with no
	// extractable subject and no metric; enforce it post-hoc as well.
	if u.ClarificationNeeded && (len(u.Entities.Subjects) > 0 || len(u.Entities.MetricCodes) > 0) {
		u.ClarificationNeeded = false
		u.ClarificationQuestions = nil
	}
}
