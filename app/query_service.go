package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"crewsight/ai"
	"crewsight/domain/metrics"
	"crewsight/internal/errors"
	"crewsight/models"
	"crewsight/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	// conversationTailLimit caps the history fed into chat prompts
	conversationTailLimit = 10
	// batchPause is the spacing between subjects in a batch run, kept to
	// respect the completion service's implicit rate limit
	batchPause = time.Second
)

// fallbackDisplayText is the best-effort answer when every completion path
// has failed; the chat operation still returns normally.
const fallbackDisplayText = "I could not reach the analysis service just now. Please try the question again shortly."

// QueryService composes the pipeline stages into the operations used by
// request handlers. Each invocation is stateless; stages run strictly
// sequentially within it.
type QueryService struct {
	llm           ports.CompletionClient
	understanding *UnderstandingStage
	assembler     *ContextAssembler
	extractor     *ResponseExtractor
	validator     *Validator
	crew          ports.CrewRepository
	summaries     ports.SummaryRepository
	conversations ports.ConversationRepository

	// batchGate keeps at most one batch subject in flight
	batchGate *semaphore.Weighted
	// sleep is swapped out in tests to observe batch spacing without waiting
	sleep func(time.Duration)
}

// NewQueryService wires the pipeline orchestrator
func NewQueryService(
	llm ports.CompletionClient,
	understanding *UnderstandingStage,
	assembler *ContextAssembler,
	extractor *ResponseExtractor,
	validator *Validator,
	crew ports.CrewRepository,
	summaries ports.SummaryRepository,
	conversations ports.ConversationRepository,
) *QueryService {
	return &QueryService{
		llm:           llm,
		understanding: understanding,
		assembler:     assembler,
		extractor:     extractor,
		validator:     validator,
		crew:          crew,
		summaries:     summaries,
		conversations: conversations,
		batchGate:     semaphore.NewWeighted(1),
		sleep:         time.Sleep,
	}
}

// HandleChatQuery answers a free-text question. Model and extraction
// failures never propagate: the operation degrades to a plain-text
// completion with heuristic code stripping, and if that also fails it
// returns a best-effort unavailability message.
func (s *QueryService) HandleChatQuery(ctx context.Context, question, conversationID string) (*models.ChatAnswer, error) {
	tokens := 0

	understanding := s.understand(ctx, question, &tokens)
	tail := s.conversationTail(ctx, conversationID)
	assembled := s.assembler.Assemble(ctx, question, understanding)

	prompt := ai.BuildChatPrompt(question, tail, assembled)
	req := models.CompletionRequest{
		System: ai.SystemGuardrails(),
		Turns:  []models.Turn{{Role: models.RoleUser, Text: prompt}},
	}

	answer := &models.ChatAnswer{}
	structured, usage, err := ai.CompleteStructured[models.StructuredResponse](ctx, s.llm, req)
	if err == nil {
		tokens += usage.TotalTokens()
		resp := s.extractor.FromStructured(structured, usage.Text, snapshotOf(assembled))
		validation := s.validator.ValidateAndRepair(resp)
		for _, violation := range validation.Errors {
			log.Printf("[QueryService] validation: %s", violation)
		}
		answer.Structured = resp
		answer.DisplayText = renderDisplayText(resp)
	} else {
		log.Printf("[QueryService] structured path failed, degrading to plain text: %v", err)
		answer.DisplayText = s.plainFallback(ctx, req, &tokens)
	}

	answer.TokensUsed = tokens
	s.appendConversation(ctx, conversationID, question, answer.DisplayText)
	return answer, nil
}

// understand runs the understanding stage, degrading to a zero-value
// general question when the classification call fails.
func (s *QueryService) understand(ctx context.Context, question string, tokens *int) *models.QueryUnderstanding {
	understanding, usage, err := s.understanding.Understand(ctx, question)
	if err != nil {
		log.Printf("[QueryService] understanding failed, assuming general question: %v", err)
		return &models.QueryUnderstanding{
			Intent:     models.IntentGeneralQuestion,
			Confidence: 0,
		}
	}
	*tokens += usage.TotalTokens()
	return understanding
}

// plainFallback runs the plain completion path and strips codes
// heuristically. On total failure it returns the canned message.
func (s *QueryService) plainFallback(ctx context.Context, req models.CompletionRequest, tokens *int) string {
	result, err := s.llm.Complete(ctx, req)
	if err != nil {
		log.Printf("[QueryService] plain fallback also failed: %v", err)
		return fallbackDisplayText
	}
	*tokens += result.TotalTokens()
	return strings.TrimSpace(metrics.StripCodes(result.Text))
}

func (s *QueryService) conversationTail(ctx context.Context, conversationID string) []models.ConversationTurn {
	tail, err := s.conversations.Tail(ctx, conversationID, conversationTailLimit)
	if err != nil {
		log.Printf("[QueryService] conversation tail fetch failed: %v", err)
		return nil
	}
	return tail
}

func (s *QueryService) appendConversation(ctx context.Context, conversationID, question, reply string) {
	for _, turn := range []models.ConversationTurn{
		{ConversationID: conversationID, Role: string(models.RoleUser), Text: question},
		{ConversationID: conversationID, Role: string(models.RoleAssistant), Text: reply},
	} {
		turn := turn
		if err := s.conversations.Append(ctx, &turn); err != nil {
			log.Printf("[QueryService] conversation append failed: %v", err)
		}
	}
}

// snapshotOf returns the metric snapshot backing an assembled context
func snapshotOf(assembled *models.AssembledContext) []models.MetricReading {
	if assembled.Subject != nil {
		return assembled.Subject.Snapshot
	}
	return nil
}

// renderDisplayText flattens a structured response into readable text
func renderDisplayText(resp *models.StructuredResponse) string {
	var b strings.Builder
	b.WriteString(resp.Summary)

	if len(resp.KeyFindings) > 0 {
		b.WriteString("\n\nKey findings:\n")
		for _, finding := range resp.KeyFindings {
			fmt.Fprintf(&b, "- [%s] %s\n", finding.Severity, finding.Finding)
		}
	}
	if len(resp.RiskIndicators) > 0 {
		b.WriteString("\nRisks:\n")
		for _, risk := range resp.RiskIndicators {
			fmt.Fprintf(&b, "- [%s] %s\n", risk.Severity, risk.Description)
		}
	}
	if len(resp.RecommendedActions) > 0 {
		b.WriteString("\nRecommended actions:\n")
		for _, action := range resp.RecommendedActions {
			fmt.Fprintf(&b, "- %s\n", action)
		}
	}
	return strings.TrimSpace(b.String())
}

// GenerateSummary produces and persists a performance summary for one crew
// member. Fails with SUBJECT_NOT_FOUND for unknown subjects.
func (s *QueryService) GenerateSummary(ctx context.Context, crewID int64) (*models.SummaryRecord, int, error) {
	subject, err := s.assembler.AssembleForCrewID(ctx, crewID)
	if err != nil {
		return nil, 0, err
	}

	tokens := 0
	resp, err := s.structuredOrHeuristic(ctx, ai.BuildSummaryPrompt(subject), subject.Snapshot, &tokens)
	if err != nil {
		return nil, tokens, err
	}

	validation := s.validator.ValidateAndRepair(resp)
	for _, violation := range validation.Errors {
		log.Printf("[QueryService] summary validation: %s", violation)
	}

	structuredJSON, err := json.Marshal(resp)
	if err != nil {
		return nil, tokens, errors.Wrap(err, "failed to encode structured summary")
	}

	record := &models.SummaryRecord{
		ID:          uuid.New(),
		CrewID:      crewID,
		Summary:     resp.Summary,
		RiskLevel:   string(overallRiskLevel(resp.RiskIndicators)),
		Structured:  structuredJSON,
		TokensUsed:  tokens,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.summaries.Save(ctx, record); err != nil {
		return nil, tokens, errors.Wrap(err, "failed to persist summary")
	}

	return record, tokens, nil
}

// structuredOrHeuristic tries the structured completion path and falls
// back to a plain completion reshaped by the heuristic extractor when the
// model output is malformed.
func (s *QueryService) structuredOrHeuristic(ctx context.Context, prompt string, snapshot []models.MetricReading, tokens *int) (*models.StructuredResponse, error) {
	req := models.CompletionRequest{
		System: ai.SystemGuardrails(),
		Turns:  []models.Turn{{Role: models.RoleUser, Text: prompt}},
	}

	structured, usage, err := ai.CompleteStructured[models.StructuredResponse](ctx, s.llm, req)
	if err == nil {
		*tokens += usage.TotalTokens()
		return s.extractor.FromStructured(structured, usage.Text, snapshot), nil
	}
	if !errors.HasCode(err, errors.CodeMalformedOutput) {
		return nil, err
	}

	log.Printf("[QueryService] structured output malformed, reshaping plain completion: %v", err)
	result, err := s.llm.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	*tokens += result.TotalTokens()
	return s.extractor.FromText(result.Text, snapshot), nil
}

// overallRiskLevel is the maximum severity across risk indicators
func overallRiskLevel(risks []models.RiskIndicator) models.RiskSeverity {
	level := models.RiskLow
	for _, risk := range risks {
		level = models.MaxRiskSeverity(level, risk.Severity)
	}
	return level
}

// AnalyzeRisks returns the risk indicators for one crew member
func (s *QueryService) AnalyzeRisks(ctx context.Context, crewID int64) ([]models.RiskIndicator, int, error) {
	subject, err := s.assembler.AssembleForCrewID(ctx, crewID)
	if err != nil {
		return nil, 0, err
	}

	tokens := 0
	resp, err := s.structuredOrHeuristic(ctx, ai.BuildRiskPrompt(subject), subject.Snapshot, &tokens)
	if err != nil {
		return nil, tokens, err
	}

	validation := s.validator.ValidateAndRepair(resp)
	for _, violation := range validation.Errors {
		log.Printf("[QueryService] risk validation: %s", violation)
	}
	return resp.RiskIndicators, tokens, nil
}

// CompareSubjects compares two crew members on the requested aspects
func (s *QueryService) CompareSubjects(ctx context.Context, aID, bID int64, aspects []string) (*models.ComparisonResult, error) {
	subjectA, err := s.assembler.AssembleForCrewID(ctx, aID)
	if err != nil {
		return nil, err
	}
	subjectB, err := s.assembler.AssembleForCrewID(ctx, bID)
	if err != nil {
		return nil, err
	}

	req := models.CompletionRequest{
		System: ai.SystemGuardrails(),
		Turns:  []models.Turn{{Role: models.RoleUser, Text: ai.BuildComparisonPrompt(subjectA, subjectB, aspects)}},
	}
	comparison, usage, err := ai.CompleteStructured[models.ComparisonResult](ctx, s.llm, req)
	if err != nil {
		return nil, err
	}

	comparison.Narrative = metrics.StripCodes(comparison.Narrative)
	comparison.Overall = metrics.StripCodes(comparison.Overall)
	for i := range comparison.Aspects {
		comparison.Aspects[i].SubjectA = metrics.StripCodes(comparison.Aspects[i].SubjectA)
		comparison.Aspects[i].SubjectB = metrics.StripCodes(comparison.Aspects[i].SubjectB)
	}
	comparison.TokensUsed = usage.TotalTokens()
	return comparison, nil
}

// AssessReadiness evaluates promotion readiness toward a target rank
func (s *QueryService) AssessReadiness(ctx context.Context, crewID int64, targetRank string) (*models.ReadinessAssessment, error) {
	subject, err := s.assembler.AssembleForCrewID(ctx, crewID)
	if err != nil {
		return nil, err
	}

	req := models.CompletionRequest{
		System: ai.SystemGuardrails(),
		Turns:  []models.Turn{{Role: models.RoleUser, Text: ai.BuildReadinessPrompt(subject, targetRank)}},
	}
	assessment, usage, err := ai.CompleteStructured[models.ReadinessAssessment](ctx, s.llm, req)
	if err != nil {
		return nil, err
	}

	assessment.Level = models.ReadinessLevel(strings.ToLower(strings.TrimSpace(string(assessment.Level))))
	if !assessment.Level.IsValid() {
		log.Printf("[QueryService] readiness level %q outside enumeration, treating as not_ready", assessment.Level)
		assessment.Level = models.ReadinessNotReady
	}
	assessment.Narrative = metrics.StripCodes(assessment.Narrative)
	for i := range assessment.Gaps {
		assessment.Gaps[i] = metrics.StripCodes(assessment.Gaps[i])
	}
	assessment.TokensUsed = usage.TotalTokens()
	return assessment, nil
}

// RegenerateFleetSummaries rebuilds every crew member's summary, one
// subject at a time with >=1s spacing to respect the completion service's
// implicit rate limit. A single subject's failure is recorded and does not
// abort the batch.
func (s *QueryService) RegenerateFleetSummaries(ctx context.Context) ([]models.BatchResult, error) {
	ids, err := s.crew.ListIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list crew for batch regeneration")
	}

	results := make([]models.BatchResult, 0, len(ids))
	for i, id := range ids {
		if err := s.batchGate.Acquire(ctx, 1); err != nil {
			return results, errors.Wrap(err, "batch regeneration cancelled")
		}

		if i > 0 && len(ids) > 1 {
			s.sleep(batchPause)
		}

		record, tokens, err := s.GenerateSummary(ctx, id)
		result := models.BatchResult{CrewID: id, TokensUsed: tokens}
		if err != nil {
			result.Error = err.Error()
			log.Printf("[QueryService] batch: crew %d failed: %v", id, err)
		} else {
			result.Success = true
			log.Printf("[QueryService] batch: crew %d summarized, risk=%s", id, record.RiskLevel)
		}
		results = append(results, result)

		s.batchGate.Release(1)
	}
	return results, nil
}
