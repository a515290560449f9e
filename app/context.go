package app

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"

	"crewsight/internal/errors"
	"crewsight/models"
	"crewsight/ports"
)

const (
	// lowMetricThreshold marks a numeric metric as contributing to risk
	lowMetricThreshold = 50.0
	// minHeuristicScore is the minimum low-metric count to keep a subject
	minHeuristicScore = 5
	// heuristicSampleSize caps the fleet sample scanned by the fallback
	heuristicSampleSize = 30
	// maxCandidates caps the ranked multi-subject set
	maxCandidates = 20
	// recentEventLimit caps the history pulled into a subject context
	recentEventLimit = 10
)

// multiSubjectKeywords trigger the multi-subject branch when present in the
// lowercased question.
var multiSubjectKeywords = []string{
	"all crew",
	"which crew",
	"list crew",
	"who are",
	"ranking",
	"rank the",
	"top performers",
	"worst performers",
	"highest risk",
	"at risk",
	"across the fleet",
	"fleet-wide",
	"fleet wide",
	"everyone",
}

// ContextAssembler decides what context a question needs and gathers it
type ContextAssembler struct {
	crew       ports.CrewRepository
	metrics    ports.MetricRepository
	history    ports.HistoryRepository
	benchmarks ports.BenchmarkRepository
	summaries  ports.SummaryRepository
}

// NewContextAssembler creates the context assembly stage
func NewContextAssembler(
	crew ports.CrewRepository,
	metrics ports.MetricRepository,
	history ports.HistoryRepository,
	benchmarks ports.BenchmarkRepository,
	summaries ports.SummaryRepository,
) *ContextAssembler {
	return &ContextAssembler{
		crew:       crew,
		metrics:    metrics,
		history:    history,
		benchmarks: benchmarks,
		summaries:  summaries,
	}
}

// Assemble picks one of three branches, in priority order: multi-subject,
// single-subject, no-subject. Subject resolution failures never error; the
// pipeline proceeds without subject grounding.
func (a *ContextAssembler) Assemble(ctx context.Context, question string, understanding *models.QueryUnderstanding) *models.AssembledContext {
	if a.wantsMultiSubject(question, understanding) {
		fleet := a.assembleFleet(ctx)
		log.Printf("[ContextAssembler] multi-subject branch, %d candidates", len(fleet))
		return &models.AssembledContext{Branch: models.BranchMultiSubject, Fleet: fleet}
	}

	if len(understanding.Entities.Subjects) == 1 {
		subject := a.resolveReference(ctx, understanding.Entities.Subjects[0])
		if subject.Resolved() {
			log.Printf("[ContextAssembler] single-subject branch, resolved crew %d", subject.Crew.ID)
		} else {
			log.Printf("[ContextAssembler] single-subject branch, reference %q unresolved, proceeding without grounding",
				understanding.Entities.Subjects[0])
		}
		return &models.AssembledContext{Branch: models.BranchSingleSubject, Subject: subject}
	}

	log.Printf("[ContextAssembler] no-subject branch")
	return &models.AssembledContext{Branch: models.BranchNoSubject, Subject: &models.SubjectContext{}}
}

// wantsMultiSubject checks the fixed keyword set and the risk-analysis
// intent with zero extracted subjects.
func (a *ContextAssembler) wantsMultiSubject(question string, understanding *models.QueryUnderstanding) bool {
	lower := strings.ToLower(question)
	for _, keyword := range multiSubjectKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return understanding.Intent == models.IntentRiskAnalysis && len(understanding.Entities.Subjects) == 0
}

// assembleFleet sources the ranked subject set from persisted HIGH/CRITICAL
// summaries, falling back to the risk heuristic when none exist.
func (a *ContextAssembler) assembleFleet(ctx context.Context) []models.RiskCandidate {
	records, err := a.summaries.ByRiskLevels(ctx, []string{string(models.RiskHigh), string(models.RiskCritical)}, maxCandidates)
	if err != nil {
		log.Printf("[ContextAssembler] summary lookup failed, using heuristic: %v", err)
		return a.RankByRiskHeuristic(ctx)
	}
	if len(records) == 0 {
		return a.RankByRiskHeuristic(ctx)
	}

	seen := make(map[int64]struct{}, len(records))
	candidates := make([]models.RiskCandidate, 0, len(records))
	for _, record := range records {
		if _, dup := seen[record.CrewID]; dup {
			continue
		}
		seen[record.CrewID] = struct{}{}

		candidate := models.RiskCandidate{
			CrewID:   record.CrewID,
			Severity: record.RiskLevel,
			Source:   "summary",
		}
		if member, err := a.crew.GetByID(ctx, record.CrewID); err == nil && member != nil {
			candidate.FullName = member.FullName
			candidate.Rank = member.Rank
			candidate.Vessel = member.Vessel
		}
		candidates = append(candidates, candidate)
		if len(candidates) == maxCandidates {
			break
		}
	}
	return candidates
}

// RankByRiskHeuristic is the deterministic fallback used when no
// precomputed risk data exists: sample up to 30 subjects, score each as the
// count of numeric metrics below 50, keep scores >= 5, sort descending,
// cap at 20.
func (a *ContextAssembler) RankByRiskHeuristic(ctx context.Context) []models.RiskCandidate {
	sample, err := a.crew.Sample(ctx, heuristicSampleSize)
	if err != nil {
		log.Printf("[ContextAssembler] heuristic sample failed: %v", err)
		return nil
	}

	var candidates []models.RiskCandidate
	for _, member := range sample {
		snapshot, err := a.metrics.Snapshot(ctx, member.ID)
		if err != nil {
			log.Printf("[ContextAssembler] snapshot failed for crew %d, skipping: %v", member.ID, err)
			continue
		}

		score := 0
		for _, reading := range snapshot {
			if reading.Score != nil && *reading.Score < lowMetricThreshold {
				score++
			}
		}
		if score < minHeuristicScore {
			continue
		}

		candidates = append(candidates, models.RiskCandidate{
			CrewID:    member.ID,
			FullName:  member.FullName,
			Rank:      member.Rank,
			Vessel:    member.Vessel,
			Severity:  heuristicSeverity(score),
			RiskScore: score,
			Source:    "heuristic",
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RiskScore > candidates[j].RiskScore
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

// heuristicSeverity labels an estimated severity from the low-metric count
func heuristicSeverity(score int) string {
	switch {
	case score >= 10:
		return string(models.RiskHigh)
	case score >= 7:
		return string(models.RiskMedium)
	default:
		return string(models.RiskLow)
	}
}

// resolveReference resolves a subject reference: exact identifier match
// first (numeric id, then employee code), then fuzzy name search taking the
// first match. An unresolved reference returns an empty context.
func (a *ContextAssembler) resolveReference(ctx context.Context, reference string) *models.SubjectContext {
	reference = strings.TrimSpace(reference)

	if id, err := strconv.ParseInt(reference, 10, 64); err == nil {
		if member, err := a.crew.GetByID(ctx, id); err == nil && member != nil {
			return a.buildSubjectContext(ctx, member)
		}
	}

	if member, err := a.crew.GetByEmployeeCode(ctx, reference); err == nil && member != nil {
		return a.buildSubjectContext(ctx, member)
	}

	matches, err := a.crew.SearchByName(ctx, reference)
	if err == nil && len(matches) > 0 {
		return a.buildSubjectContext(ctx, &matches[0])
	}

	return &models.SubjectContext{}
}

// AssembleForCrewID builds a full subject context for operations that
// require a resolved subject. Unknown subjects fail with SUBJECT_NOT_FOUND.
func (a *ContextAssembler) AssembleForCrewID(ctx context.Context, crewID int64) (*models.SubjectContext, error) {
	member, err := a.crew.GetByID(ctx, crewID)
	if err != nil {
		return nil, errors.Wrap(err, "crew lookup failed")
	}
	if member == nil {
		return nil, errors.SubjectNotFound(crewID)
	}
	return a.buildSubjectContext(ctx, member), nil
}

// buildSubjectContext gathers the snapshot, history, certifications, and
// benchmarks for a resolved crew member. Built fresh per request; values
// may change between calls, so it is never cached.
func (a *ContextAssembler) buildSubjectContext(ctx context.Context, member *models.CrewMember) *models.SubjectContext {
	subject := &models.SubjectContext{Crew: member}

	snapshot, err := a.metrics.Snapshot(ctx, member.ID)
	if err != nil {
		log.Printf("[ContextAssembler] snapshot fetch failed for crew %d: %v", member.ID, err)
	} else {
		subject.Snapshot = snapshot
	}

	events, err := a.history.RecentEvents(ctx, member.ID, recentEventLimit)
	if err != nil {
		log.Printf("[ContextAssembler] history fetch failed for crew %d: %v", member.ID, err)
	} else {
		subject.History = events
	}

	certs, err := a.history.Certifications(ctx, member.ID)
	if err != nil {
		log.Printf("[ContextAssembler] certification fetch failed for crew %d: %v", member.ID, err)
	} else {
		subject.Certifications = certs
	}

	for i, reading := range subject.Snapshot {
		stats, err := a.benchmarks.ForMetric(ctx, reading.Code)
		if err != nil || stats == nil {
			continue
		}
		subject.Benchmarks = append(subject.Benchmarks, *stats)

		if reading.Score == nil {
			continue
		}
		percentile, err := a.benchmarks.PercentileRank(ctx, reading.Code, *reading.Score)
		if err != nil {
			log.Printf("[ContextAssembler] percentile rank failed for crew %d metric %s: %v", member.ID, reading.Code, err)
			continue
		}
		subject.Snapshot[i].Percentile = &percentile
	}

	return subject
}
