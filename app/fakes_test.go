package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crewsight/models"

	"github.com/google/uuid"
)

// fakeLLM returns scripted JSON payloads in order, repeating the last one
// when the script runs out.
type fakeLLM struct {
	jsonPayloads []string
	jsonErrs     []error
	jsonCalls    int

	plainText  string
	plainErr   error
	plainCalls int
}

func (f *fakeLLM) next() (string, error) {
	idx := f.jsonCalls
	f.jsonCalls++
	if len(f.jsonErrs) > 0 {
		errIdx := idx
		if errIdx >= len(f.jsonErrs) {
			errIdx = len(f.jsonErrs) - 1
		}
		if f.jsonErrs[errIdx] != nil {
			return "", f.jsonErrs[errIdx]
		}
	}
	if len(f.jsonPayloads) == 0 {
		return "", fmt.Errorf("no scripted payload")
	}
	if idx >= len(f.jsonPayloads) {
		idx = len(f.jsonPayloads) - 1
	}
	return f.jsonPayloads[idx], nil
}

func (f *fakeLLM) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResult, error) {
	f.plainCalls++
	if f.plainErr != nil {
		return nil, f.plainErr
	}
	return &models.CompletionResult{Text: f.plainText, StopReason: "stop", InputTokens: 10, OutputTokens: 5}, nil
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, req models.CompletionRequest, out any) (*models.CompletionResult, error) {
	payload, err := f.next()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return nil, err
	}
	return &models.CompletionResult{Text: payload, StopReason: "stop", InputTokens: 20, OutputTokens: 10}, nil
}

func (f *fakeLLM) StreamComplete(ctx context.Context, req models.CompletionRequest) (<-chan string, error) {
	chunks := make(chan string)
	close(chunks)
	return chunks, nil
}

type fakeCrewRepo struct {
	members map[int64]models.CrewMember
	byCode  map[string]int64
	byName  map[string]int64
	sample  []models.CrewMember
	ids     []int64

	getErr map[int64]error
}

func (f *fakeCrewRepo) GetByID(ctx context.Context, id int64) (*models.CrewMember, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	if member, ok := f.members[id]; ok {
		return &member, nil
	}
	return nil, nil
}

func (f *fakeCrewRepo) GetByEmployeeCode(ctx context.Context, code string) (*models.CrewMember, error) {
	if id, ok := f.byCode[code]; ok {
		return f.GetByID(ctx, id)
	}
	return nil, nil
}

func (f *fakeCrewRepo) SearchByName(ctx context.Context, query string) ([]models.CrewMember, error) {
	if id, ok := f.byName[query]; ok {
		member := f.members[id]
		return []models.CrewMember{member}, nil
	}
	return nil, nil
}

func (f *fakeCrewRepo) ListIDs(ctx context.Context) ([]int64, error) {
	return f.ids, nil
}

func (f *fakeCrewRepo) Sample(ctx context.Context, limit int) ([]models.CrewMember, error) {
	if len(f.sample) > limit {
		return f.sample[:limit], nil
	}
	return f.sample, nil
}

type fakeMetricRepo struct {
	snapshots map[int64][]models.MetricReading
	errs      map[int64]error
}

func (f *fakeMetricRepo) Snapshot(ctx context.Context, crewID int64) ([]models.MetricReading, error) {
	if err := f.errs[crewID]; err != nil {
		return nil, err
	}
	return f.snapshots[crewID], nil
}

type fakeHistoryRepo struct {
	events map[int64][]models.HistoryEvent
	certs  map[int64][]models.Certification
}

func (f *fakeHistoryRepo) RecentEvents(ctx context.Context, crewID int64, limit int) ([]models.HistoryEvent, error) {
	events := f.events[crewID]
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (f *fakeHistoryRepo) EventsByType(ctx context.Context, crewID int64, eventType string, from, to time.Time) ([]models.HistoryEvent, error) {
	return f.events[crewID], nil
}

func (f *fakeHistoryRepo) Certifications(ctx context.Context, crewID int64) ([]models.Certification, error) {
	return f.certs[crewID], nil
}

type fakeBenchmarkRepo struct {
	stats       map[string]models.BenchmarkStats
	percentiles map[string]float64
}

func (f *fakeBenchmarkRepo) ForMetric(ctx context.Context, code string) (*models.BenchmarkStats, error) {
	if stats, ok := f.stats[code]; ok {
		return &stats, nil
	}
	return nil, nil
}

func (f *fakeBenchmarkRepo) ForMetricAndRank(ctx context.Context, code, rank string) (*models.BenchmarkStats, error) {
	return f.ForMetric(ctx, code)
}

func (f *fakeBenchmarkRepo) PercentileRank(ctx context.Context, code string, score float64) (float64, error) {
	if pct, ok := f.percentiles[code]; ok {
		return pct, nil
	}
	return 50, nil
}

type fakeSummaryRepo struct {
	byRisk  []models.SummaryRecord
	saved   []*models.SummaryRecord
	saveErr error
}

func (f *fakeSummaryRepo) Save(ctx context.Context, record *models.SummaryRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeSummaryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SummaryRecord, error) {
	for _, record := range f.saved {
		if record.ID == id {
			return record, nil
		}
	}
	return nil, nil
}

func (f *fakeSummaryRepo) LatestForCrew(ctx context.Context, crewID int64) (*models.SummaryRecord, error) {
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].CrewID == crewID {
			return f.saved[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSummaryRepo) ByRiskLevels(ctx context.Context, levels []string, limit int) ([]models.SummaryRecord, error) {
	var out []models.SummaryRecord
	for _, record := range f.byRisk {
		for _, level := range levels {
			if record.RiskLevel == level {
				out = append(out, record)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeConversationRepo struct {
	turns    map[string][]models.ConversationTurn
	appended []models.ConversationTurn
}

func (f *fakeConversationRepo) Append(ctx context.Context, turn *models.ConversationTurn) error {
	f.appended = append(f.appended, *turn)
	return nil
}

func (f *fakeConversationRepo) Tail(ctx context.Context, conversationID string, limit int) ([]models.ConversationTurn, error) {
	turns := f.turns[conversationID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// newTestAssembler wires a ContextAssembler over the fakes
func newTestAssembler(crew *fakeCrewRepo, metrics *fakeMetricRepo, summaries *fakeSummaryRepo) *ContextAssembler {
	return NewContextAssembler(
		crew,
		metrics,
		&fakeHistoryRepo{},
		&fakeBenchmarkRepo{},
		summaries,
	)
}

func floatPtr(v float64) *float64 { return &v }

// snapshotWithLowScores builds n readings under the risk threshold plus m at 80
func snapshotWithLowScores(low, healthy int) []models.MetricReading {
	var out []models.MetricReading
	for i := 0; i < low; i++ {
		out = append(out, models.MetricReading{Code: fmt.Sprintf("SF%04d", i+1), Score: floatPtr(30)})
	}
	for i := 0; i < healthy; i++ {
		out = append(out, models.MetricReading{Code: fmt.Sprintf("PF%04d", i+1), Score: floatPtr(80)})
	}
	return out
}
