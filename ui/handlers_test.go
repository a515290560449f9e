package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crewsight/internal/errors"
	"crewsight/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueries scripts the query pipeline for handler tests
type fakeQueries struct {
	answer       *models.ChatAnswer
	readiness    *models.ReadinessAssessment
	readinessErr error
}

func (f *fakeQueries) HandleChatQuery(ctx context.Context, question, conversationID string) (*models.ChatAnswer, error) {
	return f.answer, nil
}

func (f *fakeQueries) GenerateSummary(ctx context.Context, crewID int64) (*models.SummaryRecord, int, error) {
	return nil, 0, errors.SubjectNotFound(crewID)
}

func (f *fakeQueries) AnalyzeRisks(ctx context.Context, crewID int64) ([]models.RiskIndicator, int, error) {
	return nil, 0, nil
}

func (f *fakeQueries) CompareSubjects(ctx context.Context, aID, bID int64, aspects []string) (*models.ComparisonResult, error) {
	return &models.ComparisonResult{}, nil
}

func (f *fakeQueries) AssessReadiness(ctx context.Context, crewID int64, targetRank string) (*models.ReadinessAssessment, error) {
	return f.readiness, f.readinessErr
}

func (f *fakeQueries) RegenerateFleetSummaries(ctx context.Context) ([]models.BatchResult, error) {
	return nil, nil
}

func newTestServer(queries queryService) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{router: gin.New(), queries: queries}
	s.setupRoutes()
	return s
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestReadinessResponseIncludesTokensUsed(t *testing.T) {
	s := newTestServer(&fakeQueries{readiness: &models.ReadinessAssessment{
		Narrative:  "Nearly there.",
		Level:      models.ReadinessNearlyReady,
		Gaps:       []string{"Passage Planning Quality"},
		Timeline:   "6 months",
		TokensUsed: 44,
	}})

	rec := postJSON(t, s, "/api/crew/7/readiness", `{"target_rank":"Chief Officer"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(44), body["tokens_used"])
	assert.Equal(t, "nearly_ready", body["readiness_level"])
	assert.Equal(t, "Nearly there.", body["narrative"])
}

func TestReadinessRequiresTargetRank(t *testing.T) {
	s := newTestServer(&fakeQueries{})

	rec := postJSON(t, s, "/api/crew/7/readiness", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownSubjectMapsToNotFound(t *testing.T) {
	s := newTestServer(&fakeQueries{readinessErr: errors.SubjectNotFound(404)})

	rec := postJSON(t, s, "/api/crew/404/readiness", `{"target_rank":"Chief Officer"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "crew member 404 not found")
}

func TestChatResponseRendersHTML(t *testing.T) {
	s := newTestServer(&fakeQueries{answer: &models.ChatAnswer{
		DisplayText: "**All clear** on deck.",
		TokensUsed:  12,
	}})

	rec := postJSON(t, s, "/api/chat", `{"question":"status?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(12), body["tokens_used"])
	assert.Contains(t, body["display_html"], "<strong>All clear</strong>")
}
