package ui

import (
	"log"
	"net/http"
	"strconv"

	"crewsight/internal/errors"
	"crewsight/models"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// chatRequest is the POST /api/chat body
type chatRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// compareRequest is the POST /api/compare body
type compareRequest struct {
	SubjectA int64    `json:"subject_a" binding:"required"`
	SubjectB int64    `json:"subject_b" binding:"required"`
	Aspects  []string `json:"aspects"`
}

// readinessRequest is the POST /api/crew/:id/readiness body
type readinessRequest struct {
	TargetRank string `json:"target_rank" binding:"required"`
}

// handleChat answers a free-text question about crew performance
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	answer, err := s.queries.HandleChatQuery(c.Request.Context(), req.Question, req.ConversationID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"display_text": answer.DisplayText,
		"display_html": renderMarkdown(answer.DisplayText),
		"structured":   answer.Structured,
		"tokens_used":  answer.TokensUsed,
	})
}

// handleGenerateSummary generates and persists a performance summary
func (s *Server) handleGenerateSummary(c *gin.Context) {
	crewID, ok := s.crewID(c)
	if !ok {
		return
	}

	record, tokens, err := s.queries.GenerateSummary(c.Request.Context(), crewID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           record.ID,
		"crew_id":      record.CrewID,
		"summary":      record.Summary,
		"risk_level":   record.RiskLevel,
		"generated_at": record.GeneratedAt,
		"tokens_used":  tokens,
	})
}

// handleRisks returns the risk indicators for one crew member
func (s *Server) handleRisks(c *gin.Context) {
	crewID, ok := s.crewID(c)
	if !ok {
		return
	}

	risks, tokens, err := s.queries.AnalyzeRisks(c.Request.Context(), crewID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if risks == nil {
		risks = []models.RiskIndicator{}
	}

	c.JSON(http.StatusOK, gin.H{
		"crew_id":     crewID,
		"risks":       risks,
		"tokens_used": tokens,
	})
}

// handleReadiness assesses promotion readiness toward a target rank
func (s *Server) handleReadiness(c *gin.Context) {
	crewID, ok := s.crewID(c)
	if !ok {
		return
	}

	var req readinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_rank is required"})
		return
	}

	assessment, err := s.queries.AssessReadiness(c.Request.Context(), crewID, req.TargetRank)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"narrative":       assessment.Narrative,
		"readiness_level": assessment.Level,
		"gaps":            assessment.Gaps,
		"timeline":        assessment.Timeline,
		"tokens_used":     assessment.TokensUsed,
	})
}

// handleCompare compares two crew members on the requested aspects
func (s *Server) handleCompare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject_a and subject_b are required"})
		return
	}

	comparison, err := s.queries.CompareSubjects(c.Request.Context(), req.SubjectA, req.SubjectB, req.Aspects)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"narrative":              comparison.Narrative,
		"aspect_breakdown":       comparison.Aspects,
		"overall_recommendation": comparison.Overall,
		"tokens_used":            comparison.TokensUsed,
	})
}

// handleRegenerateFleet rebuilds every crew member's summary
func (s *Server) handleRegenerateFleet(c *gin.Context) {
	results, err := s.queries.RegenerateFleetSummaries(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     len(results),
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
		"results":   results,
	})
}

// crewID parses the :id path parameter, writing the error response itself
func (s *Server) crewID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "crew id must be an integer"})
		return 0, false
	}
	return id, true
}

// renderError maps the error taxonomy onto HTTP statuses
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.HasCode(err, errors.CodeSubjectNotFound):
		status = http.StatusNotFound
	case errors.HasCode(err, errors.CodeInvalidInput), errors.HasCode(err, errors.CodeValidationError):
		status = http.StatusBadRequest
	case errors.HasCode(err, errors.CodeAuthentication):
		status = http.StatusBadGateway
	case errors.HasCode(err, errors.CodeServiceUnavailable), errors.HasCode(err, errors.CodeTransientService):
		status = http.StatusServiceUnavailable
	}

	log.Printf("[API] request failed (status %d): %v", status, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// renderMarkdown converts display text to HTML for browser clients. Parser
// state is per-call; instances are not reusable.
func renderMarkdown(text string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(text), p, renderer))
}
