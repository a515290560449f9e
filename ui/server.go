package ui

import (
	"context"
	"log"

	"crewsight/app"
	"crewsight/models"

	"github.com/gin-gonic/gin"
)

// queryService is the slice of the query pipeline the handlers call
type queryService interface {
	HandleChatQuery(ctx context.Context, question, conversationID string) (*models.ChatAnswer, error)
	GenerateSummary(ctx context.Context, crewID int64) (*models.SummaryRecord, int, error)
	AnalyzeRisks(ctx context.Context, crewID int64) ([]models.RiskIndicator, int, error)
	CompareSubjects(ctx context.Context, aID, bID int64, aspects []string) (*models.ComparisonResult, error)
	AssessReadiness(ctx context.Context, crewID int64, targetRank string) (*models.ReadinessAssessment, error)
	RegenerateFleetSummaries(ctx context.Context) ([]models.BatchResult, error)
}

// Server is the HTTP API over the query pipeline
type Server struct {
	router  *gin.Engine
	queries queryService
}

// NewServer creates the API server
func NewServer(queries *app.QueryService, ginMode string) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}

	s := &Server{
		router:  gin.Default(),
		queries: queries,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	api.POST("/chat", s.handleChat)
	api.POST("/crew/:id/summary", s.handleGenerateSummary)
	api.GET("/crew/:id/risks", s.handleRisks)
	api.POST("/crew/:id/readiness", s.handleReadiness)
	api.POST("/compare", s.handleCompare)
	api.POST("/fleet/regenerate", s.handleRegenerateFleet)
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	log.Printf("Starting crewsight API on http://%s", addr)
	return s.router.Run(addr)
}
