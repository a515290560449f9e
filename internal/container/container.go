package container

import (
	"context"
	"fmt"
	"log"

	"crewsight/adapters/excel"
	"crewsight/adapters/postgres"
	"crewsight/ai"
	"crewsight/app"
	"crewsight/internal/config"
	"crewsight/models"
	"crewsight/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	CrewRepo         ports.CrewRepository
	MetricRepo       ports.MetricRepository
	HistoryRepo      ports.HistoryRepository
	BenchmarkRepo    ports.BenchmarkRepository
	SummaryRepo      ports.SummaryRepository
	ConversationRepo ports.ConversationRepository

	// AI components
	LLMClient ports.CompletionClient

	// Pipeline stages
	Understanding *app.UnderstandingStage
	Assembler     *app.ContextAssembler
	Extractor     *app.ResponseExtractor
	Validator     *app.Validator
	QueryService  *app.QueryService

	// Reporting
	ReportWriter *excel.ReportWriter
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Container{Config: cfg}, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.initRepositories()
	if err := c.initAIComponents(); err != nil {
		return fmt.Errorf("failed to initialize AI components: %w", err)
	}
	c.initPipeline()

	log.Printf("Container initialized successfully with database connection")
	return nil
}

// initRepositories initializes data access repositories
func (c *Container) initRepositories() {
	c.CrewRepo = postgres.NewCrewRepository(c.DB)
	c.MetricRepo = postgres.NewMetricRepository(c.DB)
	c.HistoryRepo = postgres.NewHistoryRepository(c.DB)
	c.BenchmarkRepo = postgres.NewBenchmarkRepository(c.DB)
	c.SummaryRepo = postgres.NewSummaryRepository(c.DB)
	c.ConversationRepo = postgres.NewConversationRepository(c.DB)
}

// initAIComponents initializes the completion client
func (c *Container) initAIComponents() error {
	if c.Config.AI.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	c.LLMClient = ai.NewClient(&models.AIConfig{
		OpenAIKey:     c.Config.AI.OpenAIKey,
		OpenAIModel:   c.Config.AI.OpenAIModel,
		BaseURL:       c.Config.AI.BaseURL,
		SystemContext: c.Config.AI.SystemContext,
		MaxTokens:     c.Config.AI.MaxTokens,
		Temperature:   c.Config.AI.Temperature,
		Timeout:       c.Config.AI.Timeout,
	})
	return nil
}

// initPipeline wires the query pipeline stages over the repositories
func (c *Container) initPipeline() {
	c.Understanding = app.NewUnderstandingStage(c.LLMClient)
	c.Assembler = app.NewContextAssembler(c.CrewRepo, c.MetricRepo, c.HistoryRepo, c.BenchmarkRepo, c.SummaryRepo)
	c.Extractor = app.NewResponseExtractor()
	c.Validator = app.NewValidator()

	c.QueryService = app.NewQueryService(
		c.LLMClient,
		c.Understanding,
		c.Assembler,
		c.Extractor,
		c.Validator,
		c.CrewRepo,
		c.SummaryRepo,
		c.ConversationRepo,
	)

	c.ReportWriter = excel.NewReportWriter(c.Config.Report.OutputDir)
	log.Printf("Query pipeline initialized: understanding, assembly, extraction, validation")
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
