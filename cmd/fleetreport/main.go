// Command fleetreport regenerates performance summaries for the whole
// fleet and exports the results as an Excel workbook.
package main

import (
	"context"
	"log"

	"crewsight/adapters/excel"
	"crewsight/internal/config"
	"crewsight/internal/container"
	"crewsight/internal/migration"
	"crewsight/models"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	if err := appContainer.InitWithDatabase(db); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	log.Println("[FleetReport] Starting fleet-wide summary regeneration")
	results, err := appContainer.QueryService.RegenerateFleetSummaries(ctx)
	if err != nil {
		log.Fatalf("Fleet regeneration failed: %v", err)
	}

	rows := buildRows(ctx, appContainer, results)
	path, err := appContainer.ReportWriter.Write(rows)
	if err != nil {
		log.Fatalf("Failed to write fleet report: %v", err)
	}

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}
	log.Printf("[FleetReport] Regenerated %d/%d summaries, report written to %s",
		succeeded, len(results), path)
}

// buildRows resolves each batch result to a report row. Lookup failures
// downgrade the row rather than aborting the export.
func buildRows(ctx context.Context, c *container.Container, results []models.BatchResult) []excel.FleetReportRow {
	rows := make([]excel.FleetReportRow, 0, len(results))
	for _, result := range results {
		row := excel.FleetReportRow{
			CrewID:     result.CrewID,
			TokensUsed: result.TokensUsed,
			Status:     "ok",
		}
		if !result.Success {
			row.Status = result.Error
		}

		member, err := c.CrewRepo.GetByID(ctx, result.CrewID)
		if err != nil {
			log.Printf("[FleetReport] Failed to load crew member %d: %v", result.CrewID, err)
		}
		if member != nil {
			row.FullName = member.FullName
			row.Rank = member.Rank
			row.Vessel = member.Vessel
		}

		summary, err := c.SummaryRepo.LatestForCrew(ctx, result.CrewID)
		if err != nil {
			log.Printf("[FleetReport] Failed to load summary for crew member %d: %v", result.CrewID, err)
		}
		if summary != nil {
			row.RiskLevel = summary.RiskLevel
			row.Summary = summary.Summary
		}

		rows = append(rows, row)
	}
	return rows
}
