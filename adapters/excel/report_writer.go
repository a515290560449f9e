package excel

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// FleetReportRow is one crew member's line in the fleet summary workbook
type FleetReportRow struct {
	CrewID     int64
	FullName   string
	Rank       string
	Vessel     string
	RiskLevel  string
	Summary    string
	TokensUsed int
	Status     string // "ok" or the failure message
}

// reportHeaders is the fixed column order of the fleet summary sheet
var reportHeaders = []string{
	"Crew ID", "Name", "Rank", "Vessel", "Risk Level", "Summary", "Tokens Used", "Status",
}

// ReportWriter writes fleet summary workbooks into a target directory
type ReportWriter struct {
	outputDir string
}

// NewReportWriter creates a fleet report writer
func NewReportWriter(outputDir string) *ReportWriter {
	return &ReportWriter{outputDir: outputDir}
}

// Write produces a dated xlsx workbook from the batch results and returns
// its path.
func (w *ReportWriter) Write(rows []FleetReportRow) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return "", err
		}
		f.SetActiveSheet(idx)
	}

	// Header row
	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return "", err
		}
	}

	// Data rows
	for r, row := range rows {
		values := []interface{}{
			row.CrewID, row.FullName, row.Rank, row.Vessel,
			row.RiskLevel, row.Summary, row.TokensUsed, row.Status,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return "", err
			}
		}
	}

	path := filepath.Join(w.outputDir, fmt.Sprintf("fleet_summary_%s.xlsx", time.Now().UTC().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save fleet report: %w", err)
	}

	log.Printf("[ReportWriter] Wrote %d rows to %s", len(rows), path)
	return path, nil
}
