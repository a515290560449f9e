package postgres

import (
	"context"
	"sort"

	"crewsight/models"
	"crewsight/ports"

	"github.com/jmoiron/sqlx"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// minSampleSize is the smallest population worth summarizing; below it the
// benchmark is treated as absent rather than misleading.
const minSampleSize = 3

// BenchmarkRepositoryImpl implements BenchmarkRepository for PostgreSQL.
// Raw scores are pulled per metric and the distribution statistics are
// computed in-process, keeping the SQL trivial.
type BenchmarkRepositoryImpl struct {
	db *sqlx.DB
}

// NewBenchmarkRepository creates a new PostgreSQL benchmark repository
func NewBenchmarkRepository(db *sqlx.DB) ports.BenchmarkRepository {
	return &BenchmarkRepositoryImpl{db: db}
}

// ForMetric returns fleet-wide distribution statistics for one metric
func (r *BenchmarkRepositoryImpl) ForMetric(ctx context.Context, code string) (*models.BenchmarkStats, error) {
	scores, err := r.scores(ctx, code, "")
	if err != nil {
		return nil, err
	}
	return summarize(code, "", scores)
}

// ForMetricAndRank returns distribution statistics restricted to one rank
func (r *BenchmarkRepositoryImpl) ForMetricAndRank(ctx context.Context, code, rank string) (*models.BenchmarkStats, error) {
	scores, err := r.scores(ctx, code, rank)
	if err != nil {
		return nil, err
	}
	return summarize(code, rank, scores)
}

// PercentileRank places score within the fleet's empirical distribution for
// code, returned in [0,100]. An empty distribution ranks at 50.
func (r *BenchmarkRepositoryImpl) PercentileRank(ctx context.Context, code string, score float64) (float64, error) {
	scores, err := r.scores(ctx, code, "")
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return 50, nil
	}

	sort.Float64s(scores)
	return stat.CDF(score, stat.Empirical, scores, nil) * 100, nil
}

func (r *BenchmarkRepositoryImpl) scores(ctx context.Context, code, rank string) ([]float64, error) {
	query := `
		SELECT m.score
		FROM metric_scores m
		JOIN crew_members c ON c.id = m.crew_id
		WHERE m.code = $1 AND m.score IS NOT NULL
	`
	args := []interface{}{code}
	if rank != "" {
		query += " AND c.rank = $2"
		args = append(args, rank)
	}

	var scores []float64
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, err
	}
	return scores, nil
}

// summarize computes the distribution statistics, or (nil, nil) when the
// sample is too small to be meaningful.
func summarize(code, rank string, scores []float64) (*models.BenchmarkStats, error) {
	if len(scores) < minSampleSize {
		return nil, nil
	}

	data := stats.Float64Data(scores)
	mean, err := data.Mean()
	if err != nil {
		return nil, err
	}
	median, err := data.Median()
	if err != nil {
		return nil, err
	}
	stdDev, err := data.StandardDeviation()
	if err != nil {
		return nil, err
	}
	p25, err := data.Percentile(25)
	if err != nil {
		return nil, err
	}
	p75, err := data.Percentile(75)
	if err != nil {
		return nil, err
	}

	return &models.BenchmarkStats{
		MetricCode: code,
		Rank:       rank,
		Mean:       mean,
		Median:     median,
		StdDev:     stdDev,
		P25:        p25,
		P75:        p75,
		SampleSize: len(scores),
	}, nil
}
