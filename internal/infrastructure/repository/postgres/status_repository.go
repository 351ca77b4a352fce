package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docconsole/internal/core/domain"
)

// StatusRepository runs the read-only aggregates behind the dashboards.
// Window bounds and statuses are bound parameters; table identifiers are
// allowlisted through the catalog and re-checked lexically here.
type StatusRepository struct {
	db        *sql.DB
	prefilter string
}

func NewStatusRepository(db *sql.DB, prefilterTable string) *StatusRepository {
	return &StatusRepository{db: db, prefilter: prefilterTable}
}

func (r *StatusRepository) StatusCounts(ctx context.Context, window domain.TimeWindow) (map[string]int64, error) {
	table, err := safeIdent(r.prefilter)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT status, COUNT(*) AS count
FROM %s
WHERE date_created >= $1 AND date_created <= $2
GROUP BY status
`, table), window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (r *StatusRepository) CountByStatus(ctx context.Context, tableName string, status domain.RecordStatus) (int64, error) {
	table, err := safeIdent(tableName)
	if err != nil {
		return 0, err
	}

	var count int64
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT COUNT(*) FROM %s WHERE status = $1
`, table), string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return count, nil
}

func (r *StatusRepository) CountRows(ctx context.Context, tableName string) (int64, error) {
	table, err := safeIdent(tableName)
	if err != nil {
		return 0, err
	}

	var count int64
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}

func (r *StatusRepository) ScoreFailureCounts(ctx context.Context, tableName string) ([]domain.ScoreFailure, error) {
	table, err := safeIdent(tableName)
	if err != nil {
		return nil, err
	}

	// score_name ASC tiebreak keeps equal failure counts deterministic.
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT score_name, COUNT(*) AS failure_count, MAX(score_value) AS score_value
FROM %s
GROUP BY score_name
ORDER BY failure_count DESC, score_name ASC
`, table))
	if err != nil {
		return nil, fmt.Errorf("query score failures: %w", err)
	}
	defer rows.Close()

	failures := []domain.ScoreFailure{}
	for rows.Next() {
		var f domain.ScoreFailure
		var maxScore sql.NullFloat64
		if err := rows.Scan(&f.ScoreName, &f.FailureCount, &maxScore); err != nil {
			return nil, fmt.Errorf("scan score failure: %w", err)
		}
		f.MaxScore = maxScore.Float64
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score failures: %w", err)
	}
	return failures, nil
}

func (r *StatusRepository) StageLatency(ctx context.Context, tableName string) (domain.LatencySummary, error) {
	table, err := safeIdent(tableName)
	if err != nil {
		return domain.LatencySummary{}, err
	}

	// Rows with start after end are clock-skew artifacts; they are excluded
	// from the sum and the count rather than contributing negative durations.
	var summary domain.LatencySummary
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT
    COALESCE(SUM(EXTRACT(EPOCH FROM (process_end_time - process_start_time)))::BIGINT, 0) AS total_seconds,
    COUNT(*) AS total_records
FROM %s
WHERE process_start_time IS NOT NULL
  AND process_end_time IS NOT NULL
  AND process_start_time <= process_end_time
`, table)).Scan(&summary.TotalSeconds, &summary.RecordCount)
	if err != nil {
		return domain.LatencySummary{}, fmt.Errorf("query stage latency: %w", err)
	}
	return summary, nil
}
