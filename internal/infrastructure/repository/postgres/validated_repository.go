package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docconsole/internal/core/domain"
)

// ValidatedRepository reads a model's validated table for the recent-records
// view and the workbook export.
type ValidatedRepository struct {
	db *sql.DB
}

func NewValidatedRepository(db *sql.DB) *ValidatedRepository {
	return &ValidatedRepository{db: db}
}

func (r *ValidatedRepository) ListRecentValidated(ctx context.Context, tableName string, limit int) ([]domain.ValidatedRecord, error) {
	table, err := safeIdent(tableName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT filename, relativepath, date_created, process_start_time, process_end_time
FROM %s
ORDER BY date_created DESC
LIMIT $1
`, table), limit)
	if err != nil {
		return nil, fmt.Errorf("query validated records: %w", err)
	}
	defer rows.Close()

	records := []domain.ValidatedRecord{}
	for rows.Next() {
		var rec domain.ValidatedRecord
		var start, end sql.NullTime
		if err := rows.Scan(&rec.Filename, &rec.RelativePath, &rec.DateCreated, &start, &end); err != nil {
			return nil, fmt.Errorf("scan validated record: %w", err)
		}
		if start.Valid {
			rec.ProcessStartTime = &start.Time
		}
		if end.Valid {
			rec.ProcessEndTime = &end.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validated records: %w", err)
	}
	return records, nil
}
