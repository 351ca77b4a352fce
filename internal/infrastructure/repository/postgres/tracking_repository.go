package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docconsole/internal/core/domain"
)

// TrackingRepository reads and deletes prefilter tracking rows. The delete is
// keyed by filename: the tracking table is an index over stage contents, and
// filename is the shared key.
type TrackingRepository struct {
	db        *sql.DB
	prefilter string
}

func NewTrackingRepository(db *sql.DB, prefilterTable string) *TrackingRepository {
	return &TrackingRepository{db: db, prefilter: prefilterTable}
}

func (r *TrackingRepository) ListFailed(ctx context.Context) ([]domain.DocumentRecord, error) {
	table, err := safeIdent(r.prefilter)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT filename, status, model_name, date_created, process_start_time, process_end_time
FROM %s
WHERE status = $1
ORDER BY date_created DESC
`, table), string(domain.StatusFailed))
	if err != nil {
		return nil, fmt.Errorf("query failed records: %w", err)
	}
	defer rows.Close()

	records := []domain.DocumentRecord{}
	for rows.Next() {
		var rec domain.DocumentRecord
		var status string
		var start, end sql.NullTime
		if err := rows.Scan(&rec.Filename, &status, &rec.ModelName, &rec.DateCreated, &start, &end); err != nil {
			return nil, fmt.Errorf("scan tracking row: %w", err)
		}
		rec.Status = domain.RecordStatus(status)
		if start.Valid {
			rec.ProcessStartTime = &start.Time
		}
		if end.Valid {
			rec.ProcessEndTime = &end.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracking rows: %w", err)
	}
	return records, nil
}

func (r *TrackingRepository) DeleteByFilename(ctx context.Context, filename string) (int64, error) {
	table, err := safeIdent(r.prefilter)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
DELETE FROM %s WHERE filename = $1
`, table), filename)
	if err != nil {
		return 0, fmt.Errorf("delete tracking row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
