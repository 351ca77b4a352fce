package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docconsole/internal/core/domain"
)

// AuditRepository appends manual-transition records. Append-only: the type
// exposes no update or delete.
type AuditRepository struct {
	db    *sql.DB
	table string
}

func NewAuditRepository(db *sql.DB, auditTable string) *AuditRepository {
	return &AuditRepository{db: db, table: auditTable}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	table, err := safeIdent(r.table)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (filename, action, timestamp, user_name, comments)
VALUES ($1, $2, $3, $4, $5)
`, table), entry.Filename, entry.Action, entry.Timestamp, entry.User, entry.Comment)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
