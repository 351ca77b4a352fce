package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docconsole/internal/core/domain"
)

// SettingsRepository backs the threshold and model-metadata editors. Writes
// are per-row UPDATEs issued only for rows the editor found changed.
type SettingsRepository struct {
	db             *sql.DB
	thresholdTable string
	metadataTable  string
}

func NewSettingsRepository(db *sql.DB, thresholdTable, metadataTable string) *SettingsRepository {
	return &SettingsRepository{
		db:             db,
		thresholdTable: thresholdTable,
		metadataTable:  metadataTable,
	}
}

func (r *SettingsRepository) LoadThresholds(ctx context.Context, modelName string) ([]domain.ScoreThreshold, error) {
	table, err := safeIdent(r.thresholdTable)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT model_name, score_name, score_value
FROM %s
WHERE model_name = $1
ORDER BY score_name
`, table), modelName)
	if err != nil {
		return nil, fmt.Errorf("query thresholds: %w", err)
	}
	defer rows.Close()

	thresholds := []domain.ScoreThreshold{}
	for rows.Next() {
		var t domain.ScoreThreshold
		if err := rows.Scan(&t.ModelName, &t.ScoreName, &t.ScoreValue); err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		thresholds = append(thresholds, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thresholds: %w", err)
	}
	return thresholds, nil
}

func (r *SettingsRepository) UpdateThreshold(ctx context.Context, row domain.ScoreThreshold) error {
	table, err := safeIdent(r.thresholdTable)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s
SET score_value = $3
WHERE model_name = $1 AND score_name = $2
`, table), row.ModelName, row.ScoreName, row.ScoreValue)
	if err != nil {
		return fmt.Errorf("update threshold: %w", err)
	}
	return nil
}

func (r *SettingsRepository) LoadMetadata(ctx context.Context) ([]domain.ModelMetadata, error) {
	table, err := safeIdent(r.metadataTable)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT model_name, flattened_table, validated_table, score_failed_table, folder_name
FROM %s
ORDER BY model_name
`, table))
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	metadata := []domain.ModelMetadata{}
	for rows.Next() {
		var m domain.ModelMetadata
		var flattened, validated, scoreFailed, folder sql.NullString
		if err := rows.Scan(&m.ModelName, &flattened, &validated, &scoreFailed, &folder); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		m.FlattenedTable = stringPtr(flattened)
		m.ValidatedTable = stringPtr(validated)
		m.ScoreFailedTable = stringPtr(scoreFailed)
		m.FolderName = stringPtr(folder)
		metadata = append(metadata, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata: %w", err)
	}
	return metadata, nil
}

func (r *SettingsRepository) UpdateMetadata(ctx context.Context, row domain.ModelMetadata) error {
	table, err := safeIdent(r.metadataTable)
	if err != nil {
		return err
	}

	// Nil fields become SQL NULL through sql.NullString, never "".
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s
SET flattened_table = $2, validated_table = $3, score_failed_table = $4, folder_name = $5
WHERE model_name = $1
`, table), row.ModelName, nullString(row.FlattenedTable), nullString(row.ValidatedTable),
		nullString(row.ScoreFailedTable), nullString(row.FolderName))
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
