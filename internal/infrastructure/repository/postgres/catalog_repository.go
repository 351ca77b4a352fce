package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docconsole/internal/core/domain"
)

// CatalogRepository resolves pipeline models from the model metadata table.
type CatalogRepository struct {
	db    *sql.DB
	table string
}

func NewCatalogRepository(db *sql.DB, metadataTable string) *CatalogRepository {
	return &CatalogRepository{db: db, table: metadataTable}
}

func (r *CatalogRepository) Resolve(ctx context.Context, modelName string) (domain.Model, error) {
	table, err := safeIdent(r.table)
	if err != nil {
		return domain.Model{}, err
	}

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT model_name, flattened_table, validated_table, score_failed_table, folder_name
FROM %s
WHERE model_name = $1
`, table), modelName)

	model, err := scanModel(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Model{}, domain.WrapError(domain.ErrModelNotFound, "resolve model",
				fmt.Errorf("model %q", modelName))
		}
		return domain.Model{}, fmt.Errorf("scan model: %w", err)
	}
	return model, nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]domain.Model, error) {
	table, err := safeIdent(r.table)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT model_name, flattened_table, validated_table, score_failed_table, folder_name
FROM %s
ORDER BY model_name
`, table))
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	// An empty metadata table is a valid empty catalog, not an error.
	models := []domain.Model{}
	for rows.Next() {
		model, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return models, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (domain.Model, error) {
	var model domain.Model
	var flattened, validated, scoreFailed, folder sql.NullString

	if err := row.Scan(&model.Name, &flattened, &validated, &scoreFailed, &folder); err != nil {
		return domain.Model{}, err
	}
	model.FlattenedTable = flattened.String
	model.ValidatedTable = validated.String
	model.ScoreFailedTable = scoreFailed.String
	model.FolderName = folder.String
	return model, nil
}
