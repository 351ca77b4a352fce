package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"docconsole/internal/core/domain"
)

func newSettingsRepoWithMock(t *testing.T) (*SettingsRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewSettingsRepository(db, "score_threshold", "model_metadata"), mock, func() { _ = db.Close() }
}

func TestUpdateThresholdKeysByModelAndScore(t *testing.T) {
	repo, mock, done := newSettingsRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE score_threshold").
		WithArgs("Invoice", "amount_total", 0.75).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateThreshold(context.Background(), domain.ScoreThreshold{
		ModelName:  "Invoice",
		ScoreName:  "amount_total",
		ScoreValue: 0.75,
	})
	if err != nil {
		t.Fatalf("UpdateThreshold() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateMetadataWritesNilFieldsAsNull(t *testing.T) {
	repo, mock, done := newSettingsRepoWithMock(t)
	defer done()

	flattened := "invoice_flatten"
	mock.ExpectExec("UPDATE model_metadata").
		WithArgs("Invoice",
			sql.NullString{String: flattened, Valid: true},
			sql.NullString{},
			sql.NullString{},
			sql.NullString{},
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateMetadata(context.Background(), domain.ModelMetadata{
		ModelName:      "Invoice",
		FlattenedTable: &flattened,
	})
	if err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoadMetadataMapsNullColumns(t *testing.T) {
	repo, mock, done := newSettingsRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM model_metadata").
		WillReturnRows(sqlmock.NewRows([]string{
			"model_name", "flattened_table", "validated_table", "score_failed_table", "folder_name",
		}).AddRow("Invoice", "invoice_flatten", nil, "invoice_col_score_failed_history", nil))

	rows, err := repo.LoadMetadata(context.Background())
	if err != nil {
		t.Fatalf("LoadMetadata() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].ValidatedTable != nil || rows[0].FolderName != nil {
		t.Fatalf("expected nil pointers for NULL columns, got %+v", rows[0])
	}
	if rows[0].FlattenedTable == nil || *rows[0].FlattenedTable != "invoice_flatten" {
		t.Fatalf("expected flattened table preserved, got %+v", rows[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
