package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"docconsole/internal/core/domain"
)

func newStatusRepoWithMock(t *testing.T) (*StatusRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewStatusRepository(db, "docai_prefilter"), mock, func() { _ = db.Close() }
}

func TestStatusCountsBindsWindow(t *testing.T) {
	repo, mock, done := newStatusRepoWithMock(t)
	defer done()

	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS count").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PROCESSED", 12).
			AddRow("FAILED", 3))

	counts, err := repo.StatusCounts(context.Background(), domain.TimeWindow{From: from, To: to})
	if err != nil {
		t.Fatalf("StatusCounts() error = %v", err)
	}
	if counts["PROCESSED"] != 12 || counts["FAILED"] != 3 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestScoreFailureCountsOrdersDeterministically(t *testing.T) {
	repo, mock, done := newStatusRepoWithMock(t)
	defer done()

	mock.ExpectQuery("ORDER BY failure_count DESC, score_name ASC").
		WillReturnRows(sqlmock.NewRows([]string{"score_name", "failure_count", "score_value"}).
			AddRow("amount_total", 9, 0.42).
			AddRow("due_date", 9, 0.61).
			AddRow("vendor_name", 2, 0.88))

	failures, err := repo.ScoreFailureCounts(context.Background(), "invoice_col_score_failed_history")
	if err != nil {
		t.Fatalf("ScoreFailureCounts() error = %v", err)
	}
	if len(failures) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(failures))
	}
	if failures[0].ScoreName != "amount_total" || failures[1].ScoreName != "due_date" {
		t.Fatalf("expected tie broken by score_name, got %v", failures)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStageLatencyExcludesSkewedRows(t *testing.T) {
	repo, mock, done := newStatusRepoWithMock(t)
	defer done()

	mock.ExpectQuery("process_start_time <= process_end_time").
		WillReturnRows(sqlmock.NewRows([]string{"total_seconds", "total_records"}).AddRow(300, 10))

	summary, err := repo.StageLatency(context.Background(), "docai_prefilter")
	if err != nil {
		t.Fatalf("StageLatency() error = %v", err)
	}
	if summary.TotalSeconds != 300 || summary.RecordCount != 10 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.AverageSeconds() != 30 {
		t.Fatalf("expected average 30s, got %f", summary.AverageSeconds())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStatusCountsRejectsUnsafeIdentifier(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewStatusRepository(db, "prefilter; DROP TABLE docs")

	_, err = repo.StatusCounts(context.Background(), domain.TimeWindow{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
