package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/usecase"
	"docconsole/internal/observability/metrics"
)

type catalogStub struct {
	models map[string]domain.Model
}

func (s *catalogStub) Resolve(_ context.Context, name string) (domain.Model, error) {
	m, ok := s.models[name]
	if !ok {
		return domain.Model{}, domain.WrapError(domain.ErrModelNotFound, "resolve model", errors.New(name))
	}
	return m, nil
}

func (s *catalogStub) List(context.Context) ([]domain.Model, error) {
	out := []domain.Model{}
	for _, m := range s.models {
		out = append(out, m)
	}
	return out, nil
}

type statusRepoStub struct{}

func (statusRepoStub) StatusCounts(context.Context, domain.TimeWindow) (map[string]int64, error) {
	return map[string]int64{"Processed": 5, "Failed": 1}, nil
}
func (statusRepoStub) CountByStatus(context.Context, string, domain.RecordStatus) (int64, error) {
	return 2, nil
}
func (statusRepoStub) CountRows(context.Context, string) (int64, error) { return 3, nil }
func (statusRepoStub) ScoreFailureCounts(context.Context, string) ([]domain.ScoreFailure, error) {
	return []domain.ScoreFailure{{ScoreName: "ocr_confidence", FailureCount: 1, MaxScore: 0.7}}, nil
}
func (statusRepoStub) StageLatency(context.Context, string) (domain.LatencySummary, error) {
	return domain.LatencySummary{TotalSeconds: 60, RecordCount: 2}, nil
}

type stageStub struct {
	listing  []string
	fetchDir string
}

func (s *stageStub) List(context.Context, string) ([]string, error) {
	return s.listing, nil
}

func (s *stageStub) Fetch(_ context.Context, _ string, filename, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	local := filepath.Join(destDir, filename)
	if err := os.WriteFile(local, []byte("%PDF-1.4"), 0o644); err != nil {
		return "", err
	}
	return local, nil
}

func (s *stageStub) Relocate(context.Context, string, string, domain.Destination) error {
	return nil
}

type auditStub struct{ entries []domain.AuditLogEntry }

func (s *auditStub) Append(_ context.Context, entry domain.AuditLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

type trackingStub struct{}

func (trackingStub) ListFailed(context.Context) ([]domain.DocumentRecord, error) {
	return []domain.DocumentRecord{{Filename: "inv-1.pdf", Status: domain.StatusFailed}}, nil
}
func (trackingStub) DeleteByFilename(context.Context, string) (int64, error) { return 1, nil }

type thresholdStub struct{ updated int }

func (s *thresholdStub) LoadThresholds(context.Context, string) ([]domain.ScoreThreshold, error) {
	return []domain.ScoreThreshold{{ModelName: "orderform", ScoreName: "ocr_confidence", ScoreValue: 0.8}}, nil
}
func (s *thresholdStub) UpdateThreshold(context.Context, domain.ScoreThreshold) error {
	s.updated++
	return nil
}

type metadataStub struct{}

func (metadataStub) LoadMetadata(context.Context) ([]domain.ModelMetadata, error) {
	return []domain.ModelMetadata{{ModelName: "orderform"}}, nil
}
func (metadataStub) UpdateMetadata(context.Context, domain.ModelMetadata) error { return nil }

type validatedStub struct{}

func (validatedStub) ListRecentValidated(context.Context, string, int) ([]domain.ValidatedRecord, error) {
	return []domain.ValidatedRecord{{Filename: "inv-1.pdf", RelativePath: "orderform_docs/inv-1.pdf", DateCreated: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}}, nil
}

type rendererStub struct{ pages int }

func (s rendererStub) PageCount(string) (int, error) { return s.pages, nil }
func (s rendererStub) RenderPage(_ context.Context, _ string, index int) ([]byte, error) {
	if index >= s.pages {
		return nil, domain.WrapError(domain.ErrPageOutOfRange, "render page", errors.New("out of range"))
	}
	return []byte("%PDF-1.4 page"), nil
}
func (s rendererStub) PageText(_ context.Context, _ string, index int) (string, error) {
	if index >= s.pages {
		return "", domain.WrapError(domain.ErrPageOutOfRange, "page text", errors.New("out of range"))
	}
	return "hello", nil
}

type snapshotCacheStub struct {
	snap usecase.PipelineSnapshot
	ok   bool
}

func (s snapshotCacheStub) Latest(string) (usecase.PipelineSnapshot, bool) { return s.snap, s.ok }

func newTestHandler(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()

	catalog := &catalogStub{models: map[string]domain.Model{
		"orderform": {
			Name:             "orderform",
			FlattenedTable:   "docai_orderform_flattened",
			ValidatedTable:   "docai_orderform_validated",
			ScoreFailedTable: "docai_orderform_score_failed",
		},
	}}
	stage := &stageStub{listing: []string{"inv-1.pdf"}}

	status := usecase.NewStatusService(catalog, statusRepoStub{}, "docai_prefilter", "docai_orderform_extraction")
	transitions := usecase.NewTransitionService(stage, &auditStub{}, trackingStub{}, nil)
	editor := usecase.NewEditorService(&thresholdStub{}, metadataStub{})
	validated := usecase.NewValidatedService(catalog, validatedStub{}, 10)
	previews := usecase.NewPreviewService(stage, rendererStub{pages: 2}, t.TempDir(), 0)

	if cfg.ReviewStage == "" {
		cfg.ReviewStage = "manual_review"
	}
	router := NewRouter(catalog, status, transitions, editor, validated, previews,
		snapshotCacheStub{}, nil, metrics.NewConsoleMetrics(serviceName), cfg)
	return router.Handler()
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestGetModelNotFoundMapsTo404(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/models/nope", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetStatusOverview(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/models/orderform/status?days=7", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var overview usecase.StatusOverview
	if err := json.NewDecoder(res.Body).Decode(&overview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if overview.StatusCounts["Manual Review"] != 1 {
		t.Fatalf("expected collapsed failure count, got %v", overview.StatusCounts)
	}
}

func TestGetStatusRejectsHalfWindow(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/models/orderform/status?from=2026-08-01T00:00:00Z", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestPostTransitionRequiresOperator(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	body := strings.NewReader(`{"filename":"inv-1.pdf","action":"reprocess"}`)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/models/orderform/review/transitions", body))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without X-Operator, got %d", res.Code)
	}
}

func TestPostTransitionSuccess(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	body := strings.NewReader(`{"filename":"inv-1.pdf","action":"reprocess"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/models/orderform/review/transitions", body)
	req.Header.Set("X-Operator", "ops@example")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var entry domain.AuditLogEntry
	if err := json.NewDecoder(res.Body).Decode(&entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.User != "ops@example" || entry.Action != "Moved back to source" {
		t.Fatalf("unexpected audit entry %+v", entry)
	}
}

func TestPostTransitionMissingFileMapsTo404(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	body := strings.NewReader(`{"filename":"gone.pdf","action":"discard"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/models/orderform/review/transitions", body)
	req.Header.Set("X-Operator", "ops@example")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestPutThresholdsRowCountMismatchMapsTo400(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	body := strings.NewReader(`{"original":[{"model_name":"orderform","score_name":"a","score_value":0.5}],"edited":[]}`)
	req := httptest.NewRequest(http.MethodPut, "/v1/models/orderform/thresholds", body)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestExportValidatedIsXLSXDownload(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/models/orderform/validated/export", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, "orderform_validated.xlsx") {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func TestPreviewLifecycleOverHTTP(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	open := httptest.NewRequest(http.MethodPost, "/v1/previews", strings.NewReader(`{"filename":"inv-1.pdf"}`))
	open.Header.Set("X-Operator", "ops@example")
	openRes := httptest.NewRecorder()
	handler.ServeHTTP(openRes, open)
	if openRes.Code != http.StatusCreated {
		t.Fatalf("open expected 201, got %d: %s", openRes.Code, openRes.Body.String())
	}

	var preview usecase.Preview
	if err := json.NewDecoder(openRes.Body).Decode(&preview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if preview.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", preview.Pages)
	}

	pageRes := httptest.NewRecorder()
	handler.ServeHTTP(pageRes, httptest.NewRequest(http.MethodGet, "/v1/previews/"+preview.ID+"/pages/1", nil))
	if pageRes.Code != http.StatusOK {
		t.Fatalf("page expected 200, got %d", pageRes.Code)
	}
	if got := pageRes.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected page content type %q", got)
	}

	outOfRange := httptest.NewRecorder()
	handler.ServeHTTP(outOfRange, httptest.NewRequest(http.MethodGet, "/v1/previews/"+preview.ID+"/pages/2", nil))
	if outOfRange.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range page expected 400, got %d", outOfRange.Code)
	}

	closeRes := httptest.NewRecorder()
	handler.ServeHTTP(closeRes, httptest.NewRequest(http.MethodDelete, "/v1/previews/"+preview.ID, nil))
	if closeRes.Code != http.StatusNoContent {
		t.Fatalf("close expected 204, got %d", closeRes.Code)
	}

	goneRes := httptest.NewRecorder()
	handler.ServeHTTP(goneRes, httptest.NewRequest(http.MethodGet, "/v1/previews/"+preview.ID, nil))
	if goneRes.Code != http.StatusGone {
		t.Fatalf("closed preview expected 410, got %d", goneRes.Code)
	}
}

func TestListReviewReturnsFailedRecords(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/models/orderform/review", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload struct {
		Records []domain.DocumentRecord `json:"records"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Records) != 1 || payload.Records[0].Filename != "inv-1.pdf" {
		t.Fatalf("unexpected review list %+v", payload.Records)
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req)
	if res2.Header().Get("X-Request-Id") != "fixed-id" {
		t.Fatalf("expected request id echo, got %q", res2.Header().Get("X-Request-Id"))
	}
}

func TestErrorBodyIsJSON(t *testing.T) {
	handler := newTestHandler(t, RouterConfig{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/models/nope", nil))

	var payload map[string]string
	if err := json.NewDecoder(bytes.NewReader(res.Body.Bytes())).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] == "" {
		t.Fatalf("expected error message in body")
	}
}
