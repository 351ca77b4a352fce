// Package httpadapter exposes the operator console over HTTP. All routes
// speak JSON except the preview page and workbook downloads.
package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/ports"
	"docconsole/internal/core/usecase"
	"docconsole/internal/export"
	"docconsole/internal/infrastructure/resilience"
	"docconsole/internal/observability/metrics"
)

const serviceName = "console"

// SnapshotCache serves the most recent scheduled pipeline snapshot.
type SnapshotCache interface {
	Latest(modelName string) (usecase.PipelineSnapshot, bool)
}

type Router struct {
	catalog     ports.ModelCatalog
	status      *usecase.StatusService
	transitions *usecase.TransitionService
	editor      *usecase.EditorService
	validated   *usecase.ValidatedService
	previews    *usecase.PreviewService
	snapshots   SnapshotCache
	executor    *resilience.Executor
	metrics     *metrics.ConsoleMetrics

	cfg         RouterConfig
	reviewStage string
	windowDays  int
}

type RouterConfig struct {
	ReviewStage string
	WindowDays  int

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	catalog ports.ModelCatalog,
	status *usecase.StatusService,
	transitions *usecase.TransitionService,
	editor *usecase.EditorService,
	validated *usecase.ValidatedService,
	previews *usecase.PreviewService,
	snapshots SnapshotCache,
	executor *resilience.Executor,
	m *metrics.ConsoleMetrics,
	cfg RouterConfig,
) *Router {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	return &Router{
		catalog:     catalog,
		status:      status,
		transitions: transitions,
		editor:      editor,
		validated:   validated,
		previews:    previews,
		snapshots:   snapshots,
		executor:    executor,
		metrics:     m,
		cfg:         cfg,
		reviewStage: cfg.ReviewStage,
		windowDays:  cfg.WindowDays,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /metrics", rt.metricsHandler)

	mux.HandleFunc("GET /v1/models", rt.listModels)
	mux.HandleFunc("GET /v1/models/{model}", rt.getModel)
	mux.HandleFunc("GET /v1/models/{model}/status", rt.getStatus)
	mux.HandleFunc("GET /v1/models/{model}/scores/failures", rt.getScoreFailures)
	mux.HandleFunc("GET /v1/models/{model}/pipeline", rt.getPipeline)

	mux.HandleFunc("GET /v1/models/{model}/review", rt.listReview)
	mux.HandleFunc("POST /v1/models/{model}/review/transitions", rt.postTransition)
	mux.HandleFunc("GET /v1/models/{model}/review/reconcile", rt.reconcileReview)

	mux.HandleFunc("GET /v1/models/{model}/thresholds", rt.getThresholds)
	mux.HandleFunc("PUT /v1/models/{model}/thresholds", rt.putThresholds)
	mux.HandleFunc("GET /v1/metadata", rt.getMetadata)
	mux.HandleFunc("PUT /v1/metadata", rt.putMetadata)

	mux.HandleFunc("GET /v1/models/{model}/validated", rt.listValidated)
	mux.HandleFunc("GET /v1/models/{model}/validated/export", rt.exportValidated)

	mux.HandleFunc("POST /v1/previews", rt.openPreview)
	mux.HandleFunc("GET /v1/previews/{id}", rt.getPreview)
	mux.HandleFunc("GET /v1/previews/{id}/pages/{page}", rt.getPreviewPage)
	mux.HandleFunc("GET /v1/previews/{id}/pages/{page}/text", rt.getPreviewPageText)
	mux.HandleFunc("DELETE /v1/previews/{id}", rt.closePreview)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, 5*time.Second)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if rt.metrics == nil {
		http.NotFound(w, r)
		return
	}
	rt.metrics.Handler().ServeHTTP(w, r)
}

func (rt *Router) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := rt.catalog.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (rt *Router) getModel(w http.ResponseWriter, r *http.Request) {
	model, err := rt.catalog.Resolve(r.Context(), r.PathValue("model"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (rt *Router) getStatus(w http.ResponseWriter, r *http.Request) {
	window, err := rt.parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	overview, err := rt.status.Overview(r.Context(), r.PathValue("model"), window)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.ObserveStatusQuery(serviceName, "overview", time.Since(start))
	}
	writeJSON(w, http.StatusOK, overview)
}

func (rt *Router) getScoreFailures(w http.ResponseWriter, r *http.Request) {
	overview, err := rt.status.Overview(r.Context(), r.PathValue("model"), domain.LastDays(time.Now(), rt.windowDays))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model":          overview.Model,
		"score_failures": overview.ScoreFailures,
		"diagnostics":    overview.Diagnostics,
	})
}

func (rt *Router) getPipeline(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")

	if rt.snapshots != nil && r.URL.Query().Get("live") != "true" {
		if snap, ok := rt.snapshots.Latest(model); ok {
			w.Header().Set("X-Snapshot-Generated-At", snap.GeneratedAt.Format(time.RFC3339))
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}

	snap, err := rt.status.Snapshot(r.Context(), model)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (rt *Router) listReview(w http.ResponseWriter, r *http.Request) {
	records, err := rt.transitions.FailedDocuments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (rt *Router) postTransition(w http.ResponseWriter, r *http.Request) {
	actor := strings.TrimSpace(r.Header.Get(operatorHeader))
	if actor == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Operator header is required"})
		return
	}

	var req struct {
		Filename string `json:"filename"`
		Stage    string `json:"stage"`
		Action   string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Stage == "" {
		req.Stage = rt.reviewStage
	}
	action := domain.TransitionAction(req.Action)

	var entry domain.AuditLogEntry
	run := func() error {
		var err error
		entry, err = rt.transitions.Transition(r.Context(), actor, req.Filename, req.Stage, action)
		return err
	}

	var err error
	if rt.executor != nil {
		// Through the breaker but never retried: a relocation is not
		// idempotent once the file has moved.
		err = rt.executor.ExecuteOnce(r.Context(), "stage_transition", func(context.Context) error {
			return run()
		}, classifyTransitionError)
	} else {
		err = run()
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if rt.metrics != nil {
		rt.metrics.RecordTransition(serviceName, string(action), outcome)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) reconcileReview(w http.ResponseWriter, r *http.Request) {
	orphaned, err := rt.transitions.ReconcileStage(r.Context(), rt.reviewStage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stage": rt.reviewStage, "orphaned": orphaned})
}

func (rt *Router) getThresholds(w http.ResponseWriter, r *http.Request) {
	rows, err := rt.editor.LoadThresholds(r.Context(), r.PathValue("model"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thresholds": rows})
}

func (rt *Router) putThresholds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Original []domain.ScoreThreshold `json:"original"`
		Edited   []domain.ScoreThreshold `json:"edited"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.editor.SaveThresholds(r.Context(), req.Original, req.Edited)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordEditorRows(serviceName, "thresholds", result.Updated)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getMetadata(w http.ResponseWriter, r *http.Request) {
	rows, err := rt.editor.LoadMetadata(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metadata": rows})
}

func (rt *Router) putMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Original []domain.ModelMetadata `json:"original"`
		Edited   []domain.ModelMetadata `json:"edited"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.editor.SaveMetadata(r.Context(), req.Original, req.Edited)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordEditorRows(serviceName, "metadata", result.Updated)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listValidated(w http.ResponseWriter, r *http.Request) {
	records, err := rt.validated.Recent(r.Context(), r.PathValue("model"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (rt *Router) exportValidated(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")
	records, err := rt.validated.Recent(r.Context(), model)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := export.ValidatedWorkbook(model, records)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", model+"_validated.xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) openPreview(w http.ResponseWriter, r *http.Request) {
	session := strings.TrimSpace(r.Header.Get(operatorHeader))
	if session == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Operator header is required"})
		return
	}

	var req struct {
		Stage    string `json:"stage"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Stage == "" {
		req.Stage = rt.reviewStage
	}

	preview, err := rt.previews.Open(r.Context(), session, req.Stage, req.Filename)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if rt.metrics != nil {
		rt.metrics.RecordPreviewOpen(serviceName, outcome)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, preview)
}

func (rt *Router) getPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := rt.previews.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (rt *Router) getPreviewPage(w http.ResponseWriter, r *http.Request) {
	index, err := parsePageIndex(r.PathValue("page"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	page, err := rt.previews.RenderPage(r.Context(), r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (rt *Router) getPreviewPageText(w http.ResponseWriter, r *http.Request) {
	index, err := parsePageIndex(r.PathValue("page"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	text, err := rt.previews.PageText(r.Context(), r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": index, "text": text})
}

func (rt *Router) closePreview(w http.ResponseWriter, r *http.Request) {
	if err := rt.previews.Close(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseWindow reads from/to (RFC 3339) or days, defaulting to the
// configured trailing window.
func (rt *Router) parseWindow(r *http.Request) (domain.TimeWindow, error) {
	q := r.URL.Query()
	fromRaw, toRaw := q.Get("from"), q.Get("to")
	if fromRaw != "" || toRaw != "" {
		if fromRaw == "" || toRaw == "" {
			return domain.TimeWindow{}, fmt.Errorf("from and to must be provided together")
		}
		from, err := time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			return domain.TimeWindow{}, fmt.Errorf("invalid from: %v", err)
		}
		to, err := time.Parse(time.RFC3339, toRaw)
		if err != nil {
			return domain.TimeWindow{}, fmt.Errorf("invalid to: %v", err)
		}
		if from.After(to) {
			return domain.TimeWindow{}, fmt.Errorf("from must not be after to")
		}
		return domain.TimeWindow{From: from, To: to}, nil
	}

	days := rt.windowDays
	if raw := q.Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return domain.TimeWindow{}, fmt.Errorf("invalid days: %q", raw)
		}
		days = parsed
	}
	return domain.LastDays(time.Now(), days), nil
}

func parsePageIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid page index: %q", raw)
	}
	return index, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
