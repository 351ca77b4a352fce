package usecase

import (
	"context"
	"fmt"
	"time"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/ports"
)

// Stage names accepted by the latency endpoint.
const (
	StagePreprocessed = "preprocessed"
	StageExtraction   = "extraction"
	StageFlattened    = "flattened"
	StageValidated    = "validated"
)

// StatusOverview is the dashboard payload for one model and window. Query
// failures degrade to an empty section plus a diagnostic; they never
// propagate to the presentation layer as a fault.
type StatusOverview struct {
	Model         string              `json:"model"`
	Window        domain.TimeWindow   `json:"window"`
	StatusCounts  map[string]int64    `json:"status_counts"`
	ScoreFailures []domain.ScoreFailure `json:"score_failures"`
	Diagnostics   []string            `json:"diagnostics,omitempty"`
}

// StageSnapshot is one box of the live pipeline view.
type StageSnapshot struct {
	Stage   string                `json:"stage"`
	Count   int64                 `json:"count"`
	Latency *domain.LatencySummary `json:"latency,omitempty"`
}

// PipelineSnapshot is the full live view for one model. Each count is an
// independent query; one failure zeroes that box and adds a diagnostic.
type PipelineSnapshot struct {
	Model       string          `json:"model"`
	GeneratedAt time.Time       `json:"generated_at"`
	Stages      []StageSnapshot `json:"stages"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
}

type StatusService struct {
	catalog   ports.ModelCatalog
	repo      ports.StatusRepository
	prefilter string
	extraction string

	now func() time.Time
}

func NewStatusService(catalog ports.ModelCatalog, repo ports.StatusRepository, prefilterTable, extractionTable string) *StatusService {
	return &StatusService{
		catalog:    catalog,
		repo:       repo,
		prefilter:  prefilterTable,
		extraction: extractionTable,
		now:        time.Now,
	}
}

// Overview aggregates tracking statuses and score failures for the window.
func (s *StatusService) Overview(ctx context.Context, modelName string, window domain.TimeWindow) (StatusOverview, error) {
	model, err := s.catalog.Resolve(ctx, modelName)
	if err != nil {
		return StatusOverview{}, err
	}

	out := StatusOverview{
		Model:         model.Name,
		Window:        window,
		StatusCounts:  map[string]int64{},
		ScoreFailures: []domain.ScoreFailure{},
	}

	raw, err := s.repo.StatusCounts(ctx, window)
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("status counts unavailable: %v", err))
	} else {
		// Collapse raw statuses into the display vocabulary; FAILED and
		// MANUAL_REVIEW land on the same label and their counts merge.
		for status, count := range raw {
			out.StatusCounts[domain.DisplayStatus(status)] += count
		}
	}

	failures, err := s.repo.ScoreFailureCounts(ctx, model.ScoreFailedTable)
	if err != nil {
		out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("score failures unavailable: %v", err))
	} else {
		out.ScoreFailures = failures
	}

	return out, nil
}

// Snapshot builds the live pipeline view for a model.
func (s *StatusService) Snapshot(ctx context.Context, modelName string) (PipelineSnapshot, error) {
	model, err := s.catalog.Resolve(ctx, modelName)
	if err != nil {
		return PipelineSnapshot{}, err
	}

	snap := PipelineSnapshot{
		Model:       model.Name,
		GeneratedAt: s.now().UTC(),
	}

	type box struct {
		stage string
		count func(context.Context) (int64, error)
		latencyTable string
	}
	boxes := []box{
		{"waiting", func(ctx context.Context) (int64, error) {
			return s.repo.CountByStatus(ctx, s.prefilter, domain.StatusNotProcessed)
		}, ""},
		{StagePreprocessed, func(ctx context.Context) (int64, error) {
			return s.repo.CountByStatus(ctx, s.prefilter, domain.StatusProcessed)
		}, s.prefilter},
		{StageExtraction, func(ctx context.Context) (int64, error) {
			return s.repo.CountByStatus(ctx, s.extraction, domain.StatusProcessed)
		}, s.extraction},
		{StageValidated, func(ctx context.Context) (int64, error) {
			return s.repo.CountRows(ctx, model.ValidatedTable)
		}, model.ValidatedTable},
		{"manual_review", func(ctx context.Context) (int64, error) {
			return s.repo.CountByStatus(ctx, s.prefilter, domain.StatusFailed)
		}, ""},
		{"validation_failed", func(ctx context.Context) (int64, error) {
			return s.repo.CountByStatus(ctx, model.FlattenedTable, domain.StatusFailed)
		}, ""},
	}

	for _, b := range boxes {
		stage := StageSnapshot{Stage: b.stage}
		count, err := b.count(ctx)
		if err != nil {
			snap.Diagnostics = append(snap.Diagnostics, fmt.Sprintf("%s count unavailable: %v", b.stage, err))
		} else {
			stage.Count = count
		}
		if b.latencyTable != "" {
			latency, err := s.repo.StageLatency(ctx, b.latencyTable)
			if err != nil {
				snap.Diagnostics = append(snap.Diagnostics, fmt.Sprintf("%s latency unavailable: %v", b.stage, err))
			} else {
				stage.Latency = &latency
			}
		}
		snap.Stages = append(snap.Stages, stage)
	}

	return snap, nil
}

// Latency answers the per-stage average processing time query.
func (s *StatusService) Latency(ctx context.Context, modelName, stage string) (domain.LatencySummary, error) {
	model, err := s.catalog.Resolve(ctx, modelName)
	if err != nil {
		return domain.LatencySummary{}, err
	}

	var table string
	switch stage {
	case StagePreprocessed:
		table = s.prefilter
	case StageExtraction:
		table = s.extraction
	case StageFlattened:
		table = model.FlattenedTable
	case StageValidated:
		table = model.ValidatedTable
	default:
		return domain.LatencySummary{}, domain.WrapError(domain.ErrInvalidInput, "stage latency",
			fmt.Errorf("unknown stage %q", stage))
	}

	summary, err := s.repo.StageLatency(ctx, table)
	if err != nil {
		return domain.LatencySummary{}, domain.WrapError(domain.ErrExternalCall, "stage latency", err)
	}
	return summary, nil
}
