package ports

import (
	"context"

	"docconsole/internal/core/domain"
)

// ModelCatalog resolves pipeline models and their physical table names.
// Pure reads; an empty metadata table is a valid empty result.
type ModelCatalog interface {
	Resolve(ctx context.Context, modelName string) (domain.Model, error)
	List(ctx context.Context) ([]domain.Model, error)
}

// StatusRepository runs the read-only aggregate queries behind the
// dashboards.
type StatusRepository interface {
	StatusCounts(ctx context.Context, window domain.TimeWindow) (map[string]int64, error)
	CountByStatus(ctx context.Context, table string, status domain.RecordStatus) (int64, error)
	CountRows(ctx context.Context, table string) (int64, error)
	ScoreFailureCounts(ctx context.Context, table string) ([]domain.ScoreFailure, error)
	StageLatency(ctx context.Context, table string) (domain.LatencySummary, error)
}

// TrackingRepository reads and deletes prefilter tracking rows. Deletes are
// keyed by filename, never by row id.
type TrackingRepository interface {
	ListFailed(ctx context.Context) ([]domain.DocumentRecord, error)
	DeleteByFilename(ctx context.Context, filename string) (int64, error)
}

// AuditLog appends manual-transition records. There is deliberately no
// update or delete on this interface.
type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
}

// StageClient talks to the external file-staging system. Listing a stage is
// the authoritative check for a document awaiting manual action there.
type StageClient interface {
	List(ctx context.Context, stage string) ([]string, error)
	Fetch(ctx context.Context, stage, filename, destDir string) (string, error)
	Relocate(ctx context.Context, stage, filename string, dest domain.Destination) error
}

// ThresholdStore loads and saves score threshold rows.
type ThresholdStore interface {
	LoadThresholds(ctx context.Context, modelName string) ([]domain.ScoreThreshold, error)
	UpdateThreshold(ctx context.Context, row domain.ScoreThreshold) error
}

// MetadataStore loads and saves model metadata rows.
type MetadataStore interface {
	LoadMetadata(ctx context.Context) ([]domain.ModelMetadata, error)
	UpdateMetadata(ctx context.Context, row domain.ModelMetadata) error
}

// ValidatedRepository reads a model's validated table.
type ValidatedRepository interface {
	ListRecentValidated(ctx context.Context, table string, limit int) ([]domain.ValidatedRecord, error)
}

// EventPublisher mirrors audit entries onto a message stream. Publishing is
// best effort; the audit table row is the durable record.
type EventPublisher interface {
	PublishTransition(ctx context.Context, entry domain.AuditLogEntry) error
}

// PageRenderer opens a locally staged PDF and serves page-indexed output.
type PageRenderer interface {
	PageCount(path string) (int, error)
	RenderPage(ctx context.Context, path string, index int) ([]byte, error)
	PageText(ctx context.Context, path string, index int) (string, error)
}
