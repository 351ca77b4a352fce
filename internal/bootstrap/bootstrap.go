// Package bootstrap wires configuration, infrastructure, and services into
// a runnable application.
package bootstrap

import (
	"fmt"
	"log/slog"

	"docconsole/internal/config"
	"docconsole/internal/core/ports"
	"docconsole/internal/core/usecase"
	"docconsole/internal/infrastructure/events/nats"
	"docconsole/internal/infrastructure/pdf"
	"docconsole/internal/infrastructure/repository/postgres"
	"docconsole/internal/infrastructure/resilience"
	"docconsole/internal/infrastructure/stage/localfs"
	"docconsole/internal/observability/metrics"
	"docconsole/internal/refresher"
)

type App struct {
	Config  config.Config
	Metrics *metrics.ConsoleMetrics

	Catalog     ports.ModelCatalog
	Status      *usecase.StatusService
	Transitions *usecase.TransitionService
	Editor      *usecase.EditorService
	Validated   *usecase.ValidatedService
	Previews    *usecase.PreviewService
	Refresher   *refresher.Refresher
	Executor    *resilience.Executor

	closeFn func()
}

func New(cfg config.Config, serviceName string) (*App, error) {
	db, err := postgres.OpenDB(cfg.WarehouseDSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	catalog := postgres.NewCatalogRepository(db, cfg.MetadataTable)
	statusRepo := postgres.NewStatusRepository(db, cfg.PrefilterTable)
	tracking := postgres.NewTrackingRepository(db, cfg.PrefilterTable)
	audit := postgres.NewAuditRepository(db, cfg.AuditLogTable)
	settings := postgres.NewSettingsRepository(db, cfg.ThresholdTable, cfg.MetadataTable)
	validatedRepo := postgres.NewValidatedRepository(db)

	stage, err := localfs.New(localfs.Config{
		BasePath:     cfg.StageBasePath,
		SourceStage:  cfg.SourceStage,
		ArchiveStage: cfg.ArchiveStage,
	})
	if err != nil {
		return nil, fmt.Errorf("init stage client: %w", err)
	}

	var events ports.EventPublisher
	var publisher *nats.Publisher
	if cfg.AuditStreamEnable {
		publisher, err = nats.New(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			// The audit table stays authoritative; the stream is a mirror.
			slog.Warn("audit_stream_unavailable", "url", cfg.NATSURL, "error", err)
		} else {
			events = publisher
		}
	}

	m := metrics.NewConsoleMetrics(serviceName)
	executor := resilience.NewExecutor(resilience.DefaultConfig())
	renderer := pdf.NewRenderer()

	status := usecase.NewStatusService(catalog, statusRepo, cfg.PrefilterTable, cfg.ExtractionTable)
	transitions := usecase.NewTransitionService(stage, audit, tracking, events)
	editor := usecase.NewEditorService(settings, settings)
	validated := usecase.NewValidatedService(catalog, validatedRepo, cfg.ValidatedLimit)
	previews := usecase.NewPreviewService(stage, renderer, cfg.ScratchPath, cfg.MaxPreviewBytes)
	refr := refresher.New(catalog, status, cfg.RefreshInterval, m)

	return &App{
		Config:  cfg,
		Metrics: m,

		Catalog:     catalog,
		Status:      status,
		Transitions: transitions,
		Editor:      editor,
		Validated:   validated,
		Previews:    previews,
		Refresher:   refr,
		Executor:    executor,

		closeFn: func() {
			previews.CloseAll()
			if publisher != nil {
				publisher.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
