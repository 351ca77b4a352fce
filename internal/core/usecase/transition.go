package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/ports"
)

// TransitionService moves a document awaiting manual review out of the
// pipeline: back to the source stage for reprocessing, or to the archive.
//
// Ordering is deliberate. The stage listing is checked before any mutation;
// the audit entry is written before the tracking row is deleted, so a crash
// between the two leaves an audit trail next to a stale tracking row instead
// of a silently vanished row.
type TransitionService struct {
	stage    ports.StageClient
	audit    ports.AuditLog
	tracking ports.TrackingRepository
	events   ports.EventPublisher

	now func() time.Time
}

func NewTransitionService(
	stage ports.StageClient,
	audit ports.AuditLog,
	tracking ports.TrackingRepository,
	events ports.EventPublisher,
) *TransitionService {
	return &TransitionService{
		stage:    stage,
		audit:    audit,
		tracking: tracking,
		events:   events,
		now:      time.Now,
	}
}

// Transition applies an operator action to filename in stageName. On success
// exactly one relocation happened, exactly one audit entry exists, and the
// tracking row for the filename is gone. On any failure the operation stops
// at the failing step; nothing is retried and nothing is rolled back.
func (s *TransitionService) Transition(
	ctx context.Context,
	actor, filename, stageName string,
	action domain.TransitionAction,
) (domain.AuditLogEntry, error) {
	var dest domain.Destination
	switch action {
	case domain.ActionReprocess:
		dest = domain.DestinationSource
	case domain.ActionDiscard:
		dest = domain.DestinationArchive
	default:
		return domain.AuditLogEntry{}, domain.WrapError(domain.ErrInvalidInput, "transition",
			fmt.Errorf("unknown action %q", action))
	}
	filename = path.Base(filename)
	if filename == "" || filename == "." || filename == "/" {
		return domain.AuditLogEntry{}, domain.WrapError(domain.ErrInvalidInput, "transition",
			fmt.Errorf("empty filename"))
	}

	// The stage listing, not the tracking table, is the authority for
	// whether the document is still awaiting action here.
	listing, err := s.stage.List(ctx, stageName)
	if err != nil {
		return domain.AuditLogEntry{}, domain.WrapError(domain.ErrExternalCall, "list stage", err)
	}
	if !containsFile(listing, filename) {
		return domain.AuditLogEntry{}, domain.WrapError(domain.ErrNotFoundInStage, "transition",
			fmt.Errorf("%s not present in stage %s", filename, stageName))
	}

	if err := s.stage.Relocate(ctx, stageName, filename, dest); err != nil {
		return domain.AuditLogEntry{}, domain.WrapError(domain.ErrExternalCall, "relocate file", err)
	}

	entry := domain.AuditLogEntry{
		Filename:  filename,
		Action:    action.ActionLabel(),
		Timestamp: s.now().UTC(),
		User:      actor,
		Comment:   "Action completed successfully.",
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		// The file has moved but no audit entry exists; surfacing the error
		// leaves the tracking row in place as the recovery breadcrumb.
		return domain.AuditLogEntry{}, domain.WrapError(domain.ErrExternalCall, "append audit entry", err)
	}

	deleted, err := s.tracking.DeleteByFilename(ctx, filename)
	if err != nil {
		return domain.AuditLogEntry{}, domain.WrapError(domain.ErrExternalCall, "delete tracking row", err)
	}
	if deleted == 0 {
		slog.Warn("transition_tracking_row_missing", "filename", filename, "stage", stageName)
	}

	if s.events != nil {
		// Best effort: the audit table row is the durable record.
		if err := s.events.PublishTransition(ctx, entry); err != nil {
			slog.Warn("transition_event_publish_failed", "filename", filename, "error", err)
		}
	}

	return entry, nil
}

// FailedDocuments lists the tracking rows awaiting manual review.
func (s *TransitionService) FailedDocuments(ctx context.Context) ([]domain.DocumentRecord, error) {
	records, err := s.tracking.ListFailed(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "list failed records", err)
	}
	return records, nil
}

// ReconcileStage reports FAILED tracking rows whose file is no longer
// present in the given stage. Read-only: resolving the drift is left to the
// operator.
func (s *TransitionService) ReconcileStage(ctx context.Context, stageName string) ([]domain.DocumentRecord, error) {
	listing, err := s.stage.List(ctx, stageName)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "list stage", err)
	}
	present := make(map[string]struct{}, len(listing))
	for _, name := range listing {
		present[path.Base(name)] = struct{}{}
	}

	records, err := s.tracking.ListFailed(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "list failed records", err)
	}

	orphaned := []domain.DocumentRecord{}
	for _, rec := range records {
		if _, ok := present[path.Base(rec.Filename)]; !ok {
			orphaned = append(orphaned, rec)
		}
	}
	return orphaned, nil
}

func containsFile(listing []string, filename string) bool {
	for _, name := range listing {
		if path.Base(name) == filename {
			return true
		}
	}
	return false
}
