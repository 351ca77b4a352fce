package usecase

import (
	"context"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/ports"
)

// ValidatedService serves the recent validated records view and its export.
type ValidatedService struct {
	catalog ports.ModelCatalog
	repo    ports.ValidatedRepository
	limit   int
}

func NewValidatedService(catalog ports.ModelCatalog, repo ports.ValidatedRepository, limit int) *ValidatedService {
	if limit <= 0 {
		limit = 10
	}
	return &ValidatedService{catalog: catalog, repo: repo, limit: limit}
}

func (s *ValidatedService) Recent(ctx context.Context, modelName string) ([]domain.ValidatedRecord, error) {
	model, err := s.catalog.Resolve(ctx, modelName)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListRecentValidated(ctx, model.ValidatedTable, s.limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalCall, "list validated records", err)
	}
	return records, nil
}
