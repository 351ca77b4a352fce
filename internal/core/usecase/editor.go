package usecase

import (
	"context"
	"fmt"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/ports"
)

// EditorService implements the read-modify-write settings editors. Edited
// rows are compared to their originals positionally; only rows that changed
// are written, and one row's failure never aborts the rest of the batch.
//
// Row insertion and deletion are not supported: an edited slice whose length
// differs from the original is rejected outright rather than silently
// dropping or inventing rows.
type EditorService struct {
	thresholds ports.ThresholdStore
	metadata   ports.MetadataStore
}

func NewEditorService(thresholds ports.ThresholdStore, metadata ports.MetadataStore) *EditorService {
	return &EditorService{thresholds: thresholds, metadata: metadata}
}

// RowFailure reports one row that could not be written.
type RowFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// SaveResult summarizes a diff-save batch.
type SaveResult struct {
	Updated  int          `json:"updated"`
	Failures []RowFailure `json:"failures,omitempty"`
}

func (s *EditorService) LoadThresholds(ctx context.Context, modelName string) ([]domain.ScoreThreshold, error) {
	return s.thresholds.LoadThresholds(ctx, modelName)
}

func (s *EditorService) SaveThresholds(ctx context.Context, original, edited []domain.ScoreThreshold) (SaveResult, error) {
	if len(original) != len(edited) {
		return SaveResult{}, domain.WrapError(domain.ErrInvalidInput, "save thresholds",
			fmt.Errorf("row count changed from %d to %d; insertion and deletion are not supported", len(original), len(edited)))
	}

	var result SaveResult
	for i := range edited {
		if edited[i] == original[i] {
			continue
		}
		if edited[i].ModelName != original[i].ModelName || edited[i].ScoreName != original[i].ScoreName {
			result.Failures = append(result.Failures, RowFailure{
				Key:   rowKey(original[i].ModelName, original[i].ScoreName),
				Error: "row key cannot be edited",
			})
			continue
		}
		if err := s.thresholds.UpdateThreshold(ctx, edited[i]); err != nil {
			result.Failures = append(result.Failures, RowFailure{
				Key:   rowKey(edited[i].ModelName, edited[i].ScoreName),
				Error: err.Error(),
			})
			continue
		}
		result.Updated++
	}
	return result, nil
}

func (s *EditorService) LoadMetadata(ctx context.Context) ([]domain.ModelMetadata, error) {
	return s.metadata.LoadMetadata(ctx)
}

func (s *EditorService) SaveMetadata(ctx context.Context, original, edited []domain.ModelMetadata) (SaveResult, error) {
	if len(original) != len(edited) {
		return SaveResult{}, domain.WrapError(domain.ErrInvalidInput, "save metadata",
			fmt.Errorf("row count changed from %d to %d; insertion and deletion are not supported", len(original), len(edited)))
	}

	var result SaveResult
	for i := range edited {
		if metadataEqual(original[i], edited[i]) {
			continue
		}
		if edited[i].ModelName != original[i].ModelName {
			result.Failures = append(result.Failures, RowFailure{
				Key:   original[i].ModelName,
				Error: "model_name cannot be edited",
			})
			continue
		}
		if err := s.metadata.UpdateMetadata(ctx, edited[i]); err != nil {
			result.Failures = append(result.Failures, RowFailure{
				Key:   edited[i].ModelName,
				Error: err.Error(),
			})
			continue
		}
		result.Updated++
	}
	return result, nil
}

func metadataEqual(a, b domain.ModelMetadata) bool {
	return a.ModelName == b.ModelName &&
		ptrEqual(a.FlattenedTable, b.FlattenedTable) &&
		ptrEqual(a.ValidatedTable, b.ValidatedTable) &&
		ptrEqual(a.ScoreFailedTable, b.ScoreFailedTable) &&
		ptrEqual(a.FolderName, b.FolderName)
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func rowKey(model, score string) string {
	return model + "/" + score
}
