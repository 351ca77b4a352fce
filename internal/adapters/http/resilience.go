package httpadapter

import (
	"docconsole/internal/core/domain"
	"docconsole/internal/infrastructure/resilience"
)

// classifyTransitionError keeps operator mistakes out of the breaker
// statistics: only infrastructure faults should be able to open the
// transition circuit.
func classifyTransitionError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrNotFoundInStage),
		domain.IsKind(err, domain.ErrModelNotFound):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}
