package httpadapter

import (
	"net/http"

	"docconsole/internal/core/domain"
	"docconsole/internal/infrastructure/resilience"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrPageOutOfRange):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrModelNotFound),
		domain.IsKind(err, domain.ErrNotFoundInStage):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrPreviewClosed):
		return http.StatusGone
	case resilience.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrExternalCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
