package httpapi

import (
	"encoding/json"
	"net/http"

	"ovid/internal/manager"
	"ovid/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps manager error kinds to HTTP status codes.
func statusForError(err error) int {
	switch manager.KindOf(err) {
	case manager.KindInvalidRequest, manager.KindNoModelsAvailable:
		return http.StatusBadRequest
	case manager.KindModelNotFound:
		return http.StatusNotFound
	case manager.KindUnsupportedPipeline, manager.KindMissingDependencyConfig,
		manager.KindDependencyPathNotFound, manager.KindMissingHardware, manager.KindInferenceFailed:
		return http.StatusNotImplemented
	case manager.KindBusy:
		return http.StatusTooManyRequests
	case manager.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
