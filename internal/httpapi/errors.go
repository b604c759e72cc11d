package httpapi

import (
	"encoding/json"
	"net/http"

	"xinsight/internal/analyzer"
	"xinsight/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps a pipeline error to the status code and message sent to the client.
func statusFor(err error) (int, string) {
	switch {
	case analyzer.IsModelNotLoaded(err):
		return http.StatusInternalServerError, analyzer.ModelNotLoadedMessage
	case analyzer.IsInvalidInput(err):
		return http.StatusBadRequest, err.Error()
	case analyzer.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable, err.Error()
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode(), he.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

// writeJSON serializes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}
