package web

import (
	"encoding/json"
	"net/http"

	"lumberyard/internal/core"
	"lumberyard/internal/logger"
)

type errorResponse struct {
	Error     string        `json:"error"`
	Code      string        `json:"code"`
	RequestID string        `json:"request_id,omitempty"`
	Details   []core.Detail `json:"details,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a service error onto the response envelope. Anything
// that is not a typed core error is logged and reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestIDFromContext(r.Context())
	e, ok := core.AsError(err)
	if !ok || e.Kind == core.KindInternal {
		l := logger.WithRequestID(requestID)
		l.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeErrorResponse(w, http.StatusInternalServerError, errorResponse{
			Error:     "internal server error",
			Code:      "INTERNAL_ERROR",
			RequestID: requestID,
		})
		return
	}
	writeErrorResponse(w, statusForKind(e.Kind), errorResponse{
		Error:     e.Message,
		Code:      e.Code,
		RequestID: requestID,
		Details:   e.Details,
	})
}

func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation, core.KindConflict, core.KindBusinessRule:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
