package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// ErrorResponse is the envelope of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError rejects a request before it reaches the service layer
// (e.g. missing or malformed body, unparsable path parameter).
func requestError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// respondError maps a service error to its status and code. notFound is the
// message for domain.ErrNotFound, supplied by the handler because it knows
// what was being looked up. Anything unrecognised is logged and hidden
// behind a 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	status, body := errorStatus(err, notFound)
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

// errorStatus is the single table from domain sentinels to HTTP.
func errorStatus(err error, notFound string) (int, ErrorResponse) {
	detail := func(code string, sentinel error) ErrorResponse {
		return ErrorResponse{Error: ErrorDetail{Code: code, Message: unwrapMessage(err, sentinel)}}
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, detail("validation_error", domain.ErrValidation)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: notFound}}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, detail("invalid_transition", domain.ErrInvalidTransition)
	case errors.Is(err, domain.ErrServiceNotActive):
		return http.StatusConflict, ErrorResponse{Error: ErrorDetail{Code: "service_not_active", Message: "service is not in progress"}}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: ErrorDetail{Code: "conflict", Message: "concurrent update, retry the request"}}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{Code: "internal_error", Message: "internal server error"}}
	}
}

// unwrapMessage extracts the human-readable part that follows a wrapped sentinel.
// e.g. "service.Registry.Create: validation error: stops must have at least 2 entries"
// → "stops must have at least 2 entries". Without a detail the sentinel text is used.
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}
