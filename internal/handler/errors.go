package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/logging"
)

// writeServiceError maps a service failure onto a status code and error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *domain.InputError
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_input",
			Message: inputErr.Reason,
			Fields:  inputErr.Fields,
		})
		return
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	status, code, msg := categorizeError(err)
	event := logging.Warn()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		event = logging.Error()
	}
	event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeError(w, status, code, msg)
}

func categorizeError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrGenerationAuth):
		return http.StatusBadGateway, "generation_auth",
			"The recommendation service rejected our credentials"
	case errors.Is(err, domain.ErrGenerationExhausted):
		return http.StatusServiceUnavailable, "generation_exhausted",
			"The recommendation service did not return usable results, please try again"
	case errors.Is(err, domain.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable, "generation_unavailable",
			"The recommendation service is temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request_timeout",
			"Request timed out, please try again"
	case errors.Is(err, domain.ErrPersistenceFailed):
		return http.StatusInternalServerError, "persistence_failed",
			"Recommendations could not be saved"
	default:
		return http.StatusInternalServerError, "internal_error", "An unexpected error occurred"
	}
}
