package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"jobtracker/internal/domain"
	"jobtracker/internal/logging"
)

const (
	codeValidation        = "validation_error"
	codeNotFound          = "not_found"
	codeAuthRequired      = "auth_required"
	codeAuthNotConfigured = "auth_not_configured"
	codeUpstream          = "upstream_error"
	codeRateLimited       = "rate_limited"
	codeInternal          = "internal_error"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// mapError переводит ошибку сервиса в HTTP-статус и тело ответа.
// fallback показывается клиенту вместо деталей инфраструктурных сбоев.
func mapError(err error, fallback string) (int, errorResponse) {
	var (
		verr *domain.ValidationError
		nf   *domain.NotFoundError
		up   domain.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		msg := "invalid request"
		if len(verr.Fields) > 0 {
			msg = verr.Fields[0].Message
		}
		return http.StatusBadRequest, errorResponse{Error: msg, Code: codeValidation, Fields: verr.Fields}
	case errors.As(err, &nf):
		return http.StatusNotFound, errorResponse{Error: notFoundMessage(nf.Resource), Code: codeNotFound}
	case errors.Is(err, domain.ErrAuthRequired), errors.Is(err, domain.ErrInvalidToken):
		msg := "Not authenticated"
		if errors.Is(err, domain.ErrInvalidToken) {
			msg = "Invalid access token"
		}
		return http.StatusUnauthorized, errorResponse{Error: msg, Code: codeAuthRequired}
	case errors.Is(err, domain.ErrAuthNotConfigured):
		return http.StatusServiceUnavailable, errorResponse{Error: "Google Client ID not configured", Code: codeAuthNotConfigured}
	case errors.As(err, &up):
		return http.StatusBadGateway, errorResponse{Error: fallback, Code: codeUpstream}
	default:
		return http.StatusInternalServerError, errorResponse{Error: fallback, Code: codeInternal}
	}
}

func notFoundMessage(resource string) string {
	if resource == "" {
		return "Not found"
	}
	return strings.ToUpper(resource[:1]) + resource[1:] + " not found"
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, body := mapError(err, fallback)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), s.logger).Error().Err(err).Int("status", status).Msg(fallback)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message, Code: code})
}
