package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, domain.JSONErrorResponse{
		Error: domain.JSONErrorDetail{
			Code:    domain.ErrCodeBadRequest.String(),
			Message: "A valid bearer token is required",
		},
	})
}

// writeError maps an engine error to its HTTP status and the standard JSON
// error body. Errors that are not IntegrationErrors are surfaced as
// internal errors without detail.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) {
		logger.Error("request failed", zap.Error(err))
		integrationErr = domain.InternalError("An internal error occurred", err)
	}
	writeJSON(w, integrationErr.Code.HTTPStatus(), domain.NewJSONErrorResponse(integrationErr))
}
