package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse acknowledges a write
type SuccessResponse struct {
	Success bool `json:"success"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data) // nolint:errcheck // client went away
	}
}

// respondServiceError maps err to a status and a client-safe message. Server
// side failures are logged with their cause and reported generically.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ce := apperrors.Categorize(err)
	if ce.StatusCode >= 500 {
		logging.FromContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"path": r.URL.Path,
			"code": ce.Code,
		}).Error("Request failed")
		respondError(w, ce.StatusCode, ce.Code, "Internal server error", nil)
		return
	}
	respondError(w, ce.StatusCode, ce.Code, ce.Message, ce.Details)
}

// parseJSONBody parses a bounded JSON request body.
func parseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewInvalidParameterError("body", "request body is empty")
		}
		return apperrors.NewInvalidParameterError("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}
