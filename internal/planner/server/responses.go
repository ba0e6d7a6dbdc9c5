package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rsned/production-planner/internal/planner/engine"
	"github.com/rsned/production-planner/pkg/planner"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ValidationErrorResponse reports request fields that failed validation.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeInfeasible      = "infeasible"
	CodeEmptyCandidates = "empty_candidates"
	CodeInvalidRecipe   = "invalid_recipe"
	CodeSolverTimeout   = "solver_timeout"
	CodeDataIntegrity   = "data_integrity"
	CodeNotFound        = "not_found"
	CodeUnauthorized    = "unauthorized"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal"
)

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// mapError converts a planner error to an HTTP status and response body.
func mapError(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}

	var (
		infeasible *planner.OptimizationInfeasibleError
		empty      *planner.EmptyCandidateSetError
		invalid    *planner.InvalidRecipeError
	)
	switch {
	case errors.Is(err, planner.ErrInvalidRequest):
		resp.Code = CodeInvalidRequest
		return http.StatusBadRequest, resp
	case errors.As(err, &infeasible):
		resp.Code = CodeInfeasible
		resp.Details = map[string]any{"family": infeasible.Family}
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &empty):
		resp.Code = CodeEmptyCandidates
		resp.Details = map[string]any{"item_ids": empty.ItemIDs}
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &invalid):
		resp.Code = CodeInvalidRecipe
		resp.Details = map[string]any{"recipe_id": invalid.RecipeID}
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, planner.ErrSolverTimeout):
		resp.Code = CodeSolverTimeout
		return http.StatusGatewayTimeout, resp
	case errors.Is(err, planner.ErrDataIntegrity):
		resp.Code = CodeDataIntegrity
		return http.StatusInternalServerError, resp
	case errors.Is(err, engine.ErrLookupUnavailable):
		resp.Code = CodeUnavailable
		return http.StatusNotImplemented, resp
	}

	resp.Code = CodeInternal
	resp.Error = "Something went wrong"
	return http.StatusInternalServerError, resp
}

// respondServiceError logs err and writes the mapped response.
func respondServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", "error", err)
	} else {
		log.Info(op+" rejected", "error", err, "status", status)
	}
	respondJSON(w, status, body)
}
