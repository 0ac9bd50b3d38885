package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"runway/internal/core"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses: configuration errors the
// caller can fix are 422, unknown rules are 404, everything else is 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrRuleNotFound):
		status = http.StatusNotFound
	case isConfigError(err):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error())
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeBadRequest is for malformed payloads that never reached validation.
func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}

func isConfigError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyName,
		core.ErrUnknownKind,
		core.ErrRuleTooComplex,
		core.ErrMissingRecurrence,
		core.ErrNonPositiveGoal,
		core.ErrNegativeProgress,
		core.ErrProgressOverGoal,
		core.ErrNegativeBalance,
		core.ErrNegativeAPR,
		core.ErrBadCompounding,
		core.ErrNegativeSetAside,
		core.ErrEndBeforeStart,
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
