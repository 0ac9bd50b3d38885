package http

import (
	"errors"
	"net/http"

	"runway/internal/core"
	"runway/internal/engine"
	"runway/internal/log"
	"runway/internal/rules"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.rules.ListRules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Rules []core.Rule `json:"rules"`
	}{Rules: list})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule core.Rule
	if err := decodeJSON(r, &rule); err != nil {
		writeBadRequest(w, err)
		return
	}
	created, err := s.rules.CreateRule(r.Context(), rule)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "rule created",
		log.FieldRuleID, created.ID,
		log.FieldRuleKind, string(created.Kind))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.rules.GetRule(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var rule core.Rule
	if err := decodeJSON(r, &rule); err != nil {
		writeBadRequest(w, err)
		return
	}
	// The path owns the identity; the body may omit or contradict it.
	rule.ID = r.PathValue("id")
	updated, err := s.rules.UpdateRule(r.Context(), rule)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.rules.DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCompletion answers when a goal or loan rule makes its final payment.
func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateQuery(r, "start_date")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	end, err := parseDateQuery(r, "end_date")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	c, err := s.rules.Completion(r.Context(), r.PathValue("id"), start, end)
	if err != nil {
		if errors.Is(err, core.ErrRuleNotFound) || isConfigError(err) {
			writeError(w, r, err)
			return
		}
		// Anything else is a rule the search does not apply to, which the
		// caller can fix.
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Completion *engine.Completion `json:"completion"`
	}{Completion: c})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req rules.ForecastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	forecast, err := s.rules.Forecast(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

// handleDayByDays returns only the daily candles of a forecast, for clients
// that chart balances without needing the full ledger.
func (s *Server) handleDayByDays(w http.ResponseWriter, r *http.Request) {
	req, err := forecastRequestFromQuery(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	forecast, err := s.rules.Forecast(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Parameters  core.Parameters  `json:"parameters"`
		DayByDays   []core.DayCandle `json:"daybydays"`
		FreeToSpend core.Money       `json:"free_to_spend"`
	}{
		Parameters:  forecast.Parameters,
		DayByDays:   forecast.DayByDays,
		FreeToSpend: forecast.FreeToSpend,
	})
}

func (s *Server) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	settings, err := s.rules.GetSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutParameters(w http.ResponseWriter, r *http.Request) {
	var settings rules.Settings
	if err := decodeJSON(r, &settings); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.rules.PutSettings(r.Context(), settings); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
