// Package http exposes the forecast engine and rule store as a JSON API.
package http

import (
	"net/http"
	"time"

	"runway/internal/log"
	"runway/internal/middleware/trace"
	"runway/internal/rules"
)

// Server wires the rule service into an http.Server with all routes mounted.
type Server struct {
	http.Server
	rules  *rules.Service
	logger *log.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *rules.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	s := &Server{
		rules:  svc,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/v1/rules", s.handleListRules)
	mux.HandleFunc("POST /api/v1/rules", s.handleCreateRule)
	mux.HandleFunc("GET /api/v1/rules/{id}", s.handleGetRule)
	mux.HandleFunc("PUT /api/v1/rules/{id}", s.handleUpdateRule)
	mux.HandleFunc("DELETE /api/v1/rules/{id}", s.handleDeleteRule)
	mux.HandleFunc("GET /api/v1/rules/{id}/completion", s.handleCompletion)

	mux.HandleFunc("POST /api/v1/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/v1/daybydays", s.handleDayByDays)

	mux.HandleFunc("GET /api/v1/parameters", s.handleGetParameters)
	mux.HandleFunc("PUT /api/v1/parameters", s.handlePutParameters)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           trace.Middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		// Forecast computation over a long horizon can take a while.
		WriteTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready means the rule store answers.
	if _, err := s.rules.GetSettings(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "readiness check failed", log.FieldError, err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
