package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/sadopc/somnus/internal/sleep"
)

// Engine is the part of *sleep.Engine the HTTP adapter drives.
type Engine interface {
	Start() error
	End() (sleep.Completion, error)
	State() sleep.State
	StartTime() (time.Time, bool)
	Elapsed() time.Duration
	History() []sleep.Session
	Degraded() error
}

type Server struct {
	engine Engine
	log    *slog.Logger
	// onCompletion, when set, sees every completed session.
	onCompletion func(sleep.Completion)
}

type Option func(*Server)

// OnCompletion registers a callback for sessions ended over HTTP.
func OnCompletion(fn func(sleep.Completion)) Option {
	return func(s *Server) { s.onCompletion = fn }
}

// NewRouter creates and configures a new router with all API endpoints
func NewRouter(engine Engine, log *slog.Logger, opts ...Option) *mux.Router {
	s := &Server{engine: engine, log: log}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.RequestLog)
	api.Use(middleware.Recoverer)

	api.HandleFunc("/status", s.GetStatus).Methods("GET")
	api.HandleFunc("/history", s.GetHistory).Methods("GET")
	api.HandleFunc("/analysis", s.GetAnalysis).Methods("GET")

	api.HandleFunc("/sessions/start", s.StartSession).Methods("POST")
	api.HandleFunc("/sessions/end", s.EndSession).Methods("POST")

	return r
}
