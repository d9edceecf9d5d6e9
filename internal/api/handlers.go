package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sadopc/somnus/internal/analytics"
	"github.com/sadopc/somnus/internal/milestone"
	"github.com/sadopc/somnus/internal/sleep"
)

type StatusResponse struct {
	State          string          `json:"state"`
	Sleeping       bool            `json:"sleeping"`
	StartTime      *time.Time      `json:"startTime,omitempty"`
	ElapsedSeconds int64           `json:"elapsedSeconds"`
	Stats          analytics.Stats `json:"stats"`
	Degraded       string          `json:"degraded,omitempty"`
}

type HistoryResponse struct {
	Count    int             `json:"count"`
	Sessions []sleep.Session `json:"sessions"`
}

type AnalysisResponse struct {
	Available bool                `json:"available"`
	Remaining int                 `json:"remaining"`
	Analysis  *analytics.Snapshot `json:"analysis,omitempty"`
}

type EndResponse struct {
	Session          sleep.Session `json:"session"`
	ReachedMilestone bool          `json:"reachedMilestone"`
	Message          string        `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		State:          s.engine.State().String(),
		Sleeping:       s.engine.State() == sleep.Sleeping,
		ElapsedSeconds: int64(s.engine.Elapsed() / time.Second),
		Stats:          analytics.Summarize(s.engine.History()),
	}
	if start, ok := s.engine.StartTime(); ok {
		resp.StartTime = &start
	}
	if err := s.engine.Degraded(); err != nil {
		resp.Degraded = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetHistory returns sessions newest first. ?limit=N keeps the newest N.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	history := s.engine.History()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(history) {
			history = history[:limit]
		}
	}
	if history == nil {
		history = []sleep.Session{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Count: len(history), Sessions: history})
}

func (s *Server) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	history := s.engine.History()
	resp := AnalysisResponse{Remaining: analytics.Remaining(history)}
	if snap, ok := analytics.Analyze(history); ok {
		resp.Available = true
		resp.Analysis = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Start(); err != nil {
		if errors.Is(err, sleep.ErrAlreadySleeping) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.log.ErrorContext(r.Context(), "start session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.GetStatus(w, r)
}

func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.engine.End()
	if err != nil {
		if errors.Is(err, sleep.ErrInvalidState) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.log.ErrorContext(r.Context(), "end session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if s.onCompletion != nil {
		s.onCompletion(c)
	}

	resp := EndResponse{Session: c.Session, ReachedMilestone: c.ReachedMilestone}
	if c.ReachedMilestone {
		resp.Message = milestone.Message
	}
	writeJSON(w, http.StatusOK, resp)
}
