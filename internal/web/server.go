// Package web serves the run-history API and the live event stream for
// the dashboard.
package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"repodeck/internal/ci"
	"repodeck/internal/history"
	"repodeck/internal/tasks"
)

// Server exposes pipeline runs over HTTP: list and inspect recorded
// runs, trigger new ones, and follow progress over SSE.
type Server struct {
	store *history.Store
	tasks *tasks.Handler
	hub   *Hub
	log   *slog.Logger
	port  int
}

func NewServer(store *history.Store, handler *tasks.Handler, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store: store,
		tasks: handler,
		hub:   NewHub(),
		log:   log,
		port:  port,
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{id}", s.handleGetRun)
	r.Post("/api/runs", s.handleStartRun)
	r.Get("/api/events", s.handleEvents)
	r.Get("/", s.handleIndex)

	return r
}

// Start listens on the configured port and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("dashboard listening", "addr", "http://localhost"+addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.log.Error("list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(id)
	if err != nil {
		s.log.Error("get run", "run_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

type startRunRequest struct {
	RepoPath string `json:"repo_path"`
}

// handleStartRun kicks off a pipeline run in the background and returns
// the task ID immediately.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RepoPath == "" {
		s.writeError(w, http.StatusBadRequest, "repo_path is required")
		return
	}

	cfg, err := ci.LoadConfig(req.RepoPath)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	repoPath := req.RepoPath
	taskID := s.tasks.Submit(func() (interface{}, error) {
		runner := ci.NewRunner(ci.NewExecutor(nil, s.log), &runReporter{hub: s.hub}, s.log)
		started := time.Now()
		result := runner.Run(cfg, repoPath)
		finished := time.Now()
		if err := s.store.RecordRun(repoPath, started, finished, result); err != nil {
			s.log.Error("record run", "run_id", result.RunID, "error", err)
		}
		return result, nil
	})

	s.writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

// handleEvents serves the SSE stream of pipeline events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if present

	events, cancel := s.hub.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.log.Error("marshal event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}
