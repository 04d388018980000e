// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pitchline/pitchline/internal/broadcast"
	"github.com/pitchline/pitchline/internal/domain/match"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the app service.
type Dependencies interface {
	NewJob(id string, home, away match.Roster, homeTactic, awayTactic match.Tactic, env match.Environment, opts match.Options) *match.Job
	SubmitSync(ctx context.Context, job *match.Job) (*match.Result, error)
	SubmitDetached(ctx context.Context, job *match.Job) (string, error)
	EnqueueAsync(ctx context.Context, payload []byte) bool
	Result(ctx context.Context, jobID string) (*match.Result, error)
	Cancel(jobID string) bool
	Subscribe(matchID string) (*broadcast.Subscriber, error)
	Unsubscribe(matchID, subID string) error
	Counts() (running, queued int)
}

// Server wires HTTP routes for the simulation API.
type Server struct {
	submitHandler *SubmitHandler
	jobsHandler   *JobsHandler
	liveHandler   *LiveHandler
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	throttle      *Throttle
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		submitHandler: NewSubmitHandler(deps),
		jobsHandler:   NewJobsHandler(deps),
		liveHandler:   NewLiveHandler(deps),
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(statsProvider),
		throttle:      NewThrottle(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to the router. The throttle guards
// only the synchronous submission paths; queue intake is governed by the
// admission backlog instead.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	r.HandleFunc("/simulate",
		MetricsMiddleware(s.throttle.Middleware(s.submitHandler.HandleSimulate), "simulate")).Methods(http.MethodPost)
	r.HandleFunc("/simulate-realtime",
		MetricsMiddleware(s.throttle.Middleware(s.submitHandler.HandleSimulateRealtime), "simulate_realtime")).Methods(http.MethodPost)
	r.HandleFunc("/simulate-async",
		MetricsMiddleware(s.submitHandler.HandleSimulateAsync, "simulate_async")).Methods(http.MethodPost)

	r.HandleFunc("/jobs/{id}", MetricsMiddleware(s.jobsHandler.HandleGetJob, "jobs")).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", MetricsMiddleware(s.jobsHandler.HandleCancelJob, "jobs")).Methods(http.MethodDelete)

	r.HandleFunc("/live/{id}", s.liveHandler.HandleLive).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
