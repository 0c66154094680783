// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/strategy"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	TrackDependencies
	StrategyDependencies
	StatsProvider
}

// TrackDependencies reads and rebuilds track metadata.
type TrackDependencies interface {
	Tracks(ctx context.Context) []string
	Metadata(ctx context.Context, track string) (model.TrackMetadata, error)
	// Enqueue schedules a rebuild. duplicate reports a job already in flight.
	Enqueue(ctx context.Context, track string) (duplicate bool, err error)
}

// StrategyDependencies runs pit strategy simulations.
type StrategyDependencies interface {
	Strategy(ctx context.Context, track, car string, raceLaps int) (strategy.Result, error)
	Cars(ctx context.Context, track string) ([]string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	tracksHandler   *TracksHandler
	strategyHandler *StrategyHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		tracksHandler:   NewTracksHandler(deps),
		strategyHandler: NewStrategyHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("GET /healthz", instrument("healthz", s.healthHandler.HandleHealth))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.Handle("GET /stats", instrument("stats", s.statsHandler.HandleStats))
	mux.Handle("GET /tracks", instrument("tracks", s.tracksHandler.HandleList))
	mux.Handle("GET /tracks/{track}", instrument("track", s.tracksHandler.HandleGet))
	mux.Handle("POST /tracks/{track}/rebuild", instrument("rebuild", s.tracksHandler.HandleRebuild))
	mux.Handle("GET /tracks/{track}/cars", instrument("cars", s.strategyHandler.HandleCars))
	mux.Handle("GET /strategy", instrument("strategy", s.strategyHandler.HandleStrategy))
}

type ackResponse struct {
	Status    string `json:"status"`
	Track     string `json:"track"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing status, so an unencodable value
// still yields a 500 with an error body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "encode_failed", Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// validName accepts track and car identifiers: letters, digits, '_' and '-'.
func validName(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
