package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/pitwall/internal/adapters/store"
	service "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/domain/strategy"
)

// maxRaceLaps bounds the race length a client may request.
const maxRaceLaps = 500

// StrategyHandler serves pit strategy comparisons.
type StrategyHandler struct {
	deps StrategyDependencies
}

// NewStrategyHandler creates a new strategy handler.
func NewStrategyHandler(deps StrategyDependencies) *StrategyHandler {
	return &StrategyHandler{deps: deps}
}

type strategyResponse struct {
	Track string `json:"track"`
	Car   string `json:"car"`
	strategy.Result
}

type carsResponse struct {
	Track string   `json:"track"`
	Cars  []string `json:"cars"`
}

// HandleStrategy handles GET /strategy?track=&car=&laps= requests. laps is
// optional; zero or absent uses the configured race length.
func (h *StrategyHandler) HandleStrategy(w http.ResponseWriter, r *http.Request) {
	const op = "strategy"
	q := r.URL.Query()
	track, car := q.Get("track"), q.Get("car")
	if !validName(track) || !validName(car) {
		writeError(w, http.StatusBadRequest, "invalid_params", NewKind(op, ErrBadRequest))
		return
	}

	laps := 0
	if raw := q.Get("laps"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxRaceLaps {
			writeError(w, http.StatusBadRequest, "invalid_laps", WrapKind(op, ErrBadRequest, errors.New("laps must be an integer in [0, 500]")))
			return
		}
		laps = n
	}

	res, err := h.deps.Strategy(r.Context(), track, car, laps)
	if err != nil {
		writeStrategyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, strategyResponse{Track: track, Car: car, Result: res})
}

// HandleCars handles GET /tracks/{track}/cars requests.
func (h *StrategyHandler) HandleCars(w http.ResponseWriter, r *http.Request) {
	const op = "tracks.cars"
	track := r.PathValue("track")
	if !validName(track) {
		writeError(w, http.StatusBadRequest, "invalid_track", NewKind(op, ErrBadRequest))
		return
	}

	cars, err := h.deps.Cars(r.Context(), track)
	if err != nil {
		writeStrategyError(w, op, err)
		return
	}
	if cars == nil {
		cars = []string{}
	}
	writeJSON(w, http.StatusOK, carsResponse{Track: track, Cars: cars})
}

func writeStrategyError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNoLapData):
		writeError(w, http.StatusNotFound, "no_lap_data", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, store.ErrQuery):
		writeError(w, http.StatusBadGateway, "query_failed", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
	}
}
