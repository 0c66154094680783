package api

import (
	"errors"
	"net/http"

	jobqueue "github.com/okian/pitwall/internal/adapters/mq/queue"
	"github.com/okian/pitwall/internal/adapters/store"
	service "github.com/okian/pitwall/internal/app"
)

// TracksHandler serves stored track metadata and rebuild requests.
type TracksHandler struct {
	deps TrackDependencies
}

// NewTracksHandler creates a new tracks handler.
func NewTracksHandler(deps TrackDependencies) *TracksHandler {
	return &TracksHandler{deps: deps}
}

type tracksResponse struct {
	Tracks []string `json:"tracks"`
}

// HandleList handles GET /tracks requests.
func (h *TracksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tracks := h.deps.Tracks(r.Context())
	if tracks == nil {
		tracks = []string{}
	}
	writeJSON(w, http.StatusOK, tracksResponse{Tracks: tracks})
}

// HandleGet handles GET /tracks/{track} requests.
func (h *TracksHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "tracks.get"
	track := r.PathValue("track")
	if !validName(track) {
		writeError(w, http.StatusBadRequest, "invalid_track", NewKind(op, ErrBadRequest))
		return
	}

	meta, err := h.deps.Metadata(r.Context(), track)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, meta)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
	}
}

// HandleRebuild handles POST /tracks/{track}/rebuild requests. A new job is
// acknowledged with 202; a job already in flight with 200.
func (h *TracksHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	const op = "tracks.rebuild"
	track := r.PathValue("track")
	if !validName(track) {
		writeError(w, http.StatusBadRequest, "invalid_track", NewKind(op, ErrBadRequest))
		return
	}

	duplicate, err := h.deps.Enqueue(r.Context(), track)
	switch {
	case err == nil && duplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Track: track, Duplicate: true})
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Track: track})
	case errors.Is(err, jobqueue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "queue_full", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, jobqueue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
	}
}
