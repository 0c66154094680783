// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/pitwall/internal/domain/braking"
	"github.com/okian/pitwall/internal/domain/corner"
	"github.com/okian/pitwall/internal/domain/sector"
)

// Job asks a worker to (re)build metadata for one track.
type Job struct {
	ID       string    // unique id, used to correlate waiters
	Track    string    // unit of work
	Reason   string    // "build" for batch runs, "rebuild" for API requests
	Enqueued time.Time // enqueue instant, for latency
}

// NewJob creates a job with a fresh id.
func NewJob(track, reason string) Job {
	return Job{ID: uuid.NewString(), Track: track, Reason: reason, Enqueued: time.Now()}
}

// TrackMetadata is the per-track output of one build. Sectors is nil when
// sector data is unavailable for the track.
type TrackMetadata struct {
	Track         string          `json:"-"`
	Sectors       sector.Summary  `json:"sectors"`
	Corners       []corner.Corner `json:"corners"`
	BrakingPoints []braking.Event `json:"braking_points"`
	// BrakingZones merges adjacent braking points into intervals.
	BrakingZones []braking.Zone `json:"braking_zones"`
	// Warnings lists soft conditions met while building.
	Warnings []string  `json:"warnings,omitempty"`
	BuiltAt  time.Time `json:"built_at"`
}

// Normalize replaces nil sequences with empty ones so they encode as [].
func (m *TrackMetadata) Normalize() {
	if m.Corners == nil {
		m.Corners = []corner.Corner{}
	}
	if m.BrakingPoints == nil {
		m.BrakingPoints = []braking.Event{}
	}
	if m.BrakingZones == nil {
		m.BrakingZones = []braking.Zone{}
	}
}
