package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/pkg/metrics"
)

// Metadata keeps the latest built metadata per track.
type Metadata struct {
	mu     sync.RWMutex
	tracks map[string]model.TrackMetadata
}

// NewMetadata returns an empty store.
func NewMetadata() *Metadata {
	return &Metadata{tracks: make(map[string]model.TrackMetadata)}
}

// Put replaces the metadata of meta.Track.
func (m *Metadata) Put(_ context.Context, meta model.TrackMetadata) error {
	if meta.Track == "" {
		return ErrEmptyTrack
	}
	meta.Normalize()

	m.mu.Lock()
	m.tracks[meta.Track] = meta
	n := len(m.tracks)
	m.mu.Unlock()

	metrics.UpdateStoredTracks(n)
	return nil
}

// Get returns the metadata of track.
func (m *Metadata) Get(_ context.Context, track string) (model.TrackMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.tracks[track]
	if !ok {
		return model.TrackMetadata{}, fmt.Errorf("%w: %s", ErrNotFound, track)
	}
	return meta, nil
}

// Tracks lists stored tracks in name order.
func (m *Metadata) Tracks(_ context.Context) []string {
	m.mu.RLock()
	names := lo.Keys(m.tracks)
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Count returns the number of stored tracks.
func (m *Metadata) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tracks)
}

// Snapshot copies the stored metadata keyed by track.
func (m *Metadata) Snapshot(_ context.Context) map[string]model.TrackMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.TrackMetadata, len(m.tracks))
	for k, v := range m.tracks {
		out[k] = v
	}
	return out
}

// WriteJSON writes metadata keyed by track as indented JSON to path.
func WriteJSON(path string, meta map[string]model.TrackMetadata) error {
	out := lo.MapValues(meta, func(v model.TrackMetadata, _ string) model.TrackMetadata {
		v.Normalize()
		return v
	})
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode track metadata: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // metadata is not secret
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
