package store

import "errors"

var (
	// ErrQuery reports a columnar store read that failed outright.
	ErrQuery = errors.New("columnar store query failed")
	// ErrNotFound reports a track without built metadata.
	ErrNotFound = errors.New("track metadata not found")
	// ErrEmptyTrack rejects metadata without a track name.
	ErrEmptyTrack = errors.New("metadata has no track name")
)
