package service

import "errors"

var (
	// ErrNotStarted reports a call that needs the worker pool before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrNoLapData reports a car or track without a usable lap table.
	ErrNoLapData = errors.New("no lap data")
)
