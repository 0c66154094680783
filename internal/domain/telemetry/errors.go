package telemetry

import (
	"errors"
	"fmt"
)

// Soft error kinds. Callers absorb them into an empty or degraded result.
var (
	ErrMissingSignal    = errors.New("missing signal")
	ErrInsufficientData = errors.New("insufficient data")
)

// MissingSignal reports that a channel is absent for a whole track.
func MissingSignal(track string, s Signal) error {
	return fmt.Errorf("%w: %s on track %s", ErrMissingSignal, s, track)
}

// IsSoft reports whether err is absorbed rather than propagated.
func IsSoft(err error) bool {
	return errors.Is(err, ErrMissingSignal) || errors.Is(err, ErrInsufficientData)
}
