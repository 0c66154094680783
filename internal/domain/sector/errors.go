package sector

import "errors"

// ErrUnavailable reports that sector statistics cannot be computed for a track.
var ErrUnavailable = errors.New("sector data unavailable")
