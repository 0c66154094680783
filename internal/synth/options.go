package synth

// DefaultTracks are the tracks written when none are given.
var DefaultTracks = []string{"sonoma", "indy"} //nolint:gochecknoglobals // default dataset

type options struct {
	tracks   []string
	cars     []int
	laps     int
	raceLaps int
	pitLap   int
}

// Option configures Generate.
type Option func(*options)

func newOptions(opts ...Option) options {
	o := options{
		tracks:   DefaultTracks,
		cars:     []int{7, 13},
		laps:     3,
		raceLaps: 20,
		pitLap:   10,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTracks sets the tracks to generate.
func WithTracks(tracks ...string) Option {
	return func(o *options) {
		if len(tracks) > 0 {
			o.tracks = tracks
		}
	}
}

// WithCars sets the car numbers to generate.
func WithCars(cars ...int) Option {
	return func(o *options) {
		if len(cars) > 0 {
			o.cars = cars
		}
	}
}

// WithLaps sets the telemetry laps per car.
func WithLaps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.laps = n
		}
	}
}

// WithRaceLaps sets the timed laps per car and the lap of the single stop.
func WithRaceLaps(n, pitLap int) Option {
	return func(o *options) {
		if n > 0 {
			o.raceLaps = n
			o.pitLap = pitLap
		}
	}
}
