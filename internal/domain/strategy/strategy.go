// Package strategy fits a lap-time degradation model for one car and
// compares total race time across pit-stop plans.
package strategy

// Config holds simulator tunables.
type Config struct {
	// MinLapTime and MaxLapTime bound plausible laps (exclusive).
	MinLapTime float64
	MaxLapTime float64
	// MinLaps is the lap count below which filler laps are synthesized.
	MinLaps int
	// BaselinePace is the base filler pace when no lap survives cleaning.
	BaselinePace float64
	// FillerFactor scales the base pace of filler laps.
	FillerFactor float64
	// DefaultPitLoss is used when neither pit source is usable.
	DefaultPitLoss float64
	// SlowLapFactor marks laps at or above factor x median as pit laps.
	SlowLapFactor float64
	// MinFitLaps is the non-pit lap count the linear fit needs.
	MinFitLaps int
	// MinSlope is the lowest degradation slope the model accepts.
	MinSlope float64
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		MinLapTime:     20,
		MaxLapTime:     300,
		MinLaps:        5,
		BaselinePace:   120,
		FillerFactor:   1.02,
		DefaultPitLoss: 20,
		SlowLapFactor:  1.2,
		MinFitLaps:     4,
		MinSlope:       0.02,
	}
}

// Lap is one cleaned lap.
type Lap struct {
	Number int     `json:"lap"`
	Time   float64 `json:"time_s"`
	// PitTime is the measured pit signal, nil when not logged.
	PitTime *float64 `json:"pit_time,omitempty"`
	Pit     bool     `json:"is_pit_lap"`
	// Age counts laps since the last stop, starting at 1.
	Age    int  `json:"lap_age"`
	Filler bool `json:"filler,omitempty"`
}

// Pit loss sources.
const (
	PitLossMeasured = "measured"
	PitLossSlowLaps = "slow_laps"
	PitLossDefault  = "default"
)

// Result is the full output of one simulation run.
type Result struct {
	Laps          []Lap      `json:"laps"`
	Fillers       int        `json:"filler_laps"`
	PitLoss       float64    `json:"pit_loss_s"`
	PitLossSource string     `json:"pit_loss_source"`
	Model         Model      `json:"model"`
	RaceLaps      int        `json:"race_laps"`
	Scenarios     []Scenario `json:"scenarios"`
	Comparison    []Row      `json:"comparison"`
	Best          Row        `json:"best"`
}

// Simulator runs the cleaning, fitting and simulation pipeline.
type Simulator struct {
	cfg Config
}

// New creates a Simulator.
func New(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

// Config returns the tunables in use.
func (s *Simulator) Config() Config { return s.cfg }

// Run simulates raceLaps laps for one car. A non-positive raceLaps uses the
// last cleaned lap number.
func (s *Simulator) Run(h History, raceLaps int) Result {
	laps, fillers := s.Clean(h)
	loss, source := s.PitLoss(laps, h.PitTimes != nil)
	model := s.Fit(laps)
	if raceLaps <= 0 && len(laps) > 0 {
		raceLaps = laps[len(laps)-1].Number
	}

	rows := Compare(model, loss, raceLaps)
	return Result{
		Laps:          laps,
		Fillers:       fillers,
		PitLoss:       loss,
		PitLossSource: source,
		Model:         model,
		RaceLaps:      raceLaps,
		Scenarios:     Scenarios(model, loss, raceLaps),
		Comparison:    rows,
		Best:          Best(rows),
	}
}
