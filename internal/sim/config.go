package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/models"
)

// DefaultDt is the control period in seconds.
const DefaultDt = 0.005

// Config is fixed for the lifetime of an Engine.
type Config struct {
	Dt       float64
	Params   models.Params
	Parallel bool
}

func DefaultConfig() Config {
	return Config{Dt: DefaultDt, Params: models.DefaultParams()}
}

func (c Config) Validate() error {
	if c.Dt <= 0 || math.IsNaN(c.Dt) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, c.Dt)
	}
	return c.Params.Validate()
}

// Limits bounds a run. Whichever bound is reached first ends it; a zero
// bound is ignored.
type Limits struct {
	Duration float64 // simulated seconds
	MaxTicks int64
}

func (l Limits) Validate() error {
	if l.Duration < 0 || l.MaxTicks < 0 {
		return fmt.Errorf("%w: negative run bound", dynamo.ErrInvalidConfig)
	}
	if l.Duration == 0 && l.MaxTicks == 0 {
		return dynamo.ErrUnbounded
	}
	return nil
}

// done reports whether a run that has completed ticks ticks of dt each
// has reached a bound.
func (l Limits) done(ticks int64, dt float64) bool {
	if l.MaxTicks > 0 && ticks >= l.MaxTicks {
		return true
	}
	// compare tick counts to avoid float drift in elapsed time
	if l.Duration > 0 && ticks >= int64(math.Ceil(l.Duration/dt-1e-9)) {
		return true
	}
	return false
}

// Result is what a finished or interrupted run reports.
type Result struct {
	RunID     string
	Ticks     int64
	Persisted int64
	Failed    int64
	Elapsed   float64
	Last      dynamo.TickRecord
	Metrics   map[string]float64
}
