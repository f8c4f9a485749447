package metrics

import (
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// TrackingError is the mean absolute angle error between commanded and
// measured module angles, in degrees, over all modules and ticks.
type TrackingError struct {
	err mean
}

func NewTrackingError() *TrackingError {
	return &TrackingError{}
}

func (t *TrackingError) Name() string { return "tracking_error_deg" }

func (t *TrackingError) Observe(rec dynamo.TickRecord) {
	for _, m := range rec.Modules {
		t.err.add(math.Abs(dynamo.AngleError(m.CmdAngle, m.MeasAngle)))
	}
}

func (t *TrackingError) Value() float64 { return t.err.value() }

func (t *TrackingError) Reset() { t.err.reset() }
