package metrics

import (
	"github.com/san-kum/swervesim/internal/dynamo"
)

// Energy integrates battery voltage times total current, in joules.
type Energy struct {
	dt     float64
	joules float64
}

func NewEnergy(dt float64) *Energy { return &Energy{dt: dt} }

func (e *Energy) Name() string { return "energy_j" }

// Observe adds one tick of electrical power.
func (e *Energy) Observe(rec dynamo.TickRecord) {
	e.joules += rec.BatteryV * rec.TotalCurrent() * e.dt
}

func (e *Energy) Value() float64 { return e.joules }

func (e *Energy) Reset() { e.joules = 0 }
