package metrics

import (
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// extreme tracks the min or max of one value extracted from each tick.
type extreme struct {
	name    string
	max     bool
	extract func(dynamo.TickRecord) float64
	val     float64
	seen    bool
}

func (e *extreme) Name() string { return e.name }

func (e *extreme) Observe(rec dynamo.TickRecord) {
	v := e.extract(rec)
	if !e.seen || (e.max && v > e.val) || (!e.max && v < e.val) {
		e.val = v
		e.seen = true
	}
}

func (e *extreme) Value() float64 {
	if !e.seen {
		return 0
	}
	return e.val
}

func (e *extreme) Reset() {
	e.val = 0
	e.seen = false
}

func NewMinBattery() dynamo.Metric {
	return &extreme{name: "min_battery_v", extract: func(r dynamo.TickRecord) float64 { return r.BatteryV }}
}

// NewPeakCurrent tracks the highest total current draw.
func NewPeakCurrent() dynamo.Metric {
	return &extreme{name: "peak_current_a", max: true, extract: dynamo.TickRecord.TotalCurrent}
}

// NewMaxTemperature tracks the hottest motor, drive or turn, on any module.
func NewMaxTemperature() dynamo.Metric {
	return &extreme{name: "max_temp_c", max: true, extract: func(r dynamo.TickRecord) float64 {
		hot := math.Inf(-1)
		for _, m := range r.Modules {
			hot = math.Max(hot, math.Max(m.DriveTemp, m.TurnTemp))
		}
		return hot
	}}
}
