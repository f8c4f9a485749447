package metrics

import (
	"github.com/san-kum/swervesim/internal/dynamo"
)

// Brownout is the fraction of ticks with battery voltage at or below a
// threshold.
type Brownout struct {
	threshold float64
	below     mean
}

func NewBrownout(threshold float64) *Brownout {
	return &Brownout{threshold: threshold}
}

func (b *Brownout) Name() string { return "brownout_fraction" }

func (b *Brownout) Observe(rec dynamo.TickRecord) {
	if rec.BatteryV <= b.threshold {
		b.below.add(1)
	} else {
		b.below.add(0)
	}
}

func (b *Brownout) Value() float64 { return b.below.value() }

func (b *Brownout) Reset() { b.below.reset() }
