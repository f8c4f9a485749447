package metrics

import (
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// ControlEffort is the mean of |vx| + |vy| + |omega| over the run.
type ControlEffort struct {
	effort mean
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(rec dynamo.TickRecord) {
	cmd := rec.Command
	c.effort.add(math.Abs(cmd.Vx) + math.Abs(cmd.Vy) + math.Abs(cmd.Omega))
}

func (c *ControlEffort) Value() float64 { return c.effort.value() }

func (c *ControlEffort) Reset() { c.effort.reset() }
