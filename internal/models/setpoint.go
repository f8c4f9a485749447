package models

import (
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// OmegaCoupling is the signed share of the angular-rate command each module
// sees. Diagonal pairs share a sign.
var OmegaCoupling = [dynamo.NumModules]float64{
	dynamo.FL: +1,
	dynamo.FR: -1,
	dynamo.RL: -1,
	dynamo.RR: +1,
}

// Setpoints maps a command onto per-module targets. This is an
// approximation, not swerve inverse kinematics.
func Setpoints(cmd dynamo.Command, p Params) [dynamo.NumModules]dynamo.Setpoint {
	magnitude := math.Hypot(cmd.Vx, cmd.Vy)

	// atan2 is unstable near zero magnitude
	base := 0.0
	if magnitude > p.Deadband {
		base = math.Atan2(cmd.Vy, cmd.Vx) * 180 / math.Pi
	}

	var out [dynamo.NumModules]dynamo.Setpoint
	for i, c := range OmegaCoupling {
		coupling := c * cmd.Omega
		out[i] = dynamo.Setpoint{
			Angle: dynamo.WrapDeg(base + coupling*p.OmegaAngleGain),
			Speed: dynamo.Clamp(magnitude+math.Abs(coupling)*p.OmegaSpeedGain, 0, 1) * p.MaxSpeed,
		}
	}
	return out
}
