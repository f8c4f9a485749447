package models

import (
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Noise carries the measurement offsets drawn for one module in one tick.
type Noise struct {
	Angle float64
	Speed float64
}

// StepModule advances one module by dt toward sp and returns its
// measurements. Noise is applied to the measurements only; it never feeds
// back into state.
func StepModule(s *dynamo.ModuleState, sp dynamo.Setpoint, dt float64, p Params, n Noise) dynamo.ModuleRecord {
	target := dynamo.Clamp(sp.Speed, 0, p.MaxSpeed)

	// Turning: rate-cap the error, then apply the lag fraction to the
	// capped step. Both stages, in this order.
	err := dynamo.AngleError(sp.Angle, s.Angle)
	maxStep := p.MaxTurnRate * dt
	step := dynamo.Clamp(err, -maxStep, maxStep)
	s.Angle = dynamo.WrapDeg(s.Angle + step*dynamo.LagFraction(p.TurnTau, dt))

	s.Speed = dynamo.FirstOrderStep(s.Speed, target, p.DriveTau, dt)

	// round before wrapping so -179.9996 reports 180, not -180
	measAngle := dynamo.WrapDeg(dynamo.Round(s.Angle+n.Angle, 3))
	measSpeed := dynamo.Round(math.Max(0, s.Speed+n.Speed), 2)

	driveApplied := 0.0
	if p.MaxSpeed != 0 {
		driveApplied = target / p.MaxSpeed
	}
	turnApplied := dynamo.Clamp(err/90, -1, 1)

	driveCurrent := p.DriveBaseCurrent +
		math.Abs(target-s.Speed)*p.DriveSlipGain +
		math.Abs(driveApplied)*p.DriveLoadGain
	turnCurrent := p.TurnBaseCurrent + math.Abs(err)*p.TurnErrorGain

	s.DriveTemp += driveCurrent*p.DriveHeating - p.Cooling
	s.TurnTemp += turnCurrent*p.TurnHeating - p.Cooling

	return dynamo.ModuleRecord{
		CmdAngle:     sp.Angle,
		CmdSpeed:     sp.Speed,
		MeasAngle:    measAngle,
		MeasSpeed:    measSpeed,
		DriveApplied: driveApplied,
		TurnApplied:  turnApplied,
		DriveCurrent: driveCurrent,
		TurnCurrent:  turnCurrent,
		DriveTemp:    s.DriveTemp,
		TurnTemp:     s.TurnTemp,
	}
}

// InitialModuleState is the state every module starts a run in.
func InitialModuleState(p Params) dynamo.ModuleState {
	return dynamo.ModuleState{DriveTemp: p.InitialTemp, TurnTemp: p.InitialTemp}
}
