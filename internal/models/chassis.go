package models

import "github.com/san-kum/swervesim/internal/dynamo"

// StepChassis integrates yaw from the angular-rate command plus noise.
func StepChassis(c dynamo.ChassisState, omega, dt float64, p Params, noise float64) dynamo.ChassisState {
	return dynamo.ChassisState{
		Yaw: dynamo.WrapDeg(c.Yaw + omega*p.YawGain*dt + noise),
	}
}

// BatteryVoltage estimates pack voltage from the total current draw.
func BatteryVoltage(totalCurrent float64, p Params) float64 {
	v := p.NominalVoltage - totalCurrent*p.SagCoefficient
	if v < p.FloorVoltage {
		v = p.FloorVoltage
	}
	return dynamo.Round(v, 2)
}
