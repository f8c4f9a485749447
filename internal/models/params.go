package models

import (
	"fmt"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Params holds every physical coefficient of the drivetrain model.
type Params struct {
	MaxTurnRate float64 `yaml:"max_turn_rate" mapstructure:"max_turn_rate"` // deg/s
	TurnTau     float64 `yaml:"turn_tau" mapstructure:"turn_tau"`           // s
	DriveTau    float64 `yaml:"drive_tau" mapstructure:"drive_tau"`         // s
	MaxSpeed    float64 `yaml:"max_speed" mapstructure:"max_speed"`         // rpm

	Deadband       float64 `yaml:"deadband" mapstructure:"deadband"`
	OmegaAngleGain float64 `yaml:"omega_angle_gain" mapstructure:"omega_angle_gain"` // deg per unit omega
	OmegaSpeedGain float64 `yaml:"omega_speed_gain" mapstructure:"omega_speed_gain"`

	AngleNoise float64 `yaml:"angle_noise" mapstructure:"angle_noise"` // deg
	SpeedNoise float64 `yaml:"speed_noise" mapstructure:"speed_noise"` // rpm

	DriveBaseCurrent float64 `yaml:"drive_base_current" mapstructure:"drive_base_current"`
	DriveSlipGain    float64 `yaml:"drive_slip_gain" mapstructure:"drive_slip_gain"`
	DriveLoadGain    float64 `yaml:"drive_load_gain" mapstructure:"drive_load_gain"`
	TurnBaseCurrent  float64 `yaml:"turn_base_current" mapstructure:"turn_base_current"`
	TurnErrorGain    float64 `yaml:"turn_error_gain" mapstructure:"turn_error_gain"`

	DriveHeating float64 `yaml:"drive_heating" mapstructure:"drive_heating"`
	TurnHeating  float64 `yaml:"turn_heating" mapstructure:"turn_heating"`
	Cooling      float64 `yaml:"cooling" mapstructure:"cooling"`
	InitialTemp  float64 `yaml:"initial_temp" mapstructure:"initial_temp"`

	YawGain  float64 `yaml:"yaw_gain" mapstructure:"yaw_gain"`   // deg/s at omega = 1
	YawNoise float64 `yaml:"yaw_noise" mapstructure:"yaw_noise"` // deg per tick

	NominalVoltage float64 `yaml:"nominal_voltage" mapstructure:"nominal_voltage"`
	FloorVoltage   float64 `yaml:"floor_voltage" mapstructure:"floor_voltage"`
	SagCoefficient float64 `yaml:"sag_coefficient" mapstructure:"sag_coefficient"` // V per A
}

func DefaultParams() Params {
	return Params{
		MaxTurnRate: 720,
		TurnTau:     0.18,
		DriveTau:    0.25,
		MaxSpeed:    5676,

		Deadband:       0.02,
		OmegaAngleGain: 35,
		OmegaSpeedGain: 0.15,

		AngleNoise: 0.8,
		SpeedNoise: 40,

		DriveBaseCurrent: 8,
		DriveSlipGain:    0.01,
		DriveLoadGain:    20,
		TurnBaseCurrent:  3,
		TurnErrorGain:    0.05,

		DriveHeating: 0.002,
		TurnHeating:  0.003,
		Cooling:      0.01,

		YawGain:  90,
		YawNoise: 0.2,

		NominalVoltage: 12.6,
		FloorVoltage:   8.5,
		SagCoefficient: 0.01,
	}
}

// Noiseless returns a copy with every noise amplitude set to zero.
func (p Params) Noiseless() Params {
	p.AngleNoise = 0
	p.SpeedNoise = 0
	p.YawNoise = 0
	return p
}

func (p Params) Validate() error {
	switch {
	case p.MaxTurnRate < 0:
		return fmt.Errorf("%w: max turn rate must be non-negative, got %f", dynamo.ErrInvalidConfig, p.MaxTurnRate)
	case p.TurnTau < 0 || p.DriveTau < 0:
		return fmt.Errorf("%w: time constants must be non-negative", dynamo.ErrInvalidConfig)
	case p.MaxSpeed < 0:
		return fmt.Errorf("%w: max speed must be non-negative, got %f", dynamo.ErrInvalidConfig, p.MaxSpeed)
	case p.AngleNoise < 0 || p.SpeedNoise < 0 || p.YawNoise < 0:
		return fmt.Errorf("%w: noise amplitudes must be non-negative", dynamo.ErrInvalidConfig)
	case p.FloorVoltage > p.NominalVoltage:
		return fmt.Errorf("%w: floor voltage %.2f above nominal %.2f", dynamo.ErrInvalidConfig, p.FloorVoltage, p.NominalVoltage)
	}
	return nil
}
