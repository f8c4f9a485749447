package control

import (
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Wave is a*sin(w*t + phase).
type Wave struct {
	Amp   float64 `yaml:"amp" mapstructure:"amp"`
	Freq  float64 `yaml:"freq" mapstructure:"freq"` // rad/s
	Phase float64 `yaml:"phase" mapstructure:"phase"`
}

func (w Wave) At(t float64) float64 {
	return w.Amp * math.Sin(w.Freq*t+w.Phase)
}

// Sinusoidal sweeps all three axes with detuned waves so the combined
// pattern rarely repeats within a match.
type Sinusoidal struct {
	Vx    Wave
	Vy    Wave
	Omega Wave
}

// NewSinusoidal returns the default match pattern:
// vx = 0.8 sin 0.3t, vy = 0.6 cos 0.23t, omega = 0.4 sin 0.17t.
func NewSinusoidal() *Sinusoidal {
	return &Sinusoidal{
		Vx:    Wave{Amp: 0.8, Freq: 0.3},
		Vy:    Wave{Amp: 0.6, Freq: 0.23, Phase: math.Pi / 2},
		Omega: Wave{Amp: 0.4, Freq: 0.17},
	}
}

func (s *Sinusoidal) Next(t float64) dynamo.Command {
	return dynamo.Command{
		Vx:    s.Vx.At(t),
		Vy:    s.Vy.At(t),
		Omega: s.Omega.At(t),
	}.Clamp()
}

// SetParam updates one wave parameter by name, e.g. "vx_amp" or
// "omega_freq". It reports whether the name was recognised.
func (s *Sinusoidal) SetParam(name string, v float64) bool {
	waves := map[string]*Wave{"vx": &s.Vx, "vy": &s.Vy, "omega": &s.Omega}
	for prefix, w := range waves {
		switch name {
		case prefix + "_amp":
			w.Amp = v
		case prefix + "_freq":
			w.Freq = v
		case prefix + "_phase":
			w.Phase = v
		default:
			continue
		}
		return true
	}
	return false
}
