package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/swervesim/internal/config"
	"github.com/san-kum/swervesim/internal/control"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/metrics"
)

// brownoutMargin is how far above the battery floor a tick counts as a
// brownout.
const brownoutMargin = 0.5

// SourceFactory builds a fresh command source from its parameters.
type SourceFactory func(params map[string]float64) (dynamo.CommandSource, error)

type Registry struct {
	sources map[string]SourceFactory
}

func NewRegistry() *Registry {
	r := &Registry{sources: make(map[string]SourceFactory)}

	r.sources["sinusoidal"] = func(params map[string]float64) (dynamo.CommandSource, error) {
		s := control.NewSinusoidal()
		for k, v := range params {
			if !s.SetParam(k, v) {
				return nil, fmt.Errorf("%w: sinusoidal has no parameter %q", dynamo.ErrInvalidConfig, k)
			}
		}
		return s, nil
	}
	r.sources["constant"] = func(params map[string]float64) (dynamo.CommandSource, error) {
		return control.NewConstant(params["vx"], params["vy"], params["omega"]), nil
	}
	r.sources["manual"] = func(params map[string]float64) (dynamo.CommandSource, error) {
		return control.NewManual(commandFrom(params)), nil
	}
	r.sources["idle"] = func(map[string]float64) (dynamo.CommandSource, error) {
		return control.NewIdle(), nil
	}
	r.sources["step"] = func(params map[string]float64) (dynamo.CommandSource, error) {
		return control.NewStep(params["at"], commandFrom(params)), nil
	}

	return r
}

func commandFrom(params map[string]float64) dynamo.Command {
	return dynamo.Command{Vx: params["vx"], Vy: params["vy"], Omega: params["omega"]}
}

// Register adds or replaces a source.
func (r *Registry) Register(name string, f SourceFactory) {
	r.sources[name] = f
}

func (r *Registry) GetSource(name string, params map[string]float64) (dynamo.CommandSource, error) {
	fn, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", dynamo.ErrInvalidConfig, name)
	}
	return fn(params)
}

func (r *Registry) ListSources() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns fresh instances of every run metric.
func DefaultMetrics(cfg *config.Config) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewEnergy(cfg.Dt),
		metrics.NewBrownout(cfg.Physics.FloorVoltage + brownoutMargin),
		metrics.NewControlEffort(),
		metrics.NewTrackingError(),
		metrics.NewMinBattery(),
		metrics.NewPeakCurrent(),
		metrics.NewMaxTemperature(),
	}
}
