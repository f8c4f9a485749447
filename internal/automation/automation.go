// Package automation runs scripted scenarios and parameter sweeps.
package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/swervesim/internal/config"
	"github.com/san-kum/swervesim/internal/control"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/experiment"
	"github.com/san-kum/swervesim/internal/sim"
)

// Scenario is a scripted drive: segments played back to back.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Loop        bool               `yaml:"loop"`
	Duration    float64            `yaml:"duration"` // required when looping
	Params      map[string]float64 `yaml:"params"`   // config overrides, e.g. turn_tau
	Segments    []ScenarioSegment  `yaml:"segments"`
}

type ScenarioSegment struct {
	Name     string             `yaml:"name"`
	Source   string             `yaml:"source"`
	Duration float64            `yaml:"duration"`
	Params   map[string]float64 `yaml:"params"`
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Segments) == 0 {
		return fmt.Errorf("%w: no segments", dynamo.ErrInvalidConfig)
	}
	for i, seg := range s.Segments {
		if seg.Duration <= 0 {
			return fmt.Errorf("%w: segment %d (%s) needs a positive duration", dynamo.ErrInvalidConfig, i+1, seg.Name)
		}
		if seg.Source == "" {
			return fmt.Errorf("%w: segment %d (%s) has no source", dynamo.ErrInvalidConfig, i+1, seg.Name)
		}
	}
	if s.Loop && s.Duration <= 0 {
		return fmt.Errorf("%w: a looping scenario needs a duration", dynamo.ErrInvalidConfig)
	}
	return nil
}

// Sequence builds the command source the scenario describes.
func (s *Scenario) Sequence(registry *experiment.Registry) (*control.Sequence, error) {
	segs := make([]control.Segment, 0, len(s.Segments))
	for i, seg := range s.Segments {
		src, err := registry.GetSource(seg.Source, seg.Params)
		if err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", i+1, seg.Name, err)
		}
		segs = append(segs, control.Segment{Name: seg.Name, Duration: seg.Duration, Source: src})
	}
	seq := control.NewSequence(segs...)
	seq.Loop = s.Loop
	return seq, nil
}

// Config applies the scenario on top of base. A non-looping scenario runs
// for exactly its total segment time.
func (s *Scenario) Config(base *config.Config) *config.Config {
	cfg := base.Clone()
	for k, v := range s.Params {
		cfg.SetParam(k, v)
	}
	cfg.Source = "scenario:" + s.Name
	cfg.MaxTicks = 0
	if s.Loop {
		cfg.Duration = s.Duration
	} else {
		total := 0.0
		for _, seg := range s.Segments {
			total += seg.Duration
		}
		cfg.Duration = total
	}
	return cfg
}

// RunScenario plays the scenario into sink. sink is closed before it
// returns.
func RunScenario(ctx context.Context, s *Scenario, base *config.Config, sink dynamo.Sink, log zerolog.Logger, opts ...sim.RunnerOption) (*sim.Result, error) {
	registry := experiment.NewRegistry()
	seq, err := s.Sequence(registry)
	if err != nil {
		sink.Close()
		return nil, err
	}

	cfg := s.Config(base)
	exp, err := experiment.New(cfg, experiment.WithLogger(log), experiment.WithRegistry(registry))
	if err != nil {
		sink.Close()
		return nil, err
	}

	log.Info().
		Str("scenario", s.Name).
		Int("segments", len(s.Segments)).
		Float64("duration", cfg.Duration).
		Msg("running scenario")

	return exp.RunWith(ctx, cfg.Source, seq, sink, opts...)
}
