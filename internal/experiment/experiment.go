// Package experiment wires a configuration into a complete run: command
// source, engine, metrics, pacing and sink.
package experiment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/san-kum/swervesim/internal/config"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/sim"
)

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	log      zerolog.Logger
	runID    string
	seed     int64
	now      func() time.Time
}

type Option func(*Experiment)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Experiment) { e.log = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

func WithRunID(id string) Option {
	return func(e *Experiment) { e.runID = id }
}

// WithClock sets the clock used for record timestamps and run start.
func WithClock(now func() time.Time) Option {
	return func(e *Experiment) { e.now = now }
}

// New validates cfg and assigns a run id. A zero seed is replaced by one
// derived from the clock; Seed reports the value actually used.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      zerolog.Nop(),
		now:      time.Now,
		seed:     cfg.Seed,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	if e.seed == 0 {
		e.seed = e.now().UnixNano()
	}
	return e, nil
}

func (e *Experiment) RunID() string { return e.runID }

func (e *Experiment) Seed() int64 { return e.seed }

func (e *Experiment) Config() *config.Config { return e.cfg }

// Source builds the configured command source.
func (e *Experiment) Source() (dynamo.CommandSource, error) {
	return e.registry.GetSource(e.cfg.Source, e.cfg.SourceParams)
}

func (e *Experiment) info(source string) dynamo.RunInfo {
	return dynamo.RunInfo{
		ID:        e.runID,
		StartedAt: e.now(),
		Seed:      e.seed,
		Dt:        e.cfg.Dt,
		Duration:  e.cfg.Duration,
		MaxTicks:  e.cfg.MaxTicks,
		Source:    source,
	}
}

// Run drives the configured source into sink until the configured limits.
func (e *Experiment) Run(ctx context.Context, sink dynamo.Sink, opts ...sim.RunnerOption) (*sim.Result, error) {
	src, err := e.Source()
	if err != nil {
		sink.Close()
		return nil, err
	}
	return e.RunWith(ctx, e.cfg.Source, src, sink, opts...)
}

// RunWith is Run with an explicit source, e.g. a scenario sequence or a
// keyboard-driven manual source. name is recorded as the run's source.
// sink is closed before RunWith returns.
func (e *Experiment) RunWith(ctx context.Context, name string, src dynamo.CommandSource, sink dynamo.Sink, opts ...sim.RunnerOption) (*sim.Result, error) {
	engine, err := sim.New(e.cfg.EngineConfig(),
		sim.WithSeed(e.seed),
		sim.WithRunID(e.runID),
		sim.WithClock(e.now),
	)
	if err != nil {
		sink.Close()
		return nil, err
	}

	runnerOpts := []sim.RunnerOption{
		sim.WithLogger(e.log.With().Str("run_id", e.runID).Logger()),
		sim.WithMetrics(DefaultMetrics(e.cfg)...),
		sim.WithLogEvery(e.cfg.LogEvery),
		sim.WithMaxFailures(e.cfg.Sink.MaxFailures),
	}
	if e.cfg.Realtime {
		runnerOpts = append(runnerOpts, sim.WithPacer(sim.NewRealTime(e.cfg.Period())))
	}
	runnerOpts = append(runnerOpts, opts...)

	runner, err := sim.NewRunner(engine, sink, runnerOpts...)
	if err != nil {
		sink.Close()
		return nil, err
	}

	e.log.Info().
		Str("run_id", e.runID).
		Int64("seed", e.seed).
		Str("source", name).
		Msg("starting run")

	return runner.Run(ctx, src, e.info(name), e.cfg.Limits())
}
