package automation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/swervesim/internal/config"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/experiment"
	"github.com/san-kum/swervesim/internal/storage/memory"
)

// Sweep varies one config parameter linearly from Min to Max.
type Sweep struct {
	Param string
	Min   float64
	Max   float64
	Steps int
}

type SweepResult struct {
	Value   float64            `json:"value"`
	RunID   string             `json:"run_id"`
	Ticks   int64              `json:"ticks"`
	Metrics map[string]float64 `json:"metrics"`
}

// Values returns the parameter value of every step.
func (s Sweep) Values() []float64 {
	if s.Steps <= 1 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.Steps-1)
	out := make([]float64, s.Steps)
	for i := range out {
		out[i] = s.Min + float64(i)*step
	}
	return out
}

// RunSweep runs one experiment per value, in parallel and without pacing.
// Every step uses the same seed so only the swept parameter differs.
// newSink may be nil, in which case records are discarded.
func RunSweep(ctx context.Context, base *config.Config, sw Sweep, newSink func(cfg *config.Config) (dynamo.Sink, error), log zerolog.Logger) ([]SweepResult, error) {
	if sw.Param == "" || sw.Steps < 1 {
		return nil, fmt.Errorf("%w: sweep needs a parameter and at least one step", dynamo.ErrInvalidConfig)
	}
	if newSink == nil {
		newSink = func(*config.Config) (dynamo.Sink, error) { return memory.Discard{}, nil }
	}

	values := sw.Values()
	results := make([]SweepResult, len(values))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, v := range values {
		g.Go(func() error {
			cfg := base.Clone()
			cfg.Realtime = false
			cfg.LogEvery = 0
			cfg.SetParam(sw.Param, v)

			exp, err := experiment.New(cfg, experiment.WithLogger(log))
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sw.Param, v, err)
			}
			sink, err := newSink(cfg)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sw.Param, v, err)
			}
			res, err := exp.Run(ctx, sink)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sw.Param, v, err)
			}

			results[i] = SweepResult{Value: v, RunID: res.RunID, Ticks: res.Ticks, Metrics: res.Metrics}
			log.Info().
				Str("param", sw.Param).
				Float64("value", v).
				Int("step", i+1).
				Int("of", len(values)).
				Msg("sweep step done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
