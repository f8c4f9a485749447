package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/storage/memory"
)

// Ensemble runs independent engines with consecutive seeds. Records are
// discarded; only each run's Result is kept.
type Ensemble struct {
	cfg       Config
	numRuns   int
	seedStart int64

	// NewSource and NewMetrics build fresh per-run instances; sources and
	// metrics carry state and must not be shared between goroutines.
	NewSource  func() dynamo.CommandSource
	NewMetrics func() []dynamo.Metric
}

func NewEnsemble(cfg Config, numRuns int, seedStart int64, newSource func() dynamo.CommandSource) *Ensemble {
	return &Ensemble{cfg: cfg, numRuns: numRuns, seedStart: seedStart, NewSource: newSource}
}

func (e *Ensemble) Run(ctx context.Context, limits Limits) ([]*Result, error) {
	if e.numRuns <= 0 {
		return nil, fmt.Errorf("%w: ensemble needs at least one run", dynamo.ErrInvalidConfig)
	}

	results := make([]*Result, e.numRuns)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			seed := e.seedStart + int64(i)
			engine, err := New(e.cfg, WithSeed(seed), WithRunID(fmt.Sprintf("ensemble-%d", seed)))
			if err != nil {
				return err
			}

			var opts []RunnerOption
			if e.NewMetrics != nil {
				opts = append(opts, WithMetrics(e.NewMetrics()...))
			}
			opts = append(opts, WithLogEvery(0))

			runner, err := NewRunner(engine, memory.Discard{}, opts...)
			if err != nil {
				return err
			}

			info := dynamo.RunInfo{ID: engine.RunID(), Seed: seed, Dt: e.cfg.Dt, Duration: limits.Duration, MaxTicks: limits.MaxTicks}
			res, err := runner.Run(ctx, e.NewSource(), info, limits)
			if err != nil {
				return fmt.Errorf("ensemble run %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
