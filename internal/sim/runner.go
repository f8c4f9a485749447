package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/logging"
)

// DefaultLogEvery is how often the runner logs a progress line.
const DefaultLogEvery = 100

// Runner drives an Engine against a Sink: it paces ticks, counts them,
// decides when the run ends and recovers from sink failures.
type Runner struct {
	engine      *Engine
	sink        dynamo.Sink
	pacer       Pacer
	log         zerolog.Logger
	failLog     zerolog.Logger
	metrics     []dynamo.Metric
	observers   []func(dynamo.TickRecord)
	logEvery    int64
	maxFailures int
	inst        *instruments
}

type RunnerOption func(*Runner)

func WithPacer(p Pacer) RunnerOption {
	return func(r *Runner) { r.pacer = p }
}

func WithLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

func WithMetrics(ms ...dynamo.Metric) RunnerOption {
	return func(r *Runner) { r.metrics = append(r.metrics, ms...) }
}

// WithObserver registers fn to see every tick after it is assembled,
// whether or not the sink stored it.
func WithObserver(fn func(dynamo.TickRecord)) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, fn) }
}

// WithLogEvery sets the progress interval in ticks; 0 disables it.
func WithLogEvery(n int64) RunnerOption {
	return func(r *Runner) { r.logEvery = n }
}

// WithMaxFailures aborts the run after n consecutive sink failures; 0 never
// aborts.
func WithMaxFailures(n int) RunnerOption {
	return func(r *Runner) { r.maxFailures = n }
}

func NewRunner(engine *Engine, sink dynamo.Sink, opts ...RunnerOption) (*Runner, error) {
	inst, err := newInstruments(meter())
	if err != nil {
		return nil, err
	}

	r := &Runner{
		engine:   engine,
		sink:     sink,
		pacer:    NoPacing{},
		log:      zerolog.Nop(),
		logEvery: DefaultLogEvery,
		inst:     inst,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.failLog = logging.Sampled(r.log)
	return r, nil
}

// Run executes ticks until a limit is reached, ctx is cancelled or the sink
// fails too often. The sink is closed before Run returns. On cancellation
// the partial result is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context, src dynamo.CommandSource, info dynamo.RunInfo, limits Limits) (res *Result, err error) {
	defer func() {
		if cerr := r.sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close sink: %w", cerr))
		}
	}()

	if err := limits.Validate(); err != nil {
		return nil, err
	}

	recorder, _ := r.sink.(dynamo.RunRecorder)
	if recorder != nil {
		if err := recorder.StartRun(ctx, info); err != nil {
			return nil, fmt.Errorf("start run %s: %w", info.ID, err)
		}
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	dt := r.engine.Config().Dt
	runID := r.engine.RunID()
	attr := runAttr(runID)
	res = &Result{RunID: runID, Metrics: make(map[string]float64)}

	r.log.Info().
		Str("run_id", runID).
		Float64("duration", limits.Duration).
		Int64("max_ticks", limits.MaxTicks).
		Msg("run started")

	var runErr error
	consecutive := 0

	for !limits.done(res.Ticks, dt) {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		rec := r.engine.Advance(src)
		res.Ticks++
		res.Last = rec
		res.Elapsed = rec.Elapsed + dt

		for _, m := range r.metrics {
			m.Observe(rec)
		}
		for _, fn := range r.observers {
			fn(rec)
		}
		r.inst.ticks.Add(ctx, 1, attr)

		start := time.Now()
		_, perr := r.sink.Persist(ctx, rec)
		r.inst.persist.Record(ctx, float64(time.Since(start).Microseconds())/1000, attr)

		if perr != nil {
			res.Failed++
			consecutive++
			r.inst.failures.Add(ctx, 1, attr)
			perr = &dynamo.PersistError{RunID: runID, Tick: rec.Tick, Wrapped: perr}
			r.failLog.Warn().Err(perr).Int("consecutive", consecutive).Msg("tick not persisted")

			if r.maxFailures > 0 && consecutive >= r.maxFailures {
				runErr = fmt.Errorf("%w: %d in a row: %w", dynamo.ErrSinkFailures, consecutive, perr)
				break
			}
		} else {
			res.Persisted++
			consecutive = 0
		}

		if r.logEvery > 0 && rec.Tick%r.logEvery == 0 {
			r.log.Info().
				Int64("tick", rec.Tick).
				Float64("battery", rec.BatteryV).
				Int64("persisted", res.Persisted).
				Msg("progress")
		}

		if limits.done(res.Ticks, dt) {
			break
		}
		if err := r.pacer.Wait(ctx); err != nil {
			runErr = err
			break
		}
	}

	for _, m := range r.metrics {
		res.Metrics[m.Name()] = m.Value()
	}

	if recorder != nil {
		summary := dynamo.RunSummary{
			ID:        info.ID,
			EndedAt:   time.Now(),
			Ticks:     res.Ticks,
			Persisted: res.Persisted,
			Failed:    res.Failed,
			Metrics:   res.Metrics,
		}
		if err := recorder.FinishRun(context.WithoutCancel(ctx), summary); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("finish run %s: %w", info.ID, err))
		}
	}

	r.log.Info().
		Str("run_id", runID).
		Int64("ticks", res.Ticks).
		Int64("persisted", res.Persisted).
		Int64("failed", res.Failed).
		Msg("run finished")

	return res, runErr
}
