package sim

import (
	"math/rand"
	"time"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/models"
)

// Engine owns all mutable drivetrain state for one run and produces one
// TickRecord per Step.
type Engine struct {
	cfg   Config
	runID string
	clock func() time.Time

	rng    dynamo.Rand
	seed   int64
	seeded bool

	modules [dynamo.NumModules]dynamo.ModuleState
	chassis dynamo.ChassisState
	tick    int64
}

type Option func(*Engine)

// WithRand injects the noise source. Reset cannot rewind an injected source.
func WithRand(r dynamo.Rand) Option {
	return func(e *Engine) {
		e.rng = r
		e.seeded = false
	}
}

// WithSeed seeds an engine-owned source; Reset reseeds it.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seeded = true
		e.rng = rand.New(rand.NewSource(seed))
	}
}

func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithClock sets the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, clock: time.Now}
	WithSeed(time.Now().UnixNano())(e)
	for _, opt := range opts {
		opt(e)
	}
	e.resetState()
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) RunID() string { return e.runID }

// Tick is the index the next record will carry.
func (e *Engine) Tick() int64 { return e.tick }

// Elapsed is simulated time at the start of the next tick.
func (e *Engine) Elapsed() float64 { return float64(e.tick) * e.cfg.Dt }

func (e *Engine) Modules() [dynamo.NumModules]dynamo.ModuleState { return e.modules }

func (e *Engine) Chassis() dynamo.ChassisState { return e.chassis }

// Reset restores run-start state.
func (e *Engine) Reset() {
	e.resetState()
	if e.seeded {
		e.rng = rand.New(rand.NewSource(e.seed))
	}
}

func (e *Engine) resetState() {
	init := models.InitialModuleState(e.cfg.Params)
	for i := range e.modules {
		e.modules[i] = init
	}
	e.chassis = dynamo.ChassisState{}
	e.tick = 0
}

// Advance pulls the next command from src and steps once.
func (e *Engine) Advance(src dynamo.CommandSource) dynamo.TickRecord {
	return e.Step(src.Next(e.Elapsed()))
}

// Step advances every module and the chassis by one period.
func (e *Engine) Step(cmd dynamo.Command) dynamo.TickRecord {
	p := e.cfg.Params
	dt := e.cfg.Dt
	cmd = cmd.Clamp()

	sps := models.Setpoints(cmd, p)

	// Draw all noise up front so the draw order is fixed regardless of how
	// the module updates are scheduled.
	yawNoise := dynamo.Uniform(e.rng, p.YawNoise)
	var noise [dynamo.NumModules]models.Noise
	for i := range noise {
		noise[i].Angle = dynamo.Uniform(e.rng, p.AngleNoise)
		noise[i].Speed = dynamo.Uniform(e.rng, p.SpeedNoise)
	}

	e.chassis = models.StepChassis(e.chassis, cmd.Omega, dt, p, yawNoise)

	var mods [dynamo.NumModules]dynamo.ModuleRecord
	update := func(start, end int) {
		for i := start; i < end; i++ {
			mods[i] = models.StepModule(&e.modules[i], sps[i], dt, p, noise[i])
			mods[i].Module = dynamo.ModuleIDs[i]
		}
	}
	if e.cfg.Parallel {
		dynamo.ParallelFor(dynamo.NumModules, 1, update)
	} else {
		update(0, dynamo.NumModules)
	}

	rec := dynamo.TickRecord{
		RunID:     e.runID,
		Tick:      e.tick,
		Elapsed:   e.Elapsed(),
		Timestamp: e.clock(),
		Command:   cmd,
		Yaw:       e.chassis.Yaw,
		Modules:   mods,
	}
	rec.BatteryV = models.BatteryVoltage(rec.TotalCurrent(), p)

	e.tick++
	return rec
}
