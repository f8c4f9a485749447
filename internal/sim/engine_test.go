package sim_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/models"
	"github.com/san-kum/swervesim/internal/sim"
)

func sweep(t float64) dynamo.Command {
	return dynamo.Command{
		Vx:    0.8 * math.Sin(0.3*t),
		Vy:    0.6 * math.Cos(0.23*t),
		Omega: 0.4 * math.Sin(0.17*t),
	}
}

func runTicks(e *sim.Engine, n int) []dynamo.TickRecord {
	src := dynamo.CommandSourceFunc(sweep)
	out := make([]dynamo.TickRecord, n)
	for i := range out {
		out[i] = e.Advance(src)
	}
	return out
}

var _ = Describe("Engine", func() {
	var (
		cfg   sim.Config
		fixed time.Time
	)

	BeforeEach(func() {
		cfg = sim.DefaultConfig()
		fixed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	newEngine := func(c sim.Config, seed int64) *sim.Engine {
		e, err := sim.New(c, sim.WithSeed(seed), sim.WithRunID("run-1"), sim.WithClock(func() time.Time { return fixed }))
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	Describe("construction", func() {
		It("rejects a non-positive period", func() {
			cfg.Dt = 0
			_, err := sim.New(cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		})

		It("rejects invalid physics", func() {
			cfg.Params.MaxSpeed = -1
			_, err := sim.New(cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		})

		It("starts at rest", func() {
			e := newEngine(cfg, 1)
			Expect(e.Tick()).To(BeZero())
			Expect(e.Elapsed()).To(BeZero())
			for _, m := range e.Modules() {
				Expect(m).To(Equal(dynamo.ModuleState{}))
			}
		})
	})

	Describe("Step", func() {
		It("stamps records with tick index, elapsed time and run id", func() {
			e := newEngine(cfg, 1)
			recs := runTicks(e, 10)

			for i, rec := range recs {
				Expect(rec.Tick).To(Equal(int64(i)))
				Expect(rec.Elapsed).To(BeNumerically("~", float64(i)*cfg.Dt, 1e-12))
				Expect(rec.RunID).To(Equal("run-1"))
				Expect(rec.Timestamp).To(Equal(fixed))
			}
			Expect(e.Tick()).To(Equal(int64(10)))
		})

		It("emits the modules in FL, FR, RL, RR order", func() {
			rec := newEngine(cfg, 1).Step(dynamo.Command{Vx: 0.5})
			for i, m := range rec.Modules {
				Expect(m.Module).To(Equal(dynamo.ModuleIDs[i]))
			}
		})

		It("clamps the command before use", func() {
			rec := newEngine(cfg, 1).Step(dynamo.Command{Vx: 3, Vy: -2, Omega: 9})
			Expect(rec.Command).To(Equal(dynamo.Command{Vx: 1, Vy: -1, Omega: 1}))
		})

		It("keeps every invariant over a long run", func() {
			e := newEngine(cfg, 7)
			p := cfg.Params
			for _, rec := range runTicks(e, 4000) {
				Expect(rec.BatteryV).To(BeNumerically(">=", p.FloorVoltage))
				Expect(rec.Yaw).To(And(BeNumerically(">", -180), BeNumerically("<=", 180)))
				for _, m := range rec.Modules {
					Expect(m.MeasSpeed).To(BeNumerically(">=", 0))
					Expect(m.MeasAngle).To(And(BeNumerically(">", -180), BeNumerically("<=", 180)))
				}
			}
			for _, m := range e.Modules() {
				Expect(m.Speed).To(And(BeNumerically(">=", 0), BeNumerically("<=", p.MaxSpeed)))
				Expect(m.Angle).To(And(BeNumerically(">", -180), BeNumerically("<=", 180)))
			}
		})

		It("computes battery voltage from the summed currents", func() {
			rec := newEngine(cfg, 3).Step(dynamo.Command{Vx: 1})
			Expect(rec.BatteryV).To(Equal(models.BatteryVoltage(rec.TotalCurrent(), cfg.Params)))
		})
	})

	Describe("determinism", func() {
		It("repeats the same records for the same seed", func() {
			a := runTicks(newEngine(cfg, 42), 500)
			b := runTicks(newEngine(cfg, 42), 500)
			Expect(a).To(Equal(b))
		})

		It("differs for a different seed", func() {
			a := runTicks(newEngine(cfg, 42), 50)
			b := runTicks(newEngine(cfg, 43), 50)
			Expect(a).NotTo(Equal(b))
		})

		It("gives identical records in parallel mode", func() {
			par := cfg
			par.Parallel = true
			a := runTicks(newEngine(cfg, 9), 500)
			b := runTicks(newEngine(par, 9), 500)
			Expect(a).To(Equal(b))
		})

		It("replays after Reset", func() {
			e := newEngine(cfg, 11)
			first := runTicks(e, 200)
			e.Reset()
			Expect(e.Tick()).To(BeZero())
			Expect(runTicks(e, 200)).To(Equal(first))
		})
	})

	Describe("idle", func() {
		It("settles to zero speed with measurements inside the noise band", func() {
			e := newEngine(cfg, 5)
			var last dynamo.TickRecord
			for i := 0; i < 2000; i++ {
				last = e.Step(dynamo.Command{})
			}
			for i, m := range e.Modules() {
				Expect(m.Speed).To(BeZero())
				Expect(m.Angle).To(BeZero())
				Expect(last.Modules[i].MeasSpeed).To(BeNumerically("<=", cfg.Params.SpeedNoise))
				Expect(math.Abs(last.Modules[i].MeasAngle)).To(BeNumerically("<=", cfg.Params.AngleNoise+1e-3))
			}
		})

		It("holds yaw still without noise", func() {
			quiet := cfg
			quiet.Params = quiet.Params.Noiseless()
			e := newEngine(quiet, 5)
			for i := 0; i < 100; i++ {
				e.Step(dynamo.Command{})
			}
			Expect(e.Chassis().Yaw).To(BeZero())
		})
	})

	Describe("turning", func() {
		It("moves no more than the rate cap per tick", func() {
			quiet := cfg
			quiet.Params = quiet.Params.Noiseless()
			e := newEngine(quiet, 1)
			prev := e.Modules()
			for i := 0; i < 300; i++ {
				e.Step(dynamo.Command{Vx: -1, Omega: 1})
				cur := e.Modules()
				for j := range cur {
					moved := math.Abs(dynamo.AngleError(cur[j].Angle, prev[j].Angle))
					Expect(moved).To(BeNumerically("<=", quiet.Params.MaxTurnRate*quiet.Dt+1e-9))
				}
				prev = cur
			}
		})
	})
})
