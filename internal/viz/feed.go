package viz

import (
	"sync"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/sim"
)

const historyCapacity = 600

// Feed buffers the latest ticks of a run for the dashboard. Observe is
// called from the simulation goroutine, Snapshot from the UI.
type Feed struct {
	mu       sync.Mutex
	capacity int
	last     dynamo.TickRecord
	count    int64
	battery  []float64
	current  []float64
	cmdAngle [dynamo.NumModules][]float64
	angle    [dynamo.NumModules][]float64
	done     bool
	result   *sim.Result
	err      error
}

// NewFeed keeps capacity ticks of history; 0 uses the default.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = historyCapacity
	}
	return &Feed{capacity: capacity}
}

// Snapshot is a copy of the feed safe to read without the lock.
type Snapshot struct {
	Last     dynamo.TickRecord
	Count    int64
	Battery  []float64
	Current  []float64
	CmdAngle [dynamo.NumModules][]float64
	Angle    [dynamo.NumModules][]float64
	Done     bool
	Result   *sim.Result
	Err      error
}

func (f *Feed) push(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > f.capacity {
		s = s[len(s)-f.capacity:]
	}
	return s
}

// Observe matches the signature sim.WithObserver expects.
func (f *Feed) Observe(rec dynamo.TickRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = rec
	f.count++
	f.battery = f.push(f.battery, rec.BatteryV)
	f.current = f.push(f.current, rec.TotalCurrent())
	for i, m := range rec.Modules {
		f.cmdAngle[i] = f.push(f.cmdAngle[i], m.CmdAngle)
		f.angle[i] = f.push(f.angle[i], m.MeasAngle)
	}
}

// Finish records how the run ended.
func (f *Feed) Finish(res *sim.Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done, f.result, f.err = true, res, err
}

func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		Last:    f.last,
		Count:   f.count,
		Battery: append([]float64(nil), f.battery...),
		Current: append([]float64(nil), f.current...),
		Done:    f.done,
		Result:  f.result,
		Err:     f.err,
	}
	for i := range f.angle {
		s.CmdAngle[i] = append([]float64(nil), f.cmdAngle[i]...)
		s.Angle[i] = append([]float64(nil), f.angle[i]...)
	}
	return s
}
