package control

import (
	"sync"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Manual returns whatever command was last set. Set may be called from a
// different goroutine than Next, e.g. a UI reading the keyboard.
type Manual struct {
	mu  sync.RWMutex
	cmd dynamo.Command
}

func NewManual(cmd dynamo.Command) *Manual {
	return &Manual{cmd: cmd.Clamp()}
}

// NewConstant is a Manual that is never changed.
func NewConstant(vx, vy, omega float64) *Manual {
	return NewManual(dynamo.Command{Vx: vx, Vy: vy, Omega: omega})
}

// Set updates the command.
func (m *Manual) Set(cmd dynamo.Command) {
	m.mu.Lock()
	m.cmd = cmd.Clamp()
	m.mu.Unlock()
}

// Nudge adds a delta to the current command.
func (m *Manual) Nudge(d dynamo.Command) dynamo.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmd = dynamo.Command{
		Vx:    m.cmd.Vx + d.Vx,
		Vy:    m.cmd.Vy + d.Vy,
		Omega: m.cmd.Omega + d.Omega,
	}.Clamp()
	return m.cmd
}

func (m *Manual) Next(float64) dynamo.Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cmd
}
