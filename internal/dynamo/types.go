package dynamo

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ModuleID names one of the four swerve modules.
type ModuleID int

const (
	FL ModuleID = iota
	FR
	RL
	RR
)

// NumModules is the size of the closed module set.
const NumModules = 4

// ModuleIDs lists the modules in emission order.
var ModuleIDs = [NumModules]ModuleID{FL, FR, RL, RR}

var moduleNames = [NumModules]string{"FL", "FR", "RL", "RR"}

func (m ModuleID) String() string {
	if m < 0 || int(m) >= NumModules {
		return fmt.Sprintf("ModuleID(%d)", int(m))
	}
	return moduleNames[m]
}

// ParseModuleID accepts a module name, case-insensitively.
func ParseModuleID(s string) (ModuleID, error) {
	for i, name := range moduleNames {
		if strings.EqualFold(s, name) {
			return ModuleID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModule, s)
}

func (m ModuleID) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ModuleID) UnmarshalText(b []byte) error {
	id, err := ParseModuleID(string(b))
	if err != nil {
		return err
	}
	*m = id
	return nil
}

// Command is a dimensionless motion command, each component in [-1, 1].
type Command struct {
	Vx    float64 `json:"vx"`
	Vy    float64 `json:"vy"`
	Omega float64 `json:"omega"`
}

// Clamp returns the command with every component limited to [-1, 1].
func (c Command) Clamp() Command {
	return Command{
		Vx:    Clamp(c.Vx, -1, 1),
		Vy:    Clamp(c.Vy, -1, 1),
		Omega: Clamp(c.Omega, -1, 1),
	}
}

type Setpoint struct {
	Angle float64
	Speed float64
}

// ModuleState persists across ticks and is mutated only by the module model.
type ModuleState struct {
	Angle     float64
	Speed     float64
	DriveTemp float64
	TurnTemp  float64
}

type ChassisState struct {
	Yaw float64
}

// ModuleRecord is the observable output of one module for one tick.
type ModuleRecord struct {
	Module       ModuleID `json:"module"`
	CmdAngle     float64  `json:"cmd_angle_deg"`
	CmdSpeed     float64  `json:"cmd_rpm"`
	MeasAngle    float64  `json:"meas_angle_deg"`
	MeasSpeed    float64  `json:"meas_rpm"`
	DriveApplied float64  `json:"drive_applied_pct"`
	TurnApplied  float64  `json:"turn_applied_pct"`
	DriveCurrent float64  `json:"drive_current_a"`
	TurnCurrent  float64  `json:"turn_current_a"`
	DriveTemp    float64  `json:"drive_temp_c"`
	TurnTemp     float64  `json:"turn_temp_c"`
}

// TickRecord is one tick's emission. It is passed by value and never
// modified after the engine assembles it.
type TickRecord struct {
	RunID     string                   `json:"run_id"`
	Tick      int64                    `json:"tick"`
	Elapsed   float64                  `json:"elapsed_s"`
	Timestamp time.Time                `json:"ts"`
	BatteryV  float64                  `json:"battery_v"`
	Command   Command                  `json:"command"`
	Yaw       float64                  `json:"yaw_deg"`
	Modules   [NumModules]ModuleRecord `json:"modules"`
}

// ElapsedMS is the elapsed stamp in whole milliseconds.
func (r TickRecord) ElapsedMS() int64 {
	return int64(r.Elapsed*1000 + 0.5)
}

// TotalCurrent sums drive and turn current over all modules.
func (r TickRecord) TotalCurrent() float64 {
	total := 0.0
	for _, m := range r.Modules {
		total += m.DriveCurrent + m.TurnCurrent
	}
	return total
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Seed      int64     `json:"seed"`
	Dt        float64   `json:"dt"`
	Duration  float64   `json:"duration"`
	MaxTicks  int64     `json:"max_ticks"`
	Source    string    `json:"source"`
}

// RunSummary describes a run when it ends.
type RunSummary struct {
	ID        string             `json:"id"`
	EndedAt   time.Time          `json:"ended_at"`
	Ticks     int64              `json:"ticks"`
	Persisted int64              `json:"persisted"`
	Failed    int64              `json:"failed"`
	Metrics   map[string]float64 `json:"metrics"`
}

type CommandSource interface {
	Next(elapsed float64) Command
}

// CommandSourceFunc adapts a plain function to CommandSource.
type CommandSourceFunc func(elapsed float64) Command

func (f CommandSourceFunc) Next(elapsed float64) Command { return f(elapsed) }

// Sink persists tick records. Persist must be atomic per tick: either the
// tick row and all module rows are stored, or none are. The returned id is
// the storage identifier module rows reference.
type Sink interface {
	Persist(ctx context.Context, rec TickRecord) (int64, error)
	Close() error
}

// RunRecorder is implemented by sinks that keep per-run metadata.
type RunRecorder interface {
	StartRun(ctx context.Context, info RunInfo) error
	FinishRun(ctx context.Context, summary RunSummary) error
}

type Metric interface {
	Name() string
	Observe(rec TickRecord)
	Value() float64
	Reset()
}

// Rand is the randomness the engine draws noise from.
type Rand interface {
	Float64() float64
}
