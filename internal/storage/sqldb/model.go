package sqldb

import (
	"time"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Run is one simulation run.
type Run struct {
	ID        string `gorm:"primaryKey;size:36"`
	StartedAt time.Time
	EndedAt   *time.Time
	Seed      int64
	Dt        float64
	Duration  float64
	MaxTicks  int64
	Source    string `gorm:"size:64"`
	Ticks     int64
	Persisted int64
	Failed    int64
}

func (Run) TableName() string { return "swerve_run" }

// Tick is one row per simulated tick.
type Tick struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	RunID     string    `gorm:"size:36;index:idx_swerve_tick_run,priority:1"`
	Ts        time.Time `gorm:"column:ts"`
	ElapsedMS int64     `gorm:"column:elapsed_ms"`
	Tick      int64     `gorm:"column:tick;index:idx_swerve_tick_run,priority:2"`
	BatteryV  float64   `gorm:"column:battery_v"`
	VxCmd     float64   `gorm:"column:vx_cmd"`
	VyCmd     float64   `gorm:"column:vy_cmd"`
	OmegaCmd  float64   `gorm:"column:omega_cmd"`
	YawDeg    float64   `gorm:"column:yaw_deg"`

	Modules []ModuleTick `gorm:"foreignKey:TickID"`
}

func (Tick) TableName() string { return "swerve_tick" }

// ModuleTick is one row per module per tick, keyed to its Tick.
type ModuleTick struct {
	ID              int64   `gorm:"primaryKey;autoIncrement"`
	RunID           string  `gorm:"size:36;index"`
	TickID          int64   `gorm:"column:tick_id;index"`
	Module          string  `gorm:"column:module;size:2"`
	CmdAngleDeg     float64 `gorm:"column:cmd_angle_deg"`
	MeasAngleDeg    float64 `gorm:"column:meas_angle_deg"`
	CmdRPM          float64 `gorm:"column:cmd_rpm"`
	MeasRPM         float64 `gorm:"column:meas_rpm"`
	DriveAppliedPct float64 `gorm:"column:drive_applied_pct"`
	TurnAppliedPct  float64 `gorm:"column:turn_applied_pct"`
	DriveCurrentA   float64 `gorm:"column:drive_current_a"`
	TurnCurrentA    float64 `gorm:"column:turn_current_a"`
	DriveTempC      float64 `gorm:"column:drive_temp_c"`
	TurnTempC       float64 `gorm:"column:turn_temp_c"`
}

func (ModuleTick) TableName() string { return "swerve_module_tick" }

// Models lists every table for migration.
var Models = []any{&Run{}, &Tick{}, &ModuleTick{}}

func tickFromRecord(rec dynamo.TickRecord) *Tick {
	return &Tick{
		RunID:     rec.RunID,
		Ts:        rec.Timestamp,
		ElapsedMS: rec.ElapsedMS(),
		Tick:      rec.Tick,
		BatteryV:  rec.BatteryV,
		VxCmd:     rec.Command.Vx,
		VyCmd:     rec.Command.Vy,
		OmegaCmd:  rec.Command.Omega,
		YawDeg:    rec.Yaw,
	}
}

func moduleFromRecord(runID string, tickID int64, m dynamo.ModuleRecord) ModuleTick {
	return ModuleTick{
		RunID:           runID,
		TickID:          tickID,
		Module:          m.Module.String(),
		CmdAngleDeg:     m.CmdAngle,
		MeasAngleDeg:    m.MeasAngle,
		CmdRPM:          m.CmdSpeed,
		MeasRPM:         m.MeasSpeed,
		DriveAppliedPct: m.DriveApplied,
		TurnAppliedPct:  m.TurnApplied,
		DriveCurrentA:   m.DriveCurrent,
		TurnCurrentA:    m.TurnCurrent,
		DriveTempC:      m.DriveTemp,
		TurnTempC:       m.TurnTemp,
	}
}

// Record converts a stored tick, with its modules preloaded, back into a
// TickRecord.
func (t *Tick) Record() (dynamo.TickRecord, error) {
	rec := dynamo.TickRecord{
		RunID:     t.RunID,
		Tick:      t.Tick,
		Elapsed:   float64(t.ElapsedMS) / 1000,
		Timestamp: t.Ts,
		BatteryV:  t.BatteryV,
		Command:   dynamo.Command{Vx: t.VxCmd, Vy: t.VyCmd, Omega: t.OmegaCmd},
		Yaw:       t.YawDeg,
	}
	for _, m := range t.Modules {
		id, err := dynamo.ParseModuleID(m.Module)
		if err != nil {
			return rec, err
		}
		rec.Modules[id] = dynamo.ModuleRecord{
			Module:       id,
			CmdAngle:     m.CmdAngleDeg,
			MeasAngle:    m.MeasAngleDeg,
			CmdSpeed:     m.CmdRPM,
			MeasSpeed:    m.MeasRPM,
			DriveApplied: m.DriveAppliedPct,
			TurnApplied:  m.TurnAppliedPct,
			DriveCurrent: m.DriveCurrentA,
			TurnCurrent:  m.TurnCurrentA,
			DriveTemp:    m.DriveTempC,
			TurnTemp:     m.TurnTempC,
		}
	}
	return rec, nil
}
