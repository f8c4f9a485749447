package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Compile-time interface checks
var (
	_ dynamo.Sink        = (*Store)(nil)
	_ dynamo.RunRecorder = (*Store)(nil)
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(SQLite, filepath.Join(t.TempDir(), "swerve.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(runID string, tick int64) dynamo.TickRecord {
	rec := dynamo.TickRecord{
		RunID:     runID,
		Tick:      tick,
		Elapsed:   float64(tick) * 0.005,
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Add(time.Duration(tick) * 5 * time.Millisecond),
		BatteryV:  11.87,
		Command:   dynamo.Command{Vx: 0.4, Vy: -0.2, Omega: 0.1},
		Yaw:       12.5,
	}
	for i, id := range dynamo.ModuleIDs {
		rec.Modules[i] = dynamo.ModuleRecord{
			Module:       id,
			CmdAngle:     float64(10 * i),
			MeasAngle:    float64(10*i) + 0.25,
			CmdSpeed:     2500,
			MeasSpeed:    2480.5,
			DriveApplied: 0.44,
			TurnApplied:  -0.1,
			DriveCurrent: 17.3,
			TurnCurrent:  3.2,
			DriveTemp:    0.4,
			TurnTemp:     0.1,
		}
	}
	return rec
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x", zerolog.Nop())
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}

func TestMigrate_Tables(t *testing.T) {
	s := newTestStore(t)
	m := s.DB().Migrator()

	for _, table := range []string{"swerve_run", "swerve_tick", "swerve_module_tick"} {
		assert.True(t, m.HasTable(table), table)
	}
	for _, col := range []string{"run_id", "ts", "elapsed_ms", "tick", "battery_v", "vx_cmd", "vy_cmd", "omega_cmd", "yaw_deg"} {
		assert.True(t, m.HasColumn(&Tick{}, col), col)
	}
	for _, col := range []string{"tick_id", "module", "cmd_angle_deg", "meas_angle_deg", "cmd_rpm", "meas_rpm",
		"drive_applied_pct", "turn_applied_pct", "drive_current_a", "turn_current_a", "drive_temp_c", "turn_temp_c"} {
		assert.True(t, m.HasColumn(&ModuleTick{}, col), col)
	}
}

func TestPersist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StartRun(ctx, dynamo.RunInfo{ID: "run-a", StartedAt: time.Now(), Seed: 3, Dt: 0.005}))

	id1, err := s.Persist(ctx, testRecord("run-a", 0))
	require.NoError(t, err)
	id2, err := s.Persist(ctx, testRecord("run-a", 1))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	var mods []ModuleTick
	require.NoError(t, s.DB().Where("tick_id = ?", id2).Order("id").Find(&mods).Error)
	require.Len(t, mods, 4)
	assert.Equal(t, "FL", mods[0].Module)
	assert.Equal(t, "RR", mods[3].Module)
	assert.Equal(t, "run-a", mods[0].RunID)
	assert.InDelta(t, 2480.5, mods[1].MeasRPM, 1e-9)
}

func TestLoadTicks_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := []dynamo.TickRecord{testRecord("run-b", 0), testRecord("run-b", 1), testRecord("run-b", 2)}
	for _, rec := range want {
		_, err := s.Persist(ctx, rec)
		require.NoError(t, err)
	}
	_, err := s.Persist(ctx, testRecord("other", 0))
	require.NoError(t, err)

	got, err := s.LoadTicks(ctx, "run-b")
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i := range want {
		assert.Equal(t, want[i].Tick, got[i].Tick)
		assert.Equal(t, want[i].Modules, got[i].Modules)
		assert.Equal(t, want[i].Command, got[i].Command)
		assert.InDelta(t, want[i].Elapsed, got[i].Elapsed, 1e-9)
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp))
	}
}

func TestPersist_RollsBackOnModuleFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.DB().Callback().Create().Before("gorm:create").Register("test:fail_modules", func(tx *gorm.DB) {
		if tx.Statement.Table == "swerve_module_tick" {
			tx.AddError(boom)
		}
	})
	require.NoError(t, err)

	_, err = s.Persist(ctx, testRecord("run-c", 0))
	require.ErrorIs(t, err, boom)

	var ticks, mods int64
	require.NoError(t, s.DB().Model(&Tick{}).Count(&ticks).Error)
	require.NoError(t, s.DB().Model(&ModuleTick{}).Count(&mods).Error)
	assert.Zero(t, ticks, "tick row must be rolled back")
	assert.Zero(t, mods)
}

func TestPersist_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Persist(ctx, testRecord("run-d", 0))
	assert.Error(t, err)
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.StartRun(ctx, dynamo.RunInfo{ID: "run-e", StartedAt: started, Source: "sinusoidal", MaxTicks: 100}))
	require.NoError(t, s.FinishRun(ctx, dynamo.RunSummary{ID: "run-e", EndedAt: started.Add(time.Minute), Ticks: 100, Persisted: 98, Failed: 2}))

	run, err := s.LoadRun(ctx, "run-e")
	require.NoError(t, err)
	assert.Equal(t, int64(98), run.Persisted)
	assert.Equal(t, "sinusoidal", run.Source)
	require.NotNil(t, run.EndedAt)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = s.LoadRun(ctx, "missing")
	assert.ErrorIs(t, err, dynamo.ErrRunNotFound)
	assert.ErrorIs(t, s.FinishRun(ctx, dynamo.RunSummary{ID: "missing"}), dynamo.ErrRunNotFound)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	require.NoError(t, s.StartRun(ctx, dynamo.RunInfo{ID: "old", StartedAt: old}))
	_, err := s.Persist(ctx, testRecord("old", 0))
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, dynamo.RunSummary{ID: "old", EndedAt: old}))

	require.NoError(t, s.StartRun(ctx, dynamo.RunInfo{ID: "live", StartedAt: time.Now()}))
	_, err = s.Persist(ctx, testRecord("live", 0))
	require.NoError(t, err)

	n, err := s.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	recs, err := s.LoadTicks(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = s.LoadTicks(ctx, "live")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
