package dynamo

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestModuleID_String(t *testing.T) {
	want := []string{"FL", "FR", "RL", "RR"}
	for i, id := range ModuleIDs {
		if id.String() != want[i] {
			t.Errorf("ModuleIDs[%d].String() = %q, want %q", i, id.String(), want[i])
		}
	}
	if got := ModuleID(9).String(); got != "ModuleID(9)" {
		t.Errorf("out of range String() = %q", got)
	}
}

func TestParseModuleID(t *testing.T) {
	id, err := ParseModuleID("rl")
	if err != nil {
		t.Fatalf("ParseModuleID: %v", err)
	}
	if id != RL {
		t.Errorf("expected RL, got %v", id)
	}

	_, err = ParseModuleID("XX")
	if !errors.Is(err, ErrUnknownModule) {
		t.Errorf("expected ErrUnknownModule, got %v", err)
	}
}

func TestCommand_Clamp(t *testing.T) {
	c := Command{Vx: 2, Vy: -3, Omega: 0.5}.Clamp()
	if c.Vx != 1 || c.Vy != -1 || c.Omega != 0.5 {
		t.Errorf("Clamp() = %+v", c)
	}
}

func TestTickRecord_TotalCurrent(t *testing.T) {
	var rec TickRecord
	for i := range rec.Modules {
		rec.Modules[i].DriveCurrent = 10
		rec.Modules[i].TurnCurrent = 2.5
	}
	if got := rec.TotalCurrent(); got != 50 {
		t.Errorf("TotalCurrent() = %v, want 50", got)
	}

	rec.Elapsed = 1.2345
	if got := rec.ElapsedMS(); got != 1235 {
		t.Errorf("ElapsedMS() = %d, want 1235", got)
	}
}

func TestPersistError(t *testing.T) {
	base := errors.New("disk full")
	err := &PersistError{RunID: "r1", Tick: 7, Wrapped: base}

	if !errors.Is(err, base) {
		t.Error("PersistError does not unwrap")
	}
	if err.Error() != "persist tick 7 of run r1: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestParallelFor(t *testing.T) {
	var visited [NumModules]int32
	ParallelFor(NumModules, 1, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&visited[i], 1)
		}
	})

	for i, v := range visited {
		if v != 1 {
			t.Errorf("index %d visited %d times", i, v)
		}
	}
}

func TestParallelFor_SmallRange(t *testing.T) {
	calls := 0
	ParallelFor(1, 4, func(start, end int) {
		calls++
		if start != 0 || end != 1 {
			t.Errorf("unexpected chunk [%d, %d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected a single inline call, got %d", calls)
	}
}
