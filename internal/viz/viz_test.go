package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/swervesim/internal/control"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/models"
	"github.com/san-kum/swervesim/internal/sim"
)

func testRecord(tick int64) dynamo.TickRecord {
	rec := dynamo.TickRecord{RunID: "viz-run", Tick: tick, BatteryV: 12.2, Yaw: 30}
	for i, id := range dynamo.ModuleIDs {
		rec.Modules[i] = dynamo.ModuleRecord{Module: id, CmdAngle: 45, MeasAngle: 40 + float64(tick), MeasSpeed: 2000, DriveCurrent: 10}
	}
	return rec
}

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(100, 0)

	if c.Grid[0][0] != 0x2801 {
		t.Errorf("cell 0 = %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != 0x2880 {
		t.Errorf("cell 1 = %U", c.Grid[0][1])
	}
	c.Clear()
	if c.String() != "⠀⠀\n" {
		t.Errorf("clear left %q", c.String())
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 0, 7, 0)
	for col := 0; col < 4; col++ {
		if c.Grid[0][col] != 0x2809 {
			t.Errorf("col %d = %U, want both top dots", col, c.Grid[0][col])
		}
	}
}

func TestDrawRobot(t *testing.T) {
	c := NewCanvas(canvasWidth, canvasHeight)
	DrawRobot(c, testRecord(0), 5676)

	lit := 0
	for _, row := range c.Grid {
		for _, r := range row {
			if r != blank {
				lit++
			}
		}
	}
	if lit < 20 {
		t.Errorf("robot barely drawn: %d cells", lit)
	}
}

func TestFeed(t *testing.T) {
	f := NewFeed(3)
	for i := int64(0); i < 5; i++ {
		f.Observe(testRecord(i))
	}

	s := f.Snapshot()
	if s.Count != 5 || s.Last.Tick != 4 {
		t.Errorf("count=%d last=%d", s.Count, s.Last.Tick)
	}
	if len(s.Battery) != 3 || len(s.Angle[dynamo.RR]) != 3 {
		t.Errorf("history not capped: %d", len(s.Battery))
	}
	if s.Angle[dynamo.FL][0] != 42 {
		t.Errorf("oldest kept angle = %v, want 42", s.Angle[dynamo.FL][0])
	}
	if s.Current[0] != 40 {
		t.Errorf("total current = %v", s.Current[0])
	}

	s.Battery[0] = -1
	if f.Snapshot().Battery[0] == -1 {
		t.Error("snapshot shares memory with feed")
	}

	f.Finish(&sim.Result{Ticks: 5}, nil)
	if s := f.Snapshot(); !s.Done || s.Result.Ticks != 5 {
		t.Errorf("finish not recorded: %+v", s)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelKeysSteerManual(t *testing.T) {
	manual := control.NewManual(dynamo.Command{})
	m := NewModel("live", NewFeed(0), manual, nil, models.DefaultParams())

	var tm tea.Model = m
	for _, k := range []string{"up", "w", "a", "z", "z"} {
		tm, _ = tm.Update(key(k))
	}
	got := manual.Next(0)
	if got.Vx < 0.19 || got.Vx > 0.21 || got.Vy < 0.09 || got.Omega < 0.19 {
		t.Errorf("command = %+v", got)
	}

	tm, _ = tm.Update(key(" "))
	if manual.Next(0) != (dynamo.Command{}) {
		t.Errorf("space did not zero: %+v", manual.Next(0))
	}

	tm, _ = tm.Update(key("tab"))
	if tm.(Model).selected != dynamo.FR {
		t.Errorf("selected = %v", tm.(Model).selected)
	}
}

func TestModelQuitCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel("live", NewFeed(0), nil, cancel, models.DefaultParams())

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if ctx.Err() == nil {
		t.Error("q did not cancel the run")
	}
}

func TestModelView(t *testing.T) {
	feed := NewFeed(0)
	for i := int64(0); i < 10; i++ {
		feed.Observe(testRecord(i))
	}
	m := NewModel("match", feed, nil, nil, models.DefaultParams())

	tm, cmd := m.Update(FrameMsg(time.Now()))
	if cmd == nil {
		t.Error("frame should schedule the next frame")
	}
	view := tm.View()
	for _, want := range []string{"MATCH", "viz-run", "RUNNING", "FL", "RR", "12.20 V"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "WASD") {
		t.Error("drive hint shown without a manual source")
	}

	feed.Finish(nil, context.Canceled)
	tm, _ = tm.Update(FrameMsg(time.Now()))
	if !strings.Contains(tm.View(), "FINISHED") {
		t.Error("cancelled run should read as finished")
	}
}
