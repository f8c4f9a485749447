package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/swervesim/internal/control"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/models"
)

const (
	canvasWidth  = 40
	canvasHeight = 18
	frameRate    = 30
	nudgeStep    = 0.1
)

type FrameMsg time.Time

func frame() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return FrameMsg(t) })
}

// Model renders a Feed. Keyboard input steers the run when manual is set.
type Model struct {
	title    string
	feed     *Feed
	manual   *control.Manual
	cancel   context.CancelFunc
	params   models.Params
	snap     Snapshot
	canvas   *Canvas
	theme    Theme
	st       styles
	selected dynamo.ModuleID
	showHelp bool
}

// NewModel builds the dashboard. manual and cancel may be nil.
func NewModel(title string, feed *Feed, manual *control.Manual, cancel context.CancelFunc, params models.Params) Model {
	theme := Themes[0]
	return Model{
		title:  title,
		feed:   feed,
		manual: manual,
		cancel: cancel,
		params: params,
		canvas: NewCanvas(canvasWidth, canvasHeight),
		theme:  theme,
		st:     newStyles(theme),
	}
}

func (m Model) Init() tea.Cmd {
	return frame()
}

func (m Model) nudge(d dynamo.Command) {
	if m.manual != nil {
		m.manual.Nudge(d)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "up", "w":
			m.nudge(dynamo.Command{Vx: nudgeStep})
		case "down", "s":
			m.nudge(dynamo.Command{Vx: -nudgeStep})
		case "left", "a":
			m.nudge(dynamo.Command{Vy: nudgeStep})
		case "right", "d":
			m.nudge(dynamo.Command{Vy: -nudgeStep})
		case "z":
			m.nudge(dynamo.Command{Omega: nudgeStep})
		case "x":
			m.nudge(dynamo.Command{Omega: -nudgeStep})
		case " ":
			if m.manual != nil {
				m.manual.Set(dynamo.Command{})
			}
		case "tab":
			m.selected = (m.selected + 1) % dynamo.NumModules
		case "t":
			m.theme = nextTheme(m.theme)
			m.st = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case FrameMsg:
		m.snap = m.feed.Snapshot()
		m.canvas.Clear()
		if m.snap.Count > 0 {
			DrawRobot(m.canvas, m.snap.Last, m.params.MaxSpeed)
		}
		return m, frame()
	}
	return m, nil
}

func (m Model) status() string {
	switch {
	case !m.snap.Done:
		return m.st.good.Render("RUNNING")
	case m.snap.Err != nil && !errors.Is(m.snap.Err, context.Canceled):
		return m.st.bad.Render("FAILED: " + m.snap.Err.Error())
	}
	return m.st.warn.Render("FINISHED")
}

func (m Model) row(label, value string) string {
	return m.st.label.Render(label) + m.st.value.Render(value) + "\n"
}

func (m Model) View() string {
	rec := m.snap.Last
	var s strings.Builder

	s.WriteString(m.st.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	s.WriteString(m.row("Run", rec.RunID))
	s.WriteString(m.row("Tick", fmt.Sprintf("%d  (%.2fs)", rec.Tick, rec.Elapsed)))
	s.WriteString(m.row("Command", fmt.Sprintf("vx %+.2f  vy %+.2f  ω %+.2f", rec.Command.Vx, rec.Command.Vy, rec.Command.Omega)))
	s.WriteString(m.row("Yaw", fmt.Sprintf("%+.1f°", rec.Yaw)))

	frac := 0.0
	if span := m.params.NominalVoltage - m.params.FloorVoltage; span > 0 {
		frac = (rec.BatteryV - m.params.FloorVoltage) / span
	}
	s.WriteString(m.st.label.Render("Battery") + m.st.ProgressBar(frac, 16) + m.st.value.Render(fmt.Sprintf(" %.2f V", rec.BatteryV)) + "\n\n")

	s.WriteString(m.st.label.Render("") + m.st.label.Render("angle") + m.st.label.Render("rpm") + m.st.label.Render("amps") + m.st.label.Render("°C") + "\n")
	for i, mod := range rec.Modules {
		line := fmt.Sprintf("%-12s%-12s%-12s%-12s%s",
			dynamo.ModuleID(i),
			fmt.Sprintf("%+7.1f", mod.MeasAngle),
			fmt.Sprintf("%7.0f", mod.MeasSpeed),
			fmt.Sprintf("%5.1f", mod.DriveCurrent+mod.TurnCurrent),
			fmt.Sprintf("%4.1f", mod.DriveTemp+mod.TurnTemp))
		if dynamo.ModuleID(i) == m.selected {
			s.WriteString(m.st.active.Render(line) + "\n")
		} else {
			s.WriteString(m.st.value.Render(line) + "\n")
		}
	}

	if cmd, meas := m.snap.CmdAngle[m.selected], m.snap.Angle[m.selected]; len(meas) > 1 {
		chart := asciigraph.PlotMany([][]float64{cmd, meas},
			asciigraph.Height(5), asciigraph.Width(40),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green),
			asciigraph.Caption(m.selected.String()+" angle: command vs measured"))
		s.WriteString("\n" + m.st.graph.Render(chart) + "\n")
	}
	if len(m.snap.Current) > 1 {
		chart := asciigraph.Plot(m.snap.Current, asciigraph.Height(3), asciigraph.Width(40), asciigraph.Caption("total current (A)"))
		s.WriteString("\n" + m.st.graph.Render(chart) + "\n")
	}

	hint := "Q:Quit  Tab:Module  T:Theme  ?:Help"
	if m.manual != nil {
		hint = "WASD:Drive  Z/X:Rotate  Space:Stop\n" + hint
	}
	s.WriteString(m.st.help.Render(hint))

	main := lipgloss.JoinHorizontal(lipgloss.Top, m.st.canvas.Render(m.canvas.String()), m.st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + main
	}
	return main
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  W/S ↑/↓  - Drive forward / back     ║
║  A/D ←/→  - Strafe left / right      ║
║  Z/X      - Rotate left / right      ║
║  Space    - Zero the command         ║
║  Tab      - Cycle plotted module     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Stop the run and quit    ║
╚══════════════════════════════════════╝`
