package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/swervesim/internal/dynamo"
)

var tickFields = map[string]func(dynamo.TickRecord) float64{
	"battery_v": func(r dynamo.TickRecord) float64 { return r.BatteryV },
	"yaw_deg":   func(r dynamo.TickRecord) float64 { return r.Yaw },
	"vx_cmd":    func(r dynamo.TickRecord) float64 { return r.Command.Vx },
	"vy_cmd":    func(r dynamo.TickRecord) float64 { return r.Command.Vy },
	"omega_cmd": func(r dynamo.TickRecord) float64 { return r.Command.Omega },
	"current_a": func(r dynamo.TickRecord) float64 { return r.TotalCurrent() },
	"elapsed_s": func(r dynamo.TickRecord) float64 { return r.Elapsed },
}

var moduleFields = map[string]func(dynamo.ModuleRecord) float64{
	"cmd_angle_deg":     func(m dynamo.ModuleRecord) float64 { return m.CmdAngle },
	"meas_angle_deg":    func(m dynamo.ModuleRecord) float64 { return m.MeasAngle },
	"cmd_rpm":           func(m dynamo.ModuleRecord) float64 { return m.CmdSpeed },
	"meas_rpm":          func(m dynamo.ModuleRecord) float64 { return m.MeasSpeed },
	"drive_applied_pct": func(m dynamo.ModuleRecord) float64 { return m.DriveApplied },
	"turn_applied_pct":  func(m dynamo.ModuleRecord) float64 { return m.TurnApplied },
	"drive_current_a":   func(m dynamo.ModuleRecord) float64 { return m.DriveCurrent },
	"turn_current_a":    func(m dynamo.ModuleRecord) float64 { return m.TurnCurrent },
	"drive_temp_c":      func(m dynamo.ModuleRecord) float64 { return m.DriveTemp },
	"turn_temp_c":       func(m dynamo.ModuleRecord) float64 { return m.TurnTemp },
}

// Series extracts one named column from recs. Tick fields are plain names
// ("battery_v"); module fields are prefixed with the module ("FL.meas_rpm").
func Series(recs []dynamo.TickRecord, name string) ([]float64, error) {
	if f, ok := tickFields[name]; ok {
		out := make([]float64, len(recs))
		for i, r := range recs {
			out[i] = f(r)
		}
		return out, nil
	}

	mod, field, ok := strings.Cut(name, ".")
	if !ok {
		return nil, fmt.Errorf("unknown series %q", name)
	}
	id, err := dynamo.ParseModuleID(mod)
	if err != nil {
		return nil, err
	}
	f, ok := moduleFields[field]
	if !ok {
		return nil, fmt.Errorf("unknown module field %q", field)
	}

	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = f(r.Modules[id])
	}
	return out, nil
}

// SeriesNames lists every name Series accepts.
func SeriesNames() []string {
	names := make([]string, 0, len(tickFields)+dynamo.NumModules*len(moduleFields))
	for n := range tickFields {
		names = append(names, n)
	}
	for _, id := range dynamo.ModuleIDs {
		for f := range moduleFields {
			names = append(names, id.String()+"."+f)
		}
	}
	sort.Strings(names)
	return names
}
