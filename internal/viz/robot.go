package viz

import (
	"math"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// module corners in the robot frame, x forward and y left
var corners = [dynamo.NumModules][2]float64{
	dynamo.FL: {1, 1},
	dynamo.FR: {1, -1},
	dynamo.RL: {-1, 1},
	dynamo.RR: {-1, -1},
}

// DrawRobot draws the chassis from above, forward pointing up at zero yaw,
// with one vector per wheel: direction is the measured angle and length is
// the measured speed relative to maxRPM.
func DrawRobot(c *Canvas, rec dynamo.TickRecord, maxRPM float64) {
	w, h := c.Pixels()
	cx, cy := float64(w)/2, float64(h)/2
	half := math.Min(cx, cy) * 0.55
	wheel := half * 0.9

	yaw := rec.Yaw * math.Pi / 180
	sin, cos := math.Sincos(yaw)

	// robot frame to screen: rotate by yaw, then forward is up and left is left
	screen := func(x, y float64) (float64, float64) {
		rx := x*cos - y*sin
		ry := x*sin + y*cos
		return cx - ry, cy - rx
	}

	var px, py [dynamo.NumModules]float64
	for i, p := range corners {
		px[i], py[i] = screen(p[0]*half, p[1]*half)
	}
	for _, e := range [][2]dynamo.ModuleID{{dynamo.FL, dynamo.FR}, {dynamo.FR, dynamo.RR}, {dynamo.RR, dynamo.RL}, {dynamo.RL, dynamo.FL}} {
		c.Line(px[e[0]], py[e[0]], px[e[1]], py[e[1]])
	}

	// heading marker
	hx, hy := screen(half*1.25, 0)
	c.Dot(hx, hy, 1)

	for i, m := range rec.Modules {
		c.Dot(px[i], py[i], 1)
		frac := 0.0
		if maxRPM > 0 {
			frac = dynamo.Clamp(m.MeasSpeed/maxRPM, -1, 1)
		}
		a := m.MeasAngle * math.Pi / 180
		s, co := math.Sincos(a)
		ex, ey := screen(corners[i][0]*half+co*wheel*frac, corners[i][1]*half+s*wheel*frac)
		c.Line(px[i], py[i], ex, ey)
	}
}
