// Package export renders stored telemetry series as standalone SVG.
package export

import (
	"fmt"
	"html"
	"strings"
)

// Palette is cycled through for series without a color.
var Palette = []string{"#00ff00", "#00bfff", "#ff8c00", "#ff1493", "#ffd700", "#9370db"}

type Series struct {
	Name   string
	Values []float64
	Color  string
}

// SeriesToSVG draws every series against times on shared axes. Series
// shorter than times are drawn up to their length.
func SeriesToSVG(times []float64, series []Series, width, height int) string {
	if len(times) < 2 || len(series) == 0 {
		return ""
	}

	minX, maxX := times[0], times[len(times)-1]
	minY, maxY := 0.0, 0.0
	first := true
	for _, s := range series {
		for i, v := range s.Values {
			if i >= len(times) {
				break
			}
			if first {
				minY, maxY = v, v
				first = false
			}
			minY = min(minY, v)
			maxY = max(maxY, v)
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	if minY < 0 && maxY > 0 {
		zero := float64(height) - (0-minY)/rangeY*float64(height)
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#333333" stroke-width="1"/>
`, zero, width, zero)
	}

	for n, s := range series {
		if len(s.Values) < 2 {
			continue
		}
		color := s.Color
		if color == "" {
			color = Palette[n%len(Palette)]
		}

		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color)
		for i, v := range s.Values {
			if i >= len(times) {
				break
			}
			x := (times[i] - minX) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")

		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16+14*n, color, html.EscapeString(s.Name))
	}

	fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="#888888" font-family="monospace" font-size="10" text-anchor="end">%.4g..%.4g</text>
`, width-4, height-4, minY, maxY)
	sb.WriteString("</svg>")
	return sb.String()
}
