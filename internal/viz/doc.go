// Package viz is the live terminal dashboard for a running simulation.
//
// A [Feed] is registered as a runner observer and buffers recent ticks; the
// Bubble Tea [Model] polls it at a fixed frame rate and draws the chassis
// from above on a Braille [Canvas], with each wheel's heading and speed.
//
// # Key Bindings
//
//	W/S ↑/↓  - drive forward/back (manual source only)
//	A/D ←/→  - strafe left/right
//	Z/X      - rotate left/right
//	Space    - zero the command
//	Tab      - cycle the plotted module
//	T        - cycle color themes
//	?        - show help overlay
//	Q        - stop the run and quit
package viz
