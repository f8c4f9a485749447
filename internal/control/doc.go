// Package control provides command sources that drive the drivetrain.
//
// Every source implements [dynamo.CommandSource]; the engine asks for a
// command once per tick with the simulated elapsed time:
//
//   - [Sinusoidal]: the default match pattern of three detuned sine waves
//   - [Manual]: a command set from outside, e.g. keyboard input
//   - [Idle]: all zeros
//   - [Step]: zero until a start time, then a fixed command
//   - [Sequence]: time-segmented list of other sources
//
// # Usage
//
//	src := control.NewSinusoidal()
//	rec := engine.Advance(src)
//
// Outputs are always clamped to [-1, 1].
package control
