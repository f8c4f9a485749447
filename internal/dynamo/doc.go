// Package dynamo provides the core data model and numeric primitives for the
// swerve drivetrain simulator.
//
// The package defines the types that flow through one simulation tick and the
// contracts of the collaborators around the engine:
//
//   - [Command]: high-level motion command (vx, vy, omega) in [-1, 1]
//   - [Setpoint]: per-module target angle and speed
//   - [ModuleState], [ChassisState]: persistent state owned by the engine
//   - [TickRecord], [ModuleRecord]: immutable emission of one tick
//   - [CommandSource]: produces commands from elapsed time
//   - [Sink]: persists tick records transactionally
//   - [Metric]: summarises a run from its tick records
//
// # Angles
//
// All angles are degrees. [WrapDeg] normalises any value into (-180, 180] and
// [AngleError] gives the shortest signed rotation from current to target.
//
// # Thread Safety
//
// Values in this package are plain data. Sinks document their own
// concurrency guarantees; the engine never calls a sink concurrently.
package dynamo
