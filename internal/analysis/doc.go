// Package analysis summarises telemetry series recorded by a run.
//
//   - [PowerSpectrum]: one-sided FFT magnitude of a series
//   - [DominantFrequency]: strongest non-DC component, in Hz
//   - [Summarize]: mean, spread, extremes and percentiles
//   - [Correlation]: how closely a measured series follows its command
//
// A sinusoidal drive command shows up as a single dominant peak:
//
//	vx, _ := store.Series(recs, "vx_cmd")
//	hz, _ := analysis.DominantFrequency(vx, 0.005)
package analysis
