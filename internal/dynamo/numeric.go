package dynamo

import "math"

// minTau keeps time constants away from zero.
const minTau = 1e-6

// WrapDeg maps any angle in degrees into (-180, 180].
func WrapDeg(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}

// AngleError returns the shortest signed rotation from current to target.
func AngleError(target, current float64) float64 {
	return WrapDeg(target - current)
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// LagFraction is the per-step fraction of a first-order lag, capped at 1.
func LagFraction(tau, dt float64) float64 {
	return math.Min(1, dt/math.Max(tau, minTau))
}

// FirstOrderStep moves current toward target by one step of a first-order lag.
func FirstOrderStep(current, target, tau, dt float64) float64 {
	return current + (target-current)*LagFraction(tau, dt)
}

// Uniform draws from [-amp, amp).
func Uniform(r Rand, amp float64) float64 {
	return (r.Float64()*2 - 1) * amp
}

// Round rounds half away from zero to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
