package dynamo

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/onsi/gomega"
)

func TestWrapDeg(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{360, 0},
		{540, 180},
		{-540, 180},
		{720.5, 0.5},
		{-359, 1},
	}

	for _, tt := range tests {
		if got := WrapDeg(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapDeg(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWrapDeg_RangeAndIdempotent(t *testing.T) {
	g := NewWithT(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 10000; i++ {
		x := (rng.Float64()*2 - 1) * 1e6
		w := WrapDeg(x)
		g.Expect(w).To(BeNumerically(">", -180), "x=%v", x)
		g.Expect(w).To(BeNumerically("<=", 180), "x=%v", x)
		g.Expect(WrapDeg(w)).To(Equal(w), "x=%v", x)
	}
}

func TestAngleError(t *testing.T) {
	tests := []struct {
		target, current, want float64
	}{
		{170, -170, -20},
		{-170, 170, 20},
		{90, 0, 90},
		{0, 90, -90},
		{180, 0, 180},
		{45, 45, 0},
	}

	for _, tt := range tests {
		got := AngleError(tt.target, tt.current)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngleError(%v, %v) = %v, want %v", tt.target, tt.current, got, tt.want)
		}
		if math.Abs(got-WrapDeg(tt.target-tt.current)) > 1e-12 {
			t.Errorf("AngleError(%v, %v) differs from WrapDeg of difference", tt.target, tt.current)
		}
	}
}

func TestClamp(t *testing.T) {
	g := NewWithT(t)
	g.Expect(Clamp(5, 0, 1)).To(Equal(1.0))
	g.Expect(Clamp(-5, 0, 1)).To(Equal(0.0))
	g.Expect(Clamp(0.3, 0, 1)).To(Equal(0.3))
}

func TestFirstOrderStep(t *testing.T) {
	g := NewWithT(t)

	g.Expect(FirstOrderStep(0, 100, 0.25, 0.005)).To(BeNumerically("~", 2, 1e-9))
	// alpha is capped at 1 so a tiny tau jumps straight to target
	g.Expect(FirstOrderStep(0, 100, 0, 0.005)).To(Equal(100.0))
	g.Expect(FirstOrderStep(0, 100, 0.001, 0.005)).To(Equal(100.0))
}

func TestFirstOrderStep_Converges(t *testing.T) {
	tau, dt, target := 0.25, 0.005, 5676.0
	n := int(5 * tau / dt)

	x := 0.0
	for i := 0; i < n; i++ {
		x = FirstOrderStep(x, target, tau, dt)
	}

	if math.Abs(x-target) >= 0.01*target {
		t.Errorf("after %d steps |x-target| = %.2f, want < 1%% of %.0f", n, math.Abs(x-target), target)
	}
}

func TestUniform(t *testing.T) {
	g := NewWithT(t)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		v := Uniform(rng, 0.8)
		g.Expect(v).To(BeNumerically(">=", -0.8))
		g.Expect(v).To(BeNumerically("<", 0.8))
	}
	g.Expect(Uniform(rng, 0)).To(Equal(0.0))
}

func TestRound(t *testing.T) {
	g := NewWithT(t)
	g.Expect(Round(12.3456, 2)).To(Equal(12.35))
	g.Expect(Round(-1.23456, 3)).To(Equal(-1.235))
	g.Expect(Round(8.5, 0)).To(Equal(9.0))
}
