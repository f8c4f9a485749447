package analysis

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

func sine(n int, dt, hz, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*hz*float64(i)*dt)
	}
	return out
}

func TestPowerSpectrum(t *testing.T) {
	g := NewWithT(t)

	ps := PowerSpectrum(sine(256, 0.01, 12.5, 1))
	g.Expect(ps).To(HaveLen(129))

	peak := 0
	for i := range ps {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	// 12.5 Hz at 100 Hz over 256 samples lands in bin 32
	g.Expect(peak).To(Equal(32))
	g.Expect(ps[0]).To(BeNumerically("<", 1e-9))

	g.Expect(PowerSpectrum([]float64{1})).To(BeNil())
}

func TestDominantFrequency(t *testing.T) {
	g := NewWithT(t)

	data := sine(2000, 0.005, 2, 0.8)
	for i := range data {
		data[i] += 3 // offset must not register as DC
	}
	hz, mag, err := DominantFrequency(data, 0.005)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(hz).To(BeNumerically("~", 2, 0.1))
	g.Expect(mag).To(BeNumerically(">", 0))

	_, _, err = DominantFrequency([]float64{1, 2}, 0.005)
	g.Expect(err).To(MatchError(ErrTooShort))
}

func TestSummarize(t *testing.T) {
	g := NewWithT(t)

	s := Summarize([]float64{4, 1, 3, 2, 5})
	g.Expect(s.N).To(Equal(5))
	g.Expect(s.Mean).To(BeNumerically("~", 3, 1e-12))
	g.Expect(s.Min).To(Equal(1.0))
	g.Expect(s.Max).To(Equal(5.0))
	g.Expect(s.P50).To(Equal(3.0))
	g.Expect(s.P95).To(Equal(5.0))
	g.Expect(s.StdDev).To(BeNumerically("~", math.Sqrt(2.5), 1e-12))

	g.Expect(Summarize(nil)).To(Equal(Summary{}))
	one := Summarize([]float64{7})
	g.Expect(one.Mean).To(Equal(7.0))
	g.Expect(one.StdDev).To(Equal(0.0))
}

func TestCorrelation(t *testing.T) {
	g := NewWithT(t)

	a := sine(100, 0.01, 1, 1)
	b := make([]float64, len(a))
	for i := range a {
		b[i] = 2*a[i] + 1
	}
	g.Expect(Correlation(a, b)).To(BeNumerically("~", 1, 1e-9))

	for i := range b {
		b[i] = -a[i]
	}
	g.Expect(Correlation(a, b)).To(BeNumerically("~", -1, 1e-9))
	g.Expect(math.IsNaN(Correlation(a[:1], b[:1]))).To(BeTrue())
}
