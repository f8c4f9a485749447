package analysis

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

var ErrTooShort = errors.New("series too short")

// PowerSpectrum returns the magnitude of each one-sided FFT bin, n/2+1 of
// them. The mean is removed first so bin 0 reflects only rounding.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := stat.Mean(data, nil)
	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(len(centered))
	coeff := fft.Coefficients(nil, centered)

	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the largest non-DC bin
// of a series sampled every dt seconds, and that bin's magnitude.
func DominantFrequency(data []float64, dt float64) (float64, float64, error) {
	if len(data) < 4 || dt <= 0 {
		return 0, 0, ErrTooShort
	}
	ps := PowerSpectrum(data)

	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	fft := fourier.NewFFT(len(data))
	return fft.Freq(best) / dt, ps[best], nil
}
