package hnm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// arFilter runs x through the all-pole filter
// y[n] = gain*x[n] + sum_j coeffs[j-1]*y[n-j] with zero initial history.
func arFilter(x, coeffs []float64, gain float64) []float64 {
	y := make([]float64, len(x))
	for n := range x {
		acc := gain * x[n]
		for j := 1; j <= len(coeffs) && n-j >= 0; j++ {
			acc += coeffs[j-1] * y[n-j]
		}
		y[n] = acc
	}
	return y
}

// highpass removes all spectral content below cutoffHz.
func highpass(f FFT, x []float64, cutoffHz, fs float64) []float64 {
	if len(x) == 0 || cutoffHz <= 0 {
		return x
	}
	if cutoffHz >= fs/2 {
		return make([]float64, len(x))
	}

	spectrum := f.Forward(x)
	size := len(spectrum)
	binHz := fs / float64(size)

	for k := 0; k <= size/2; k++ {
		if float64(k)*binHz < cutoffHz {
			spectrum[k] = 0
			if k > 0 {
				spectrum[size-k] = 0
			}
		}
	}

	return f.Inverse(spectrum)
}

// removePreemphasis undoes a first-order pre-emphasis filter in place:
// y[n] = x[n] + coef*y[n-1].
func removePreemphasis(x []float64, coef float64) {
	if coef <= 0 {
		return
	}
	for n := 1; n < len(x); n++ {
		x[n] += coef * x[n-1]
	}
}

// removeMean shifts x in place so its mean is zero.
func removeMean(x []float64) {
	if len(x) == 0 {
		return
	}
	floats.AddConst(-stat.Mean(x, nil), x)
}

// averageSampleEnergy is the mean of x[n]^2.
func averageSampleEnergy(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Dot(x, x) / float64(len(x))
}

// scaleToEnergy scales x in place to the given average sample energy.
// Silent input is left untouched.
func scaleToEnergy(x []float64, target float64) {
	current := averageSampleEnergy(x)
	if current <= 0 || target <= 0 {
		return
	}
	floats.Scale(math.Sqrt(target/current), x)
}

// adjustStandardDeviation rescales x in place around its mean so that its
// standard deviation becomes target.
func adjustStandardDeviation(x []float64, target float64) {
	if len(x) < 2 || target <= 0 {
		return
	}
	mean, std := stat.MeanStdDev(x, nil)
	if std <= 0 || !isFinite(std) {
		return
	}
	for i := range x {
		x[i] = (x[i]-mean)*target/std + mean
	}
}

// zeroNonFinite replaces NaN and Inf samples with zero.
func zeroNonFinite(x []float64) int {
	count := 0
	for i, v := range x {
		if !isFinite(v) {
			x[i] = 0
			count++
		}
	}
	return count
}
