package hnm

import "math"

// cepstrumToLinearAmplitude evaluates the spectral envelope described by
// ceps at freqHz: exp(c0 + 2*sum_k c_k*cos(k*w)), where w is the normalized
// angular frequency on the warped axis.
func cepstrumToLinearAmplitude(ceps []float64, freqHz, fs float64, warping Warping) float64 {
	if len(ceps) == 0 || fs <= 0 {
		return 0
	}

	w := warpedAngularFrequency(freqHz, fs, warping)
	sum := ceps[0]
	for k := 1; k < len(ceps); k++ {
		sum += 2.0 * ceps[k] * math.Cos(float64(k)*w)
	}

	amp := math.Exp(sum)
	if !isFinite(amp) {
		return 0
	}
	return amp
}

// warpedAngularFrequency maps freqHz to [0, pi] with Nyquist at pi.
func warpedAngularFrequency(freqHz, fs float64, warping Warping) float64 {
	nyquist := 0.5 * fs
	if freqHz < 0 {
		freqHz = 0
	}
	if freqHz > nyquist {
		freqHz = nyquist
	}

	switch warping {
	case WarpingBark:
		return math.Pi * hz2bark(freqHz) / hz2bark(nyquist)
	case WarpingMel:
		return math.Pi * hz2mel(freqHz) / hz2mel(nyquist)
	}
	return math.Pi * freqHz / nyquist
}

func hz2bark(f float64) float64 {
	return 13.0*math.Atan(0.00076*f) + 3.5*math.Atan((f/7500.0)*(f/7500.0))
}

func hz2mel(f float64) float64 {
	return 2595.0 * math.Log10(1.0+f/700.0)
}
