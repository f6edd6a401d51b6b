package hnm

import "github.com/mjibson/go-dsp/fft"

// FFT transforms real signals to and from their spectra.
type FFT interface {
	Forward(in []float64) []complex128
	Inverse(in []complex128) []float64
}

// dspFFT implements FFT using go-dsp/fft.
type dspFFT struct{}

// NewFFT returns the FFT used by the noise filters.
func NewFFT() FFT {
	return dspFFT{}
}

// Forward returns the unscaled DFT of a real-valued input.
func (dspFFT) Forward(in []float64) []complex128 {
	return fft.FFTReal(in)
}

// Inverse returns the real part of the inverse DFT, scaled by 1/N so that
// Inverse(Forward(x)) == x.
func (dspFFT) Inverse(in []complex128) []float64 {
	complexOut := fft.IFFT(in)
	realOut := make([]float64, len(complexOut))
	for i, v := range complexOut {
		realOut[i] = real(v)
	}
	return realOut
}
