package hnm

import (
	"math"
)

// Warping selects the frequency axis a cepstral envelope was estimated on.
type Warping string

const (
	WarpingNone Warping = "none"
	WarpingBark Warping = "bark"
	WarpingMel  Warping = "mel"
)

// IsValid reports whether w is a recognised warping method.
func (w Warping) IsValid() bool {
	switch w {
	case "", WarpingNone, WarpingBark, WarpingMel:
		return true
	}
	return false
}

const defaultNoiseF0InHz = 100.0

// Frame is one analysis instant of the parametric representation.
type Frame struct {
	AnalysisTimeInSeconds         float64
	F0InHz                        float64
	MaximumFrequencyOfVoicingInHz float64
	Harmonics                     *Harmonics
	Noise                         Noise
	Transient                     bool
}

// Harmonics holds the per-track values of a voiced frame. The number of
// tracks is the number of phases.
type Harmonics struct {
	Amplitudes []float64
	Phases     []float64
	Ceps       []float64
}

// NumTracks returns the number of harmonic tracks populated in the frame.
func (h *Harmonics) NumTracks() int {
	if h == nil {
		return 0
	}
	return len(h.Phases)
}

// Noise is the noise-part representation of a frame. It is one of
// WaveformNoise, LpcNoise or PseudoHarmonicNoise; nil means absent.
type Noise interface {
	noise()
}

// WaveformNoise is a raw capture of the frame's noise waveform.
type WaveformNoise struct {
	Samples []float64
}

// LpcNoise is an all-pole model of the frame's noise.
type LpcNoise struct {
	Coeffs              []float64
	Gain                float64
	AverageSampleEnergy float64
}

// PseudoHarmonicNoise carries the noise envelope as cepstral coefficients,
// or as direct amplitudes when Signal.UseNoiseAmplitudesDirectly is set.
type PseudoHarmonicNoise struct {
	Ceps []float64
}

func (WaveformNoise) noise()       {}
func (LpcNoise) noise()            {}
func (PseudoHarmonicNoise) noise() {}

// TransientSegment is a waveform overlaid verbatim at StartTimeInSeconds.
type TransientSegment struct {
	StartTimeInSeconds float64
	Waveform           []float64
}

// Signal is the complete analyzed representation of one utterance.
type Signal struct {
	SamplingRateInHz              int
	OriginalDurationInSeconds     float64
	Frames                        []Frame
	Transients                    []TransientSegment
	IncludeZerothHarmonic         bool
	UseHarmonicAmplitudesDirectly bool
	UseNoiseAmplitudesDirectly    bool
	CepstrumWarping               Warping
	NoiseF0InHz                   float64
	PreemphasisCoefNoise          float64
}

// OutputLength is the number of samples a synthesis of s produces.
func (s *Signal) OutputLength() int {
	return time2sample(s.OriginalDurationInSeconds, float64(s.SamplingRateInHz))
}

// MaxNumHarmonics returns the largest track count over all frames.
func (s *Signal) MaxNumHarmonics() int {
	most := 0
	for i := range s.Frames {
		if n := s.Frames[i].Harmonics.NumTracks(); n > most {
			most = n
		}
	}
	return most
}

func (s *Signal) noiseF0() float64 {
	if s.NoiseF0InHz > 0 && isFinite(s.NoiseF0InHz) {
		return s.NoiseF0InHz
	}
	return defaultNoiseF0InHz
}

// harmonicNumber maps a track index to its multiple of f0.
func (s *Signal) harmonicNumber(k int) int {
	if s.IncludeZerothHarmonic {
		return k
	}
	return k + 1
}

// IsVoiced reports whether the frame carries harmonic energy below its
// maximum frequency of voicing.
func (f *Frame) IsVoiced() bool {
	return f.MaximumFrequencyOfVoicingInHz > 0
}

// hasTrack reports whether harmonic track k is usable in the frame.
// Malformed values make the track absent.
func (f *Frame) hasTrack(k int, direct bool) bool {
	h := f.Harmonics
	if h == nil || k < 0 || k >= len(h.Phases) {
		return false
	}
	if !(f.F0InHz > 0) || !isFinite(f.F0InHz) || !isFinite(h.Phases[k]) {
		return false
	}
	if direct {
		return k < len(h.Amplitudes) && isFinite(h.Amplitudes[k])
	}
	return len(h.Ceps) > 0
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func time2sample(t, fs float64) int {
	return int(math.Floor(t*fs + 0.5))
}

func sample2time(n int, fs float64) float64 {
	return float64(n) / fs
}
