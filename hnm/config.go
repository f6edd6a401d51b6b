package hnm

import (
	"errors"
	"fmt"
	"math"
)

// HarmonicMethod selects the phase interpolation of the harmonic part.
type HarmonicMethod string

const (
	HarmonicLinear HarmonicMethod = "linear"
	HarmonicCubic  HarmonicMethod = "cubic"
)

// IsValid reports whether m is a recognised harmonic method.
func (m HarmonicMethod) IsValid() bool {
	return m == HarmonicLinear || m == HarmonicCubic
}

// NoiseModel selects the noise synthesis strategy.
type NoiseModel string

const (
	NoiseWaveform                  NoiseModel = "waveform"
	NoiseLpc                       NoiseModel = "lpc"
	NoiseWindowedOlaLpc            NoiseModel = "windowed-ola-lpc"
	NoisePseudoHarmonic            NoiseModel = "pseudo-harmonic"
	NoiseVoicedLpcUnvoicedWaveform NoiseModel = "voiced-lpc-unvoiced-waveform"
	NoiseUnvoicedLpcVoicedWaveform NoiseModel = "unvoiced-lpc-voiced-waveform"
)

// IsValid reports whether m is a recognised noise model.
func (m NoiseModel) IsValid() bool {
	_, ok := noiseStrategies[m]
	return ok
}

// LpcSynthesisMethod selects how the lpc noise model renders LPC frames.
type LpcSynthesisMethod string

const (
	LpcFilter      LpcSynthesisMethod = "lp-filter"
	LpcWindowedOla LpcSynthesisMethod = "windowed-ola"
)

// IsValid reports whether m is a recognised LPC synthesis method.
func (m LpcSynthesisMethod) IsValid() bool {
	return m == LpcFilter || m == LpcWindowedOla
}

// Config holds every tunable of a synthesis run. It is a value type and is
// never modified by the synthesizer.
type Config struct {
	HarmonicMethod                    HarmonicMethod     `yaml:"harmonic_method"`
	NoiseModel                        NoiseModel         `yaml:"noise_model"`
	LpcSynthesisMethod                LpcSynthesisMethod `yaml:"lpc_synthesis_method"`
	SynthesizeTransients              bool               `yaml:"synthesize_transients"`
	ApplyTriangularEnvelope           bool               `yaml:"triangular_envelope"`
	EnergyTriangleLowerValue          float64            `yaml:"energy_triangle_lower"`
	EnergyTriangleUpperValue          float64            `yaml:"energy_triangle_upper"`
	TrackTransitionInSeconds          float64            `yaml:"track_transition_s"`
	TransitionWindow                  string             `yaml:"transition_window"`
	OverlappingHarmonicSynthesis      bool               `yaml:"overlapping_harmonic_synthesis"`
	HarmonicSynthesisOverlapInSeconds float64            `yaml:"harmonic_overlap_s"`
	NoiseWindow                       string             `yaml:"noise_window"`
	NoiseWindowDurationInSeconds      float64            `yaml:"noise_window_duration_s"`
	NoiseTransitionOverlapInSeconds   float64            `yaml:"noise_transition_overlap_s"`
	HighpassNoise                     bool               `yaml:"highpass_noise"`
	TransientOverlapInSeconds         float64            `yaml:"transient_overlap_s"`
	Seed                              uint64             `yaml:"seed"`
	Workers                           int                `yaml:"workers"`
	MaxDurationInSeconds              float64            `yaml:"max_duration_s"`
	MaxOutputSamples                  int                `yaml:"max_output_samples"`
	KeepHarmonicTracks                bool               `yaml:"keep_harmonic_tracks"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		HarmonicMethod:                    HarmonicLinear,
		NoiseModel:                        NoiseWaveform,
		LpcSynthesisMethod:                LpcFilter,
		SynthesizeTransients:              true,
		ApplyTriangularEnvelope:           true,
		EnergyTriangleLowerValue:          0.5,
		EnergyTriangleUpperValue:          1.0,
		TrackTransitionInSeconds:          0.005,
		TransitionWindow:                  "hann",
		HarmonicSynthesisOverlapInSeconds: 0.010,
		NoiseWindow:                       "hamming",
		NoiseWindowDurationInSeconds:      0.050,
		NoiseTransitionOverlapInSeconds:   0.010,
		HighpassNoise:                     true,
		TransientOverlapInSeconds:         0.005,
		Seed:                              1,
		MaxDurationInSeconds:              3600,
		MaxOutputSamples:                  3600 * 48000,
	}
}

// Validate returns a joined error describing every invalid setting.
func (c Config) Validate() error {
	var errs []error

	if !c.HarmonicMethod.IsValid() {
		errs = append(errs, fmt.Errorf("harmonic_method %q is invalid; valid values: linear, cubic", c.HarmonicMethod))
	}
	if !c.NoiseModel.IsValid() {
		errs = append(errs, fmt.Errorf("noise_model %q is invalid; valid values: %s", c.NoiseModel, NoiseModelNamesString()))
	}
	if !c.LpcSynthesisMethod.IsValid() {
		errs = append(errs, fmt.Errorf("lpc_synthesis_method %q is invalid; valid values: lp-filter, windowed-ola", c.LpcSynthesisMethod))
	}
	if WindowFunctions[c.TransitionWindow] == nil {
		errs = append(errs, fmt.Errorf("transition_window %q is invalid; valid values: %s", c.TransitionWindow, WindowNamesString()))
	}
	if WindowFunctions[c.NoiseWindow] == nil {
		errs = append(errs, fmt.Errorf("noise_window %q is invalid; valid values: %s", c.NoiseWindow, WindowNamesString()))
	}

	durations := []struct {
		name  string
		value float64
	}{
		{"track_transition_s", c.TrackTransitionInSeconds},
		{"harmonic_overlap_s", c.HarmonicSynthesisOverlapInSeconds},
		{"noise_window_duration_s", c.NoiseWindowDurationInSeconds},
		{"noise_transition_overlap_s", c.NoiseTransitionOverlapInSeconds},
		{"transient_overlap_s", c.TransientOverlapInSeconds},
	}
	for _, d := range durations {
		if d.value < 0 || math.IsNaN(d.value) || math.IsInf(d.value, 0) {
			errs = append(errs, fmt.Errorf("%s %v must be a finite, non-negative duration", d.name, d.value))
		}
	}

	if c.EnergyTriangleLowerValue < 0 || c.EnergyTriangleUpperValue < 0 {
		errs = append(errs, fmt.Errorf("energy triangle values (%v, %v) cannot be negative", c.EnergyTriangleLowerValue, c.EnergyTriangleUpperValue))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d cannot be negative", c.Workers))
	}
	if !(c.MaxDurationInSeconds > 0) {
		errs = append(errs, fmt.Errorf("max_duration_s %v must be positive", c.MaxDurationInSeconds))
	}
	if c.MaxOutputSamples <= 0 {
		errs = append(errs, fmt.Errorf("max_output_samples %d must be positive", c.MaxOutputSamples))
	}

	return errors.Join(errs...)
}

// String renders the settings as the aligned summary printed by the CLI.
func (c Config) String() (output string) {
	output += fmt.Sprintf("%24s   %s\n", "Harmonic Method:", c.HarmonicMethod)
	output += fmt.Sprintf("%24s   %s", "Noise Model:", c.NoiseModel)
	if c.NoiseModel == NoiseLpc {
		output += fmt.Sprintf(" (%s)", c.LpcSynthesisMethod)
	}
	output += "\n"
	output += fmt.Sprintf("%24s   %t\n", "Transients:", c.SynthesizeTransients)
	output += fmt.Sprintf("%24s   %t\n", "Triangular Envelope:", c.ApplyTriangularEnvelope)
	output += fmt.Sprintf("%24s   %s, %.3f s\n", "Track Transition:", c.TransitionWindow, c.TrackTransitionInSeconds)
	output += fmt.Sprintf("%24s   %s\n", "Noise Window:", c.NoiseWindow)
	output += fmt.Sprintf("%24s   %d\n", "Seed:", c.Seed)
	return
}
