// Package hnm reconstructs speech waveforms from a Harmonic-plus-Noise Model
// representation: harmonic tracks, one of several noise models and stored
// transient segments are rendered independently and summed.
package hnm

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Synthesized holds the output of one synthesis call. Output is the
// sample-wise sum HarmonicPart + NoisePart + TransientPart.
type Synthesized struct {
	SamplingRateInHz int
	Output           []float64
	HarmonicPart     []float64
	NoisePart        []float64
	TransientPart    []float64
	// HarmonicTracks holds one buffer per harmonic track when
	// Config.KeepHarmonicTracks is set.
	HarmonicTracks [][]float64
}

// DurationInSeconds returns the length of the synthesized output.
func (s *Synthesized) DurationInSeconds() float64 {
	if s.SamplingRateInHz <= 0 {
		return 0
	}
	return float64(len(s.Output)) / float64(s.SamplingRateInHz)
}

type Option func(*Synthesizer)

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRandomSource replaces the generator seeded with Config.Seed at the
// start of every call.
func WithRandomSource(newSource func(seed uint64) rand.Source) Option {
	return func(s *Synthesizer) {
		if newSource != nil {
			s.newSource = newSource
		}
	}
}

// Synthesizer renders Signals with a fixed Config. It holds no per-call
// state and may be used from several goroutines at once.
type Synthesizer struct {
	cfg       Config
	logger    *slog.Logger
	newSource func(seed uint64) rand.Source
	fft       FFT
}

func NewSynthesizer(cfg Config, opts ...Option) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("hnm: invalid config: %w", err)
	}

	s := &Synthesizer{
		cfg:    cfg,
		logger: slog.Default(),
		newSource: func(seed uint64) rand.Source {
			return rand.NewPCG(seed, seed)
		},
		fft: NewFFT(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the settings the synthesizer was built with.
func (s *Synthesizer) Config() Config {
	return s.cfg
}

// Synthesize renders sig. A nil mapping places frames at their analysis
// times. Structural problems abort the call before any output is produced;
// malformed frame values only silence the affected contribution.
func (s *Synthesizer) Synthesize(sig *Signal, mapping *TimeMapping) (*Synthesized, error) {
	if sig == nil {
		return nil, ErrNilSignal
	}
	if sig.SamplingRateInHz <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSamplingRate, sig.SamplingRateInHz)
	}
	if !sig.CepstrumWarping.IsValid() {
		return nil, fmt.Errorf("hnm: unknown cepstrum warping %q", sig.CepstrumWarping)
	}

	tl, err := newTimeline(sig, mapping)
	if err != nil {
		return nil, err
	}
	if tl.duration > s.cfg.MaxDurationInSeconds {
		return nil, fmt.Errorf("%w: %.2fs exceeds the %.2fs limit", ErrOutputTooLong, tl.duration, s.cfg.MaxDurationInSeconds)
	}
	// checked in floating point: the product can overflow an int
	if samples := tl.duration * tl.fs; samples > float64(s.cfg.MaxOutputSamples) {
		return nil, fmt.Errorf("%w: %.0f samples exceed the %d sample limit", ErrOutputTooLong, samples, s.cfg.MaxOutputSamples)
	}

	logger := s.logger.With("frames", len(sig.Frames), "samples", tl.outputLen)
	began := time.Now()

	harmonicPart, tracks, err := synthesizeHarmonicPart(s.cfg, sig, tl, logger)
	if err != nil {
		return nil, fmt.Errorf("hnm: harmonic part: %w", err)
	}

	rng := rand.New(s.newSource(s.cfg.Seed))
	nc := newNoiseContext(s.cfg, sig, tl, rng, s.fft, logger)
	noisePart, err := noiseStrategies[s.cfg.NoiseModel](nc)
	if err != nil {
		return nil, fmt.Errorf("hnm: noise part (%s): %w", s.cfg.NoiseModel, err)
	}

	transientPart := synthesizeTransientPart(s.cfg, sig, tl)

	output := make([]float64, tl.outputLen)
	for n := range output {
		output[n] = harmonicPart[n] + noisePart[n] + transientPart[n]
	}

	result := &Synthesized{
		SamplingRateInHz: sig.SamplingRateInHz,
		Output:           output,
		HarmonicPart:     harmonicPart,
		NoisePart:        noisePart,
		TransientPart:    transientPart,
	}
	if s.cfg.KeepHarmonicTracks {
		result.HarmonicTracks = tracks
	}

	logger.Debug("synthesis complete",
		"noise_model", s.cfg.NoiseModel,
		"transients", len(sig.Transients),
		"elapsed", time.Since(began),
	)
	return result, nil
}
