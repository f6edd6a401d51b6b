package hnm

import (
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

type noiseStrategy func(nc *noiseContext) ([]float64, error)

var noiseStrategies = map[NoiseModel]noiseStrategy{
	NoiseWaveform:                  synthesizeWaveformNoise,
	NoiseLpc:                       synthesizeLpcNoise,
	NoiseWindowedOlaLpc:            synthesizeWindowedOlaLpcNoise,
	NoisePseudoHarmonic:            synthesizePseudoHarmonicNoise,
	NoiseVoicedLpcUnvoicedWaveform: hybridNoise(true),
	NoiseUnvoicedLpcVoicedWaveform: hybridNoise(false),
}

func NoiseModelNames() []string {
	names := make([]string, 0, len(noiseStrategies))
	for name := range noiseStrategies {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

func NoiseModelNamesString() string {
	return strings.Join(NoiseModelNames(), ", ")
}

// noiseContext is the per-call state shared by the noise strategies.
type noiseContext struct {
	cfg     Config
	sig     *Signal
	tl      *timeline
	rng     *rand.Rand
	fft     FFT
	logger  *slog.Logger
	include func(f *Frame) bool
	windows map[int][]float64
}

func newNoiseContext(cfg Config, sig *Signal, tl *timeline, rng *rand.Rand, f FFT, logger *slog.Logger) *noiseContext {
	skipTransients := cfg.SynthesizeTransients && len(sig.Transients) > 0
	return &noiseContext{
		cfg:    cfg,
		sig:    sig,
		tl:     tl,
		rng:    rng,
		fft:    f,
		logger: logger,
		include: func(f *Frame) bool {
			return !(skipTransients && f.Transient)
		},
		windows: map[int][]float64{},
	}
}

// restrict returns a copy of nc that additionally only sees frames accepted
// by keep. The random generator and window cache are shared.
func (nc *noiseContext) restrict(keep func(f *Frame) bool) *noiseContext {
	restricted := *nc
	parent := nc.include
	restricted.include = func(f *Frame) bool {
		return parent(f) && keep(f)
	}
	return &restricted
}

// window returns the configured noise window of the given size, cached for
// the duration of the call.
func (nc *noiseContext) window(size int) []float64 {
	if w, ok := nc.windows[size]; ok {
		return w
	}
	w, err := newWindow(nc.cfg.NoiseWindow, size)
	if err != nil {
		// Config.Validate rejects unknown windows before we get here.
		w = make([]float64, size)
	}
	nc.windows[size] = w
	return w
}

// usable reports whether frame i may contribute noise. A frame voiced up
// to Nyquist has no noise band left.
func (nc *noiseContext) usable(i int) bool {
	if i < 0 || i >= len(nc.sig.Frames) {
		return false
	}
	f := &nc.sig.Frames[i]
	return f.MaximumFrequencyOfVoicingInHz < 0.5*nc.tl.fs && nc.include(f)
}

func (nc *noiseContext) waveformAt(i int) (WaveformNoise, bool) {
	if !nc.usable(i) {
		return WaveformNoise{}, false
	}
	n, ok := nc.sig.Frames[i].Noise.(WaveformNoise)
	return n, ok && len(n.Samples) > 0
}

func (nc *noiseContext) lpcAt(i int) (LpcNoise, bool) {
	if !nc.usable(i) {
		return LpcNoise{}, false
	}
	n, ok := nc.sig.Frames[i].Noise.(LpcNoise)
	if !ok || !isFinite(n.Gain) || !isFinite(n.AverageSampleEnergy) {
		return LpcNoise{}, false
	}
	for _, c := range n.Coeffs {
		if !isFinite(c) {
			return LpcNoise{}, false
		}
	}
	return n, true
}

func (nc *noiseContext) pseudoHarmonicAt(i int) (PseudoHarmonicNoise, bool) {
	if !nc.usable(i) {
		return PseudoHarmonicNoise{}, false
	}
	n, ok := nc.sig.Frames[i].Noise.(PseudoHarmonicNoise)
	return n, ok && len(n.Ceps) > 0
}

// highpassCutoff returns the frequency below which frame i's noise is
// removed, or 0 when no filtering applies.
func (nc *noiseContext) highpassCutoff(i int) float64 {
	if !nc.cfg.HighpassNoise {
		return 0
	}
	maxFV := nc.sig.Frames[i].MaximumFrequencyOfVoicingInHz
	if maxFV <= 0 || maxFV >= 0.5*nc.tl.fs {
		return 0
	}
	return maxFV
}

// whiteNoise returns uniform noise in [-1, 1).
func (nc *noiseContext) whiteNoise(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 2.0 * (nc.rng.Float64() - 0.5)
	}
	return x
}

// gaussianNoise returns zero-mean, unit-variance noise.
func (nc *noiseContext) gaussianNoise(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = nc.rng.NormFloat64()
	}
	return x
}

// hybridNoise renders LPC noise over one voicing class and waveform noise
// over the other, then adds them.
func hybridNoise(lpcOnVoiced bool) noiseStrategy {
	return func(nc *noiseContext) ([]float64, error) {
		lpcPart, err := synthesizeLpcNoise(nc.restrict(func(f *Frame) bool {
			return f.IsVoiced() == lpcOnVoiced
		}))
		if err != nil {
			return nil, err
		}

		waveformPart, err := synthesizeWaveformNoise(nc.restrict(func(f *Frame) bool {
			return f.IsVoiced() != lpcOnVoiced
		}))
		if err != nil {
			return nil, err
		}

		floats.Add(lpcPart, waveformPart)
		return lpcPart, nil
	}
}

// triangularEnvelope returns length gains: lower up to 15% of the span,
// a linear rise to upper at the midpoint of the 15%/85% breakpoints, a linear
// fall back to lower at 85%, and lower afterwards.
func triangularEnvelope(length int, lower, upper float64) []float64 {
	env := make([]float64, length)
	l1 := time2sample(0.15, float64(length))
	l2 := time2sample(0.85, float64(length))
	lMid := int(0.5*float64(l1+l2) + 0.5)

	for n := range env {
		switch {
		case n < l1 || n >= l2:
			env[n] = lower
		case n < lMid:
			env[n] = lower + (upper-lower)*float64(n-l1)/float64(lMid-l1)
		default:
			env[n] = upper + (lower-upper)*float64(n-lMid)/float64(l2-lMid)
		}
	}
	return env
}

// finishLpcNoise applies the energy envelope over every voiced span,
// including spans that only hold noise spilled over from neighbours, undoes
// the analysis pre-emphasis and removes the mean.
func finishLpcNoise(nc *noiseContext, out []float64) {
	if nc.cfg.ApplyTriangularEnvelope {
		for i := range nc.sig.Frames {
			if !nc.sig.Frames[i].IsVoiced() {
				continue
			}
			start, end := nc.tl.spanSamples(i)
			if end <= start {
				continue
			}
			env := triangularEnvelope(end-start, nc.cfg.EnergyTriangleLowerValue, nc.cfg.EnergyTriangleUpperValue)
			for n := start; n < end; n++ {
				out[n] *= env[n-start]
			}
		}
	}

	removePreemphasis(out, nc.sig.PreemphasisCoefNoise)
	removeMean(out)
}
