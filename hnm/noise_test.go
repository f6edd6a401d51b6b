package hnm

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat"

	. "gohnm/testing_utilities"
)

func ones(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 1
	}
	return x
}

func TestOverlapAddBufferNormalizesIdenticalWindows(t *testing.T) {
	for _, copies := range []int{1, 2, 5, 16} {
		ob := NewOverlapAddBuffer(300)
		win, err := newWindow("hamming", 200)
		Ok(t, err)

		for c := 0; c < copies; c++ {
			ob.AddWindowed(ones(200), win, 50)
		}
		out := ob.Normalize()

		for n := 0; n < 50; n++ {
			Equals(t, 0.0, out[n])
		}
		for n := 50; n < 250; n++ {
			InDelta(t, 1.0, out[n], 1e-12)
		}
		for n := 250; n < 300; n++ {
			Equals(t, 0.0, out[n])
		}
	}
}

func TestOverlapAddBufferClipsOutOfRange(t *testing.T) {
	ob := NewOverlapAddBuffer(10)
	ob.Add(ones(8), ones(8), -4)
	ob.Add(ones(8), ones(8), 6)
	out := ob.Normalize()
	for _, x := range out[:4] {
		Equals(t, 1.0, x)
	}
	for _, x := range out[4:6] {
		Equals(t, 0.0, x)
	}
	for _, x := range out[6:] {
		Equals(t, 1.0, x)
	}
}

func TestWaveformNoiseOverlapNormalization(t *testing.T) {
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.05,
		Frames: []Frame{
			{AnalysisTimeInSeconds: 0.010, Noise: WaveformNoise{Samples: ones(160)}},
			{AnalysisTimeInSeconds: 0.011, Noise: WaveformNoise{Samples: ones(160)}},
			{AnalysisTimeInSeconds: 0.012, Noise: WaveformNoise{Samples: ones(160)}},
		},
	}

	result, err := newTestSynthesizer(t, DefaultConfig()).Synthesize(sig, nil)
	Ok(t, err)

	// centers at 80, 88 and 96 with 160-sample waveforms cover [0, 176)
	for n := 0; n < 176; n++ {
		InDelta(t, 1.0, result.NoisePart[n], 1e-12)
	}
	for n := 176; n < len(result.NoisePart); n++ {
		Equals(t, 0.0, result.NoisePart[n])
	}
}

func TestWaveformNoiseHighpassesVoicedFrames(t *testing.T) {
	const fs = 8000
	samples := make([]float64, 400)
	for n := range samples {
		samples[n] = math.Sin(twoPi*200*float64(n)/fs) + 0.5*math.Sin(twoPi*3000*float64(n)/fs)
	}
	sig := &Signal{
		SamplingRateInHz:          fs,
		OriginalDurationInSeconds: 0.05,
		Frames: []Frame{
			{AnalysisTimeInSeconds: 0.025, MaximumFrequencyOfVoicingInHz: 1000, Noise: WaveformNoise{Samples: samples}},
		},
	}

	cfg := DefaultConfig()
	cfg.NoiseWindow = "rectangle"
	result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)

	for n, x := range result.NoisePart {
		InDelta(t, 0.5*math.Sin(twoPi*3000*float64(n)/fs), x, 1e-9)
	}
}

func TestWaveformNoiseRemovesPreemphasis(t *testing.T) {
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.01,
		PreemphasisCoefNoise:      0.5,
		Frames: []Frame{
			{AnalysisTimeInSeconds: 0.005, Noise: WaveformNoise{Samples: []float64{1}}},
		},
	}

	cfg := DefaultConfig()
	cfg.NoiseWindow = "rectangle"
	result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)

	Equals(t, 1.0, result.NoisePart[40])
	Equals(t, 0.5, result.NoisePart[41])
	Equals(t, 0.25, result.NoisePart[42])
}

func lpcSignal() *Signal {
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.1,
	}
	for i := 0; i < 10; i++ {
		sig.Frames = append(sig.Frames, Frame{
			AnalysisTimeInSeconds:         float64(i) * 0.01,
			MaximumFrequencyOfVoicingInHz: float64(i%2) * 1500,
			Noise: LpcNoise{
				Coeffs:              []float64{0.6, -0.2},
				Gain:                0.3,
				AverageSampleEnergy: 0.01,
			},
		})
	}
	return sig
}

func TestLpcNoiseIsSeeded(t *testing.T) {
	tests := map[string]LpcSynthesisMethod{
		"lp filter":    LpcFilter,
		"windowed ola": LpcWindowedOla,
	}

	for name, method := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.NoiseModel = NoiseLpc
			cfg.LpcSynthesisMethod = method

			first, err := newTestSynthesizer(t, cfg).Synthesize(lpcSignal(), nil)
			Ok(t, err)
			second, err := newTestSynthesizer(t, cfg).Synthesize(lpcSignal(), nil)
			Ok(t, err)
			Equals(t, first.NoisePart, second.NoisePart)

			cfg.Seed = 99
			other, err := newTestSynthesizer(t, cfg).Synthesize(lpcSignal(), nil)
			Ok(t, err)
			Assert(t, !equalSamples(first.NoisePart, other.NoisePart), "different seeds should give different noise")

			energy := averageSampleEnergy(first.NoisePart)
			Assert(t, energy > 0, "lpc noise should not be silent")
			for n, x := range first.NoisePart {
				Assert(t, isFinite(x), "sample %d is not finite", n)
			}
		})
	}
}

func TestLpFilterNoiseRestoresFrameEnergy(t *testing.T) {
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.25,
	}
	for i := 0; i < 5; i++ {
		sig.Frames = append(sig.Frames, Frame{
			AnalysisTimeInSeconds: float64(i) * 0.05,
			Noise:                 LpcNoise{Coeffs: []float64{0.5}, Gain: 1, AverageSampleEnergy: 0.01},
		})
	}

	cfg := DefaultConfig()
	cfg.NoiseModel = NoiseLpc
	cfg.NoiseWindow = "rectangle"

	result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)
	Equals(t, 2000, len(result.NoisePart))

	// each sample is the mean of at most two segments scaled to the frame
	// energy, so the overall level stays close to it
	InDelta(t, 0.01, averageSampleEnergy(result.NoisePart), 0.002)
}

func olaTestContext(t *testing.T, cfg Config, sig *Signal) *noiseContext {
	t.Helper()
	tl, err := newTimeline(sig, nil)
	Ok(t, err)
	return newNoiseContext(cfg, sig, tl, rand.New(rand.NewPCG(1, 1)), NewFFT(), quietLogger())
}

func TestWindowedOlaLpcBursts(t *testing.T) {
	lpc := LpcNoise{Coeffs: []float64{0.5}, Gain: 1, AverageSampleEnergy: 0.001}
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.2,
		Frames: []Frame{
			{AnalysisTimeInSeconds: 0.00, Noise: lpc},
			{AnalysisTimeInSeconds: 0.01, Noise: lpc},
			{AnalysisTimeInSeconds: 0.05, Noise: lpc},
			{AnalysisTimeInSeconds: 0.09},
			{AnalysisTimeInSeconds: 0.10, Noise: lpc},
		},
	}
	nc := olaTestContext(t, DefaultConfig(), sig)

	// 0.05 s windows are 400 samples and the transition overlap 80
	tests := map[string]struct {
		frame int
		start int
		size  int
	}{
		"first frame, overlap on the left":  {frame: 0, start: 0, size: 481},
		"two hops to the next noised frame": {frame: 1, start: 0, size: 641},
		"silent successor":                  {frame: 2, start: 200, size: 481},
		"isolated frame":                    {frame: 4, start: 600, size: 561},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			start, size := nc.olaBurst(tc.frame)
			Equals(t, tc.start, start)
			Equals(t, tc.size, size)
		})
	}
}

func TestWindowedOlaLpcBurstSizeIsOdd(t *testing.T) {
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.1,
		Frames:                    []Frame{{Noise: LpcNoise{Coeffs: []float64{0.5}, Gain: 1}}},
	}

	for duration, expected := range map[float64]int{0.050125: 401, 0.05025: 403} {
		cfg := DefaultConfig()
		cfg.NoiseWindowDurationInSeconds = duration
		cfg.NoiseTransitionOverlapInSeconds = 0
		_, size := olaTestContext(t, cfg, sig).olaBurst(0)
		Equals(t, expected, size)
	}
}

func TestWindowedOlaLpcBurstMatchesFrameDeviation(t *testing.T) {
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.1,
		Frames: []Frame{
			{Noise: LpcNoise{Coeffs: []float64{0.5}, Gain: 1, AverageSampleEnergy: 0.0004}},
		},
	}

	cfg := DefaultConfig()
	cfg.NoiseModel = NoiseWindowedOlaLpc
	cfg.NoiseWindow = "rectangle"
	result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)

	// a lone frame gets a 400 + 2*80 sample burst, forced odd
	InDelta(t, 0.02, stat.StdDev(result.NoisePart[:561], nil), 1e-9)
	for _, x := range result.NoisePart[561:] {
		Equals(t, result.NoisePart[561], x)
	}
}

func TestWindowedOlaLpcModelEqualsLpcSubMethod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoiseModel = NoiseWindowedOlaLpc
	direct, err := newTestSynthesizer(t, cfg).Synthesize(lpcSignal(), nil)
	Ok(t, err)

	cfg.NoiseModel = NoiseLpc
	cfg.LpcSynthesisMethod = LpcWindowedOla
	viaLpc, err := newTestSynthesizer(t, cfg).Synthesize(lpcSignal(), nil)
	Ok(t, err)

	Equals(t, direct.NoisePart, viaLpc.NoisePart)
}

func TestNoiseModelWithoutMatchingData(t *testing.T) {
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.03,
		Frames: []Frame{
			{AnalysisTimeInSeconds: 0.01, Noise: WaveformNoise{Samples: ones(80)}},
			{AnalysisTimeInSeconds: 0.02, Noise: WaveformNoise{Samples: ones(80)}},
		},
	}

	for _, model := range []NoiseModel{NoiseLpc, NoiseWindowedOlaLpc, NoisePseudoHarmonic} {
		cfg := DefaultConfig()
		cfg.NoiseModel = model
		result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
		Ok(t, err)
		Equals(t, 240, len(result.NoisePart))
		for _, x := range result.NoisePart {
			Equals(t, 0.0, x)
		}
	}
}

func TestHybridNoiseSplitsByVoicing(t *testing.T) {
	sig := lpcSignal()
	for i := range sig.Frames {
		if sig.Frames[i].IsVoiced() {
			sig.Frames[i].Noise = WaveformNoise{Samples: ones(40)}
		}
	}

	cfg := DefaultConfig()
	cfg.NoiseModel = NoiseUnvoicedLpcVoicedWaveform
	hybrid, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)

	cfg.NoiseModel = NoiseLpc
	lpcOnly, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)

	cfg.NoiseModel = NoiseWaveform
	waveformOnly, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)

	for n := range hybrid.NoisePart {
		InDelta(t, lpcOnly.NoisePart[n]+waveformOnly.NoisePart[n], hybrid.NoisePart[n], 1e-12)
	}

	cfg.NoiseModel = NoiseVoicedLpcUnvoicedWaveform
	swapped, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)
	for _, x := range swapped.NoisePart {
		Equals(t, 0.0, x)
	}
}

func TestFramesVoicedToNyquistCarryNoNoise(t *testing.T) {
	lpc := LpcNoise{Coeffs: []float64{0.6, -0.2}, Gain: 0.3, AverageSampleEnergy: 0.01}
	alternating := ones(160)
	for n := 1; n < len(alternating); n += 2 {
		alternating[n] = -1
	}
	tests := map[NoiseModel]Noise{
		NoiseWaveform:       WaveformNoise{Samples: alternating},
		NoiseLpc:            lpc,
		NoiseWindowedOlaLpc: lpc,
		NoisePseudoHarmonic: PseudoHarmonicNoise{Ceps: []float64{0.01, 0.02, 0.01}},
	}

	render := func(t *testing.T, model NoiseModel, noise Noise, maxFV float64) []float64 {
		sig := &Signal{SamplingRateInHz: 8000, OriginalDurationInSeconds: 0.05, NoiseF0InHz: 100}
		for i := 0; i < 5; i++ {
			sig.Frames = append(sig.Frames, Frame{
				AnalysisTimeInSeconds:         float64(i) * 0.01,
				MaximumFrequencyOfVoicingInHz: maxFV,
				Noise:                         noise,
			})
		}
		cfg := DefaultConfig()
		cfg.NoiseModel = model
		result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
		Ok(t, err)
		return result.NoisePart
	}

	for model, noise := range tests {
		t.Run(string(model), func(t *testing.T) {
			for _, x := range render(t, model, noise, 4000) {
				Equals(t, 0.0, x)
			}
			Assert(t, averageSampleEnergy(render(t, model, noise, 2000)) > 0, "a noise band below Nyquist should be rendered")
		})
	}
}

func TestTransientFramesAreSkippedByNoise(t *testing.T) {
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.02,
		Frames: []Frame{
			{AnalysisTimeInSeconds: 0.01, Transient: true, Noise: WaveformNoise{Samples: ones(40)}},
		},
		Transients: []TransientSegment{{StartTimeInSeconds: 0.0, Waveform: []float64{0.1}}},
	}

	result, err := newTestSynthesizer(t, DefaultConfig()).Synthesize(sig, nil)
	Ok(t, err)
	for _, x := range result.NoisePart {
		Equals(t, 0.0, x)
	}

	cfg := DefaultConfig()
	cfg.SynthesizeTransients = false
	result, err = newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)
	InDelta(t, 1.0, result.NoisePart[80], 1e-12)
}

func TestTriangularEnvelope(t *testing.T) {
	env := triangularEnvelope(100, 0.5, 1.0)
	Equals(t, 100, len(env))
	Equals(t, 0.5, env[0])
	Equals(t, 0.5, env[14])
	Equals(t, 0.5, env[15])
	Equals(t, 1.0, env[50])
	Equals(t, 0.5, env[85])
	Equals(t, 0.5, env[99])
	Assert(t, env[30] > 0.5 && env[30] < 1.0, "rising edge expected, got %v", env[30])
	Assert(t, env[70] > 0.5 && env[70] < 1.0, "falling edge expected, got %v", env[70])

	Equals(t, 0, len(triangularEnvelope(0, 0.5, 1.0)))
	Equals(t, []float64{0.5}, triangularEnvelope(1, 0.5, 1.0))
}

func TestTriangularEnvelopeShapesSpilledNoise(t *testing.T) {
	// the unvoiced frame's 561 sample burst runs into the voiced frame,
	// which carries no noise of its own
	sig := &Signal{
		SamplingRateInHz:          8000,
		OriginalDurationInSeconds: 0.1,
		Frames: []Frame{
			{Noise: LpcNoise{Coeffs: []float64{0.5}, Gain: 1, AverageSampleEnergy: 0.01}},
			{AnalysisTimeInSeconds: 0.05, MaximumFrequencyOfVoicingInHz: 1000},
		},
	}

	render := func(envelope bool) []float64 {
		cfg := DefaultConfig()
		cfg.NoiseModel = NoiseWindowedOlaLpc
		cfg.ApplyTriangularEnvelope = envelope
		result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
		Ok(t, err)
		return result.NoisePart
	}
	plain, shaped := render(false), render(true)

	// outside the voiced span the two only differ by the removed mean
	offset := shaped[0] - plain[0]
	for n := 0; n < 400; n++ {
		InDelta(t, offset, shaped[n]-plain[n], 1e-12)
	}

	scaled := false
	for n := 400; n < 460; n++ {
		if math.Abs(shaped[n]-plain[n]-offset) > 1e-6 {
			scaled = true
			break
		}
	}
	Assert(t, scaled, "envelope should scale noise spilled into a voiced frame")
}

func TestPseudoHarmonicNoiseStaysAboveVoicing(t *testing.T) {
	const fs = 8000
	amps := make([]float64, 10)
	for i := range amps {
		amps[i] = 0.1
	}

	sig := &Signal{
		SamplingRateInHz:           fs,
		OriginalDurationInSeconds:  0.1,
		UseNoiseAmplitudesDirectly: true,
		NoiseF0InHz:                100,
		Frames: []Frame{
			{AnalysisTimeInSeconds: 0, MaximumFrequencyOfVoicingInHz: 3000, Noise: PseudoHarmonicNoise{Ceps: amps}},
			{AnalysisTimeInSeconds: 0.1, MaximumFrequencyOfVoicingInHz: 3000, Noise: PseudoHarmonicNoise{Ceps: amps}},
		},
	}

	cfg := DefaultConfig()
	cfg.NoiseModel = NoisePseudoHarmonic
	result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)
	Equals(t, 800, len(result.NoisePart))

	// 10 Hz bins; harmonics 30..39 of 100 Hz land exactly on bins 300..390
	spectrum := NewFFT().Forward(result.NoisePart)
	low, total := 0.0, 0.0
	for k := 0; k <= 400; k++ {
		e := cmplx.Abs(spectrum[k]) * cmplx.Abs(spectrum[k])
		total += e
		if k < 295 {
			low += e
		}
	}
	Assert(t, total > 0, "pseudo-harmonic noise should not be silent")
	Assert(t, low < 1e-12*total, "energy below the voicing boundary: %v of %v", low, total)

	for h := 30; h < 40; h++ {
		InDelta(t, 0.1*400, cmplx.Abs(spectrum[10*h]), 1e-6)
	}
}

func TestPseudoHarmonicNoiseFadesAndRedrawsPhase(t *testing.T) {
	amps := make([]float64, 10)
	for i := range amps {
		amps[i] = 0.1
	}
	band := PseudoHarmonicNoise{Ceps: amps}

	sig := &Signal{
		SamplingRateInHz:           8000,
		OriginalDurationInSeconds:  0.25,
		UseNoiseAmplitudesDirectly: true,
		NoiseF0InHz:                100,
		Frames: []Frame{
			{AnalysisTimeInSeconds: 0.00},
			{AnalysisTimeInSeconds: 0.05, MaximumFrequencyOfVoicingInHz: 3000, Noise: band},
			{AnalysisTimeInSeconds: 0.10},
			{AnalysisTimeInSeconds: 0.15, MaximumFrequencyOfVoicingInHz: 3000, Noise: band},
			{AnalysisTimeInSeconds: 0.20},
		},
	}

	cfg := DefaultConfig()
	cfg.NoiseModel = NoisePseudoHarmonic
	result, err := newTestSynthesizer(t, cfg).Synthesize(sig, nil)
	Ok(t, err)
	out := result.NoisePart
	Equals(t, 2000, len(out))

	// each burst fades in from zero over [0, 400) and out over [400, 800)
	for _, onset := range []int{0, 800} {
		Equals(t, 0.0, out[onset])
		InDelta(t, 0.0, out[onset+799], 1e-9)
		Assert(t, averageSampleEnergy(out[onset+300:onset+500]) > 1e-3, "burst at %d should be audible", onset)
	}
	for _, x := range out[1600:] {
		Equals(t, 0.0, x)
	}

	// both bursts have the same envelopes and span whole periods of the
	// noise fundamental, so only a fresh phase draw can tell them apart
	differs := false
	for n := 0; n < 800; n++ {
		if math.Abs(out[n]-out[n+800]) > 1e-6 {
			differs = true
			break
		}
	}
	Assert(t, differs, "each onset should draw new random phases")
}

func equalSamples(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
