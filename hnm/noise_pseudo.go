package hnm

import "math"

// pseudoHarmonicBand is the block of noise harmonics a frame populates:
// harmonic numbers first..first+count-1 of the noise fundamental.
type pseudoHarmonicBand struct {
	first int
	count int
	ceps  []float64
}

func (b pseudoHarmonicBand) contains(h int) bool {
	return b.count > 0 && h >= b.first && h < b.first+b.count
}

// synthesizePseudoHarmonicNoise renders the band above each frame's maximum
// frequency of voicing as harmonics of a fixed noise fundamental with
// random phases.
func synthesizePseudoHarmonicNoise(nc *noiseContext) ([]float64, error) {
	out := make([]float64, nc.tl.outputLen)
	frames := nc.sig.Frames
	nf0 := nc.sig.noiseF0()
	nyquist := 0.5 * nc.tl.fs
	direct := nc.sig.UseNoiseAmplitudesDirectly

	bands := make([]pseudoHarmonicBand, len(frames))
	maxHarmonic := 0
	for i := range frames {
		ph, ok := nc.pseudoHarmonicAt(i)
		if !ok {
			continue
		}
		maxFV := math.Min(math.Max(frames[i].MaximumFrequencyOfVoicingInHz, 0), nyquist)
		first := int(math.Max(1, math.Floor(maxFV/nf0+0.5)))
		count := int(math.Floor((nyquist - maxFV) / nf0))
		for count > 0 && float64(first+count-1)*nf0 >= nyquist {
			count--
		}
		if direct && count > len(ph.Ceps) {
			count = len(ph.Ceps)
		}
		bands[i] = pseudoHarmonicBand{first: first, count: count, ceps: ph.Ceps}
		if count > 0 && first+count-1 > maxHarmonic {
			maxHarmonic = first + count - 1
		}
	}

	if maxHarmonic == 0 || nc.tl.outputLen == 0 {
		return out, nil
	}

	rising, falling, err := transitionHalves(nc.cfg.TransitionWindow, time2sample(nc.cfg.TrackTransitionInSeconds, nc.tl.fs))
	if err != nil {
		return nil, err
	}

	amplitude := func(i, h int) float64 {
		b := bands[i]
		if direct {
			return b.ceps[h-b.first]
		}
		return cepstrumToLinearAmplitude(b.ceps, float64(h)*nf0, nc.tl.fs, nc.sig.CepstrumWarping)
	}

	for h := 1; h <= maxHarmonic; h++ {
		phaseStep := twoPi * float64(h) * nf0 / nc.tl.fs
		phase := 0.0
		active := false

		for i := range frames {
			present := bands[i].contains(h)
			nextPresent := i+1 < len(frames) && bands[i+1].contains(h)
			if !present && !nextPresent {
				active = false
				continue
			}

			var aStart, aEnd float64
			if present {
				aStart = amplitude(i, h)
			}
			if nextPresent {
				aEnd = amplitude(i+1, h)
			}
			ta, tb := nc.tl.spanTimes(i)
			envelope := newTrackSpan(ta, tb, aStart, aEnd, 0, 0, 0, 0, HarmonicLinear)

			if !present || !active {
				phase = twoPi * (nc.rng.Float64() - 0.5)
			}
			active = true

			start, end := nc.tl.spanSamples(i)
			for n := start; n < end; n++ {
				x := envelope.amplitude(sample2time(n, nc.tl.fs)) * math.Cos(phase)
				if !present && n-start < len(rising) {
					x *= rising[n-start]
				}
				if !nextPresent && end-n <= len(falling) {
					x *= falling[len(falling)-(end-n)]
				}
				out[n] += x
				phase += phaseStep
			}
		}
	}

	nc.logger.Debug("pseudo-harmonic noise synthesized", "noise_f0", nf0, "max_harmonic", maxHarmonic)
	return out, nil
}
