package hnm

import (
	"log/slog"
	"math"
	"runtime"

	"github.com/mjibson/go-dsp/window"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// trackSpan interpolates one harmonic track between two frame instants.
// Amplitude is linear; phase is linear or cubic and meets both boundary
// phases, the far one shifted by the ambiguity order M.
type trackSpan struct {
	ta, tb     float64
	aStart     float64
	aEnd       float64
	phiStart   float64
	phiTarget  float64
	wStart     float64
	cubic      bool
	alpha      float64
	beta       float64
	ambiguityM int
}

// newTrackSpan builds the interpolator from boundary amplitudes, wrapped
// phases and angular frequencies (rad/s).
func newTrackSpan(ta, tb, aStart, aEnd, phiStart, phiEnd, wStart, wEnd float64, method HarmonicMethod) trackSpan {
	s := trackSpan{
		ta:        ta,
		tb:        tb,
		aStart:    aStart,
		aEnd:      aEnd,
		phiStart:  phiStart,
		phiTarget: phiEnd,
		wStart:    wStart,
	}

	T := tb - ta
	if T <= 0 {
		return s
	}

	phaseEstimate := phiStart + 0.5*(wStart+wEnd)*T
	s.ambiguityM = int(math.Floor((phaseEstimate-phiEnd)/twoPi + 0.5))
	s.phiTarget = phiEnd + twoPi*float64(s.ambiguityM)

	if method == HarmonicCubic {
		d := s.phiTarget - phiStart - wStart*T
		dw := wEnd - wStart
		s.cubic = true
		s.alpha = 3.0*d/(T*T) - dw/T
		s.beta = -2.0*d/(T*T*T) + dw/(T*T)
	}

	return s
}

func (s *trackSpan) amplitude(t float64) float64 {
	T := s.tb - s.ta
	if T <= 0 {
		return s.aStart
	}
	frac := (t - s.ta) / T
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return s.aStart + (s.aEnd-s.aStart)*frac
}

func (s *trackSpan) phase(t float64) float64 {
	T := s.tb - s.ta
	if T <= 0 {
		return s.phiStart
	}
	tau := t - s.ta
	if s.cubic {
		return s.phiStart + s.wStart*tau + s.alpha*tau*tau + s.beta*tau*tau*tau
	}
	return s.phiStart + (s.phiTarget-s.phiStart)*tau/T
}

// harmonicSynthesizer renders the voiced component one track at a time.
type harmonicSynthesizer struct {
	cfg     Config
	sig     *Signal
	tl      *timeline
	rising  []float64
	falling []float64
	overlap int
	direct  bool
}

func newHarmonicSynthesizer(cfg Config, sig *Signal, tl *timeline) (*harmonicSynthesizer, error) {
	transitionLen := time2sample(cfg.TrackTransitionInSeconds, tl.fs)
	rising, falling, err := transitionHalves(cfg.TransitionWindow, transitionLen)
	if err != nil {
		return nil, err
	}

	hs := &harmonicSynthesizer{
		cfg:     cfg,
		sig:     sig,
		tl:      tl,
		rising:  rising,
		falling: falling,
		direct:  sig.UseHarmonicAmplitudesDirectly,
	}
	if cfg.OverlappingHarmonicSynthesis {
		hs.overlap = time2sample(cfg.HarmonicSynthesisOverlapInSeconds, tl.fs)
	}
	return hs, nil
}

func (hs *harmonicSynthesizer) amplitude(i, k int) float64 {
	f := &hs.sig.Frames[i]
	if hs.direct {
		return f.Harmonics.Amplitudes[k]
	}
	freq := float64(hs.sig.harmonicNumber(k)) * f.F0InHz
	return cepstrumToLinearAmplitude(f.Harmonics.Ceps, freq, hs.tl.fs, hs.sig.CepstrumWarping)
}

func (hs *harmonicSynthesizer) phase(i, k int) float64 {
	if hs.sig.harmonicNumber(k) == 0 {
		return 0
	}
	return hs.sig.Frames[i].Harmonics.Phases[k]
}

// span returns the interpolator for track k over frame i, extrapolating
// the missing side for onsets and offsets.
func (hs *harmonicSynthesizer) span(i, k int, voiced, nextVoiced bool) trackSpan {
	frames := hs.sig.Frames
	ta, tb := hs.tl.spanTimes(i)
	T := tb - ta
	h := float64(hs.sig.harmonicNumber(k))

	var aStart, aEnd, phiStart, phiEnd, f0, f0Next float64
	if voiced {
		aStart = hs.amplitude(i, k)
		phiStart = hs.phase(i, k)
		f0 = frames[i].F0InHz
	}
	if nextVoiced {
		aEnd = hs.amplitude(i+1, k)
		phiEnd = hs.phase(i+1, k)
		f0Next = frames[i+1].F0InHz
	}

	if !voiced {
		f0 = f0Next
		phiStart = phiEnd - h*twoPi*f0Next*T
	} else if !nextVoiced {
		f0Next = f0
		phiEnd = phiStart + h*twoPi*f0*T
	}

	return newTrackSpan(ta, tb, aStart, aEnd, phiStart, phiEnd, h*twoPi*f0, h*twoPi*f0Next, hs.cfg.HarmonicMethod)
}

// track renders harmonic track k over the whole output and reports how many
// frames had malformed data for it.
func (hs *harmonicSynthesizer) track(k int) (out []float64, skipped int) {
	frames := hs.sig.Frames
	out = make([]float64, hs.tl.outputLen)

	var weights []float64
	if hs.cfg.OverlappingHarmonicSynthesis {
		weights = make([]float64, hs.tl.outputLen)
	}

	for i := range frames {
		voiced := frames[i].hasTrack(k, hs.direct)
		nextVoiced := i+1 < len(frames) && frames[i+1].hasTrack(k, hs.direct)

		if !voiced && k < frames[i].Harmonics.NumTracks() {
			skipped++
		}
		if !voiced && !nextVoiced {
			continue
		}

		s := hs.span(i, k, voiced, nextVoiced)
		if s.tb <= s.ta {
			continue
		}
		start, end := hs.tl.spanSamples(i)

		var overlapWin []float64
		if hs.cfg.OverlappingHarmonicSynthesis {
			start -= hs.overlap
			end += hs.overlap
			if start < 0 {
				start = 0
			}
			if end > hs.tl.outputLen {
				end = hs.tl.outputLen
			}
			if end <= start {
				continue
			}
			overlapWin = normalizePeak(window.Hamming(end - start))
		}

		for n := start; n < end; n++ {
			t := sample2time(n, hs.tl.fs)
			x := s.amplitude(t) * math.Cos(s.phase(t))

			if !voiced && n-start < len(hs.rising) {
				x *= hs.rising[n-start]
			}
			if !nextVoiced && end-n <= len(hs.falling) {
				x *= hs.falling[len(hs.falling)-(end-n)]
			}

			if overlapWin != nil {
				w := overlapWin[n-start]
				x *= w
				weights[n] += w
			}
			out[n] += x
		}
	}

	if weights != nil {
		for n := range out {
			if weights[n] > minOverlapWeight {
				out[n] /= weights[n]
			} else {
				out[n] = 0
			}
		}
	}

	return out, skipped
}

// synthesizeHarmonicPart sums every harmonic track. Tracks are rendered
// concurrently and added in index order.
func synthesizeHarmonicPart(cfg Config, sig *Signal, tl *timeline, logger *slog.Logger) ([]float64, [][]float64, error) {
	part := make([]float64, tl.outputLen)

	numTracks := sig.MaxNumHarmonics()
	if numTracks == 0 || tl.outputLen == 0 {
		return part, nil, nil
	}

	hs, err := newHarmonicSynthesizer(cfg, sig, tl)
	if err != nil {
		return nil, nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	tracks := make([][]float64, numTracks)
	skipped := make([]int, numTracks)

	var g errgroup.Group
	g.SetLimit(workers)
	for k := range tracks {
		g.Go(func() error {
			tracks[k], skipped[k] = hs.track(k)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	totalSkipped := 0
	for k := range tracks {
		floats.Add(part, tracks[k])
		totalSkipped += skipped[k]
	}

	if totalSkipped > 0 {
		logger.Warn("skipped malformed harmonic track values", "count", totalSkipped)
	}
	logger.Debug("harmonic part synthesized", "tracks", numTracks, "method", cfg.HarmonicMethod, "workers", workers)

	return part, tracks, nil
}
