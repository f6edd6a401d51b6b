package hnm

import "github.com/mjibson/go-dsp/window"

// transientEdgeWindow is the peak-normalized Hamming window whose halves
// shape the edges of a transient segment. Its length is odd.
func transientEdgeWindow(overlapInSeconds, fs float64) []float64 {
	size := time2sample(2.0*overlapInSeconds, fs)
	if size%2 == 0 {
		size++
	}
	return normalizePeak(window.Hamming(size))
}

// transientWeight is the gain applied to sample j of a segment of length
// segmentLen: the window's rising half over the leading edge, its falling
// half over the trailing edge, 1 in between.
func transientWeight(win []float64, j, segmentLen int) float64 {
	size := len(win)
	half := (size - 1) / 2

	w := 1.0
	if j < half {
		w = win[j]
	}
	if j >= segmentLen-half {
		if right := win[j-segmentLen+size]; right < w {
			w = right
		}
	}
	return w
}

// synthesizeTransientPart adds every transient segment at its (mapped)
// start time. Segments are independent and clipped to the output.
func synthesizeTransientPart(cfg Config, sig *Signal, tl *timeline) []float64 {
	out := make([]float64, tl.outputLen)
	if !cfg.SynthesizeTransients || len(sig.Transients) == 0 {
		return out
	}

	win := transientEdgeWindow(cfg.TransientOverlapInSeconds, tl.fs)

	for _, segment := range sig.Transients {
		if !isFinite(segment.StartTimeInSeconds) {
			continue
		}
		start := time2sample(tl.mapTime(segment.StartTimeInSeconds), tl.fs)
		segmentLen := len(segment.Waveform)

		for j, x := range segment.Waveform {
			n := start + j
			if n < 0 {
				continue
			}
			if n >= len(out) {
				break
			}
			if !isFinite(x) {
				continue
			}
			out[n] += transientWeight(win, j, segmentLen) * x
		}
	}

	return out
}
