package hnm

import (
	"fmt"
	"sort"
)

// TimeMapping replaces each frame's analysis time with a synthesis time.
// It is produced by prosody modification; a nil mapping is the identity.
type TimeMapping struct {
	// Times holds one synthesis instant per frame.
	Times []float64
	// DurationInSeconds overrides the output duration when positive.
	DurationInSeconds float64
}

// timeline is the resolved placement of a signal: synthesis time per frame,
// output duration, and the mapping used for anything anchored between frames.
type timeline struct {
	fs        float64
	times     []float64
	duration  float64
	outputLen int
	origins   []float64
}

func newTimeline(sig *Signal, mapping *TimeMapping) (*timeline, error) {
	tl := &timeline{
		fs:       float64(sig.SamplingRateInHz),
		times:    make([]float64, len(sig.Frames)),
		duration: sig.OriginalDurationInSeconds,
		origins:  make([]float64, len(sig.Frames)),
	}

	for i := range sig.Frames {
		tl.origins[i] = sig.Frames[i].AnalysisTimeInSeconds
		tl.times[i] = tl.origins[i]
	}

	if mapping != nil {
		if len(mapping.Times) != len(sig.Frames) {
			return nil, fmt.Errorf("%w: %d times for %d frames", ErrTimeMappingMismatch, len(mapping.Times), len(sig.Frames))
		}
		copy(tl.times, mapping.Times)
		if mapping.DurationInSeconds > 0 {
			tl.duration = mapping.DurationInSeconds
		}
	}

	if !isFinite(tl.duration) || tl.duration < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidDuration, tl.duration)
	}

	if err := checkMonotonic(tl.origins); err != nil {
		return nil, err
	}
	if mapping != nil {
		if err := checkMonotonic(tl.times); err != nil {
			return nil, fmt.Errorf("time mapping: %w", err)
		}
	}

	tl.outputLen = time2sample(tl.duration, tl.fs)
	return tl, nil
}

// spanTimes returns the interpolation endpoints of frame i: its own instant
// and the next frame's, or the output duration for the last frame.
func (tl *timeline) spanTimes(i int) (float64, float64) {
	if i+1 < len(tl.times) {
		return tl.times[i], tl.times[i+1]
	}
	end := tl.duration
	if end < tl.times[i] {
		end = tl.times[i]
	}
	return tl.times[i], end
}

// spanSamples returns the half-open sample range owned by frame i. The first
// frame owns everything from sample 0.
func (tl *timeline) spanSamples(i int) (int, int) {
	start := 0
	if i > 0 {
		start = time2sample(tl.times[i], tl.fs)
	}
	end := tl.outputLen
	if i+1 < len(tl.times) {
		end = time2sample(tl.times[i+1], tl.fs)
	}
	if end > tl.outputLen {
		end = tl.outputLen
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// mapTime converts an original time into synthesis time by piecewise-linear
// interpolation between frame anchors; outside the anchors the offset to the
// nearest anchor is kept.
func (tl *timeline) mapTime(t float64) float64 {
	n := len(tl.origins)
	if n == 0 {
		return t
	}
	if t <= tl.origins[0] {
		return tl.times[0] + (t - tl.origins[0])
	}
	if t >= tl.origins[n-1] {
		return tl.times[n-1] + (t - tl.origins[n-1])
	}

	j := sort.SearchFloat64s(tl.origins, t)
	if tl.origins[j] == t {
		return tl.times[j]
	}
	t0, t1 := tl.origins[j-1], tl.origins[j]
	s0, s1 := tl.times[j-1], tl.times[j]
	return s0 + (s1-s0)*(t-t0)/(t1-t0)
}

func checkMonotonic(times []float64) error {
	for i, t := range times {
		if !isFinite(t) || t < 0 {
			return fmt.Errorf("%w: frame %d has time %v", ErrNonMonotonicFrames, i, t)
		}
		if i > 0 && t <= times[i-1] {
			return fmt.Errorf("%w: frame %d at %vs does not follow %vs", ErrNonMonotonicFrames, i, t, times[i-1])
		}
	}
	return nil
}
