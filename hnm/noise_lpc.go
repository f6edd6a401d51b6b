package hnm

import "math"

// synthesizeLpcNoise renders LPC frames with the configured LPC method.
func synthesizeLpcNoise(nc *noiseContext) ([]float64, error) {
	if nc.cfg.LpcSynthesisMethod == LpcWindowedOla {
		return synthesizeWindowedOlaLpcNoise(nc)
	}
	return synthesizeLpFilterNoise(nc)
}

// synthesizeLpFilterNoise drives one continuous all-pole filter with white
// noise, switching coefficients at frame boundaries, then smooths the seams
// with a two-frame overlap-add pass that also restores each frame's energy.
func synthesizeLpFilterNoise(nc *noiseContext) ([]float64, error) {
	raw := make([]float64, nc.tl.outputLen)
	numFrames := len(nc.sig.Frames)

	rendered := 0
	for i := 0; i < numFrames; i++ {
		lpc, ok := nc.lpcAt(i)
		if !ok {
			continue
		}
		start, end := nc.tl.spanSamples(i)
		excitation := nc.whiteNoise(end - start)

		for n := start; n < end; n++ {
			acc := lpc.Gain * excitation[n-start]
			for j := 1; j <= len(lpc.Coeffs) && n-j >= 0; j++ {
				acc += lpc.Coeffs[j-1] * raw[n-j]
			}
			raw[n] = acc
		}
		rendered++
	}

	if rendered == 0 {
		return raw, nil
	}
	if bad := zeroNonFinite(raw); bad > 0 {
		nc.logger.Warn("unstable lpc filter output zeroed", "samples", bad)
	}

	ob := NewOverlapAddBuffer(nc.tl.outputLen)
	for i := 0; i < numFrames; i++ {
		lpc, ok := nc.lpcAt(i)
		if !ok {
			continue
		}

		a := 0
		if i > 0 {
			a = time2sample(nc.tl.times[i-1], nc.tl.fs)
		}
		b := nc.tl.outputLen
		if i+1 < numFrames {
			b = time2sample(nc.tl.times[i+1], nc.tl.fs)
		}
		if b > nc.tl.outputLen {
			b = nc.tl.outputLen
		}
		if b <= a {
			continue
		}

		segment := make([]float64, b-a)
		copy(segment, raw[a:b])

		if cutoff := nc.highpassCutoff(i); cutoff > 0 {
			segment = highpass(nc.fft, segment, cutoff, nc.tl.fs)
		}
		scaleToEnergy(segment, lpc.AverageSampleEnergy)

		ob.AddWindowed(segment, nc.window(len(segment)), a)
	}

	out := ob.Normalize()
	finishLpcNoise(nc, out)

	nc.logger.Debug("lpc filter noise synthesized", "frames", rendered)
	return out, nil
}

// olaBurst returns the first sample and the odd length of frame i's noise
// burst. The burst spans two frame hops when the next frame is noised too,
// and grows by the transition overlap on each side without a noised
// neighbour. It is anchored half the base duration before the frame instant.
func (nc *noiseContext) olaBurst(i int) (start, size int) {
	_, prevNoised := nc.lpcAt(i - 1)
	_, nextNoised := nc.lpcAt(i + 1)

	duration := nc.cfg.NoiseWindowDurationInSeconds
	if nextNoised {
		duration = math.Max(duration, 2.0*(nc.tl.times[i+1]-nc.tl.times[i]))
	}

	size = time2sample(duration, nc.tl.fs)
	overlap := time2sample(nc.cfg.NoiseTransitionOverlapInSeconds, nc.tl.fs)
	if !prevNoised {
		size += overlap
	}
	if !nextNoised {
		size += overlap
	}
	if size%2 == 0 {
		size++
	}

	if i > 0 {
		start = time2sample(math.Max(0, nc.tl.times[i]-0.5*duration), nc.tl.fs)
	}
	return start, size
}

// synthesizeWindowedOlaLpcNoise filters an independent windowed noise burst
// per frame and overlap-adds the bursts weighted by the squared window,
// normalizing by the summed cubed window.
func synthesizeWindowedOlaLpcNoise(nc *noiseContext) ([]float64, error) {
	ob := NewOverlapAddBuffer(nc.tl.outputLen)

	rendered := 0
	for i := range nc.sig.Frames {
		lpc, ok := nc.lpcAt(i)
		if !ok {
			continue
		}

		start, size := nc.olaBurst(i)
		win := nc.window(size)
		burst := nc.gaussianNoise(size)
		for j := range burst {
			burst[j] *= win[j]
		}

		y := arFilter(burst, lpc.Coeffs, lpc.Gain)
		if cutoff := nc.highpassCutoff(i); cutoff > 0 {
			y = highpass(nc.fft, y, cutoff, nc.tl.fs)
		}
		adjustStandardDeviation(y, math.Sqrt(lpc.AverageSampleEnergy))
		zeroNonFinite(y)

		weights := make([]float64, size)
		for j, w := range win {
			y[j] *= w * w
			weights[j] = w * w * w
		}
		ob.Add(y, weights, start)
		rendered++
	}

	out := ob.Normalize()
	if rendered > 0 {
		finishLpcNoise(nc, out)
	}

	nc.logger.Debug("windowed overlap-add lpc noise synthesized", "frames", rendered)
	return out, nil
}
