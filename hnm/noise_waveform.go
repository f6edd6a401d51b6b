package hnm

// synthesizeWaveformNoise overlap-adds the stored noise waveforms, each
// centered on its frame instant, and normalizes by the accumulated window
// weight.
func synthesizeWaveformNoise(nc *noiseContext) ([]float64, error) {
	ob := NewOverlapAddBuffer(nc.tl.outputLen)

	placed := 0
	for i := range nc.sig.Frames {
		wf, ok := nc.waveformAt(i)
		if !ok {
			continue
		}

		segment := make([]float64, len(wf.Samples))
		copy(segment, wf.Samples)
		zeroNonFinite(segment)

		if cutoff := nc.highpassCutoff(i); cutoff > 0 {
			segment = highpass(nc.fft, segment, cutoff, nc.tl.fs)
		}

		offset := time2sample(nc.tl.times[i], nc.tl.fs) - len(segment)/2
		ob.AddWindowed(segment, nc.window(len(segment)), offset)
		placed++
	}

	out := ob.Normalize()
	removePreemphasis(out, nc.sig.PreemphasisCoefNoise)

	nc.logger.Debug("waveform noise synthesized", "frames", placed)
	return out, nil
}
