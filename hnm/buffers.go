package hnm

import "math"

// minOverlapWeight is the accumulated window weight below which a sample is
// considered uncovered.
const minOverlapWeight = 1e-10

// OverlapAddBuffer accumulates windowed segments together with the sum of
// the window weights at every sample.
type OverlapAddBuffer struct {
	Data    []float64
	Weights []float64
}

func NewOverlapAddBuffer(length int) *OverlapAddBuffer {
	return &OverlapAddBuffer{
		Data:    make([]float64, length),
		Weights: make([]float64, length),
	}
}

// Add places segment at offset. The segment is expected to already carry
// the window; weights are the window values themselves. Samples outside the
// buffer are dropped.
func (ob *OverlapAddBuffer) Add(segment, weights []float64, offset int) {
	for j := 0; j < len(segment) && j < len(weights); j++ {
		n := offset + j
		if n < 0 {
			continue
		}
		if n >= len(ob.Data) {
			break
		}
		ob.Data[n] += segment[j]
		ob.Weights[n] += weights[j]
	}
}

// AddWindowed multiplies segment by window while placing it at offset.
func (ob *OverlapAddBuffer) AddWindowed(segment, window []float64, offset int) {
	for j := 0; j < len(segment) && j < len(window); j++ {
		n := offset + j
		if n < 0 {
			continue
		}
		if n >= len(ob.Data) {
			break
		}
		ob.Data[n] += window[j] * segment[j]
		ob.Weights[n] += window[j]
	}
}

// Normalize divides every covered sample by its accumulated weight and
// returns the result. Uncovered and non-finite samples become zero.
func (ob *OverlapAddBuffer) Normalize() []float64 {
	out := make([]float64, len(ob.Data))
	for n := range ob.Data {
		if ob.Weights[n] > minOverlapWeight {
			out[n] = ob.Data[n] / ob.Weights[n]
		}
		if math.IsNaN(out[n]) || math.IsInf(out[n], 0) {
			out[n] = 0
		}
	}
	return out
}
