package hnm

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mjibson/go-dsp/window"
)

const twoPi float64 = math.Pi * 2

type windowFunction func(int) []float64

// WindowFunctions maps window names accepted in a Config to their
// implementations.
var WindowFunctions = map[string]windowFunction{
	"hamming":   window.Hamming,
	"hann":      window.Hann,
	"blackman":  window.Blackman,
	"bartlett":  window.Bartlett,
	"flattop":   window.FlatTop,
	"rectangle": window.Rectangular,
	"gauss":     GaussWindow,
	"kaiser":    KaiserWindow,
	"triangle":  TriangleWindow,
}

func WindowNames() []string {
	windowNames := make([]string, 0, len(WindowFunctions))
	for windowName := range WindowFunctions {
		windowNames = append(windowNames, windowName)
	}
	sort.Strings(windowNames)
	return windowNames
}

func WindowNamesString() string {
	return strings.Join(WindowNames(), ", ")
}

// newWindow returns the named window of the given size. Sizes below one give
// an empty window.
func newWindow(name string, size int) ([]float64, error) {
	windowFunction := WindowFunctions[name]
	if windowFunction == nil {
		return nil, fmt.Errorf("invalid window function (%s), valid options are: %s", name, WindowNamesString())
	}
	if size < 1 {
		return []float64{}, nil
	}
	return windowFunction(size), nil
}

// GaussWindow is a Gaussian window reaching exp(-3.125) at its edges.
func GaussWindow(windowSize int) []float64 {
	w := make([]float64, windowSize)
	if windowSize == 1 {
		w[0] = 1
		return w
	}

	const alpha = 2.5
	half := float64(windowSize-1) / 2.0
	for i := range w {
		x := alpha * (float64(i) - half) / half
		w[i] = math.Exp(-0.5 * x * x)
	}
	return w
}

// KaiserWindow is a Kaiser window with beta 6.8.
func KaiserWindow(windowSize int) []float64 {
	const beta = 6.8
	w := make([]float64, windowSize)
	if windowSize == 1 {
		w[0] = 1
		return w
	}

	norm := besselI0(beta)
	half := float64(windowSize-1) / 2.0
	for i := range w {
		r := (float64(i) - half) / half
		w[i] = besselI0(beta*math.Sqrt(math.Max(0, 1-r*r))) / norm
	}
	return w
}

// TriangleWindow is triangular like bartlett, but its end points stay above
// zero.
func TriangleWindow(windowSize int) []float64 {
	w := make([]float64, windowSize)
	denom := float64(windowSize)
	if windowSize%2 == 1 {
		denom++
	}
	for i := range w {
		w[i] = 1 - math.Abs(float64(2*i-(windowSize-1)))/denom
	}
	return w
}

// normalizePeak scales w in place so its largest value is 1.
func normalizePeak(w []float64) []float64 {
	peak := 0.0
	for _, v := range w {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	if peak > 0 {
		for i := range w {
			w[i] /= peak
		}
	}
	return w
}

// transitionHalves splits a peak-normalized window of 2*length points into
// its rising and falling halves.
func transitionHalves(name string, length int) (rising, falling []float64, err error) {
	if length < 1 {
		return []float64{}, []float64{}, nil
	}
	w, err := newWindow(name, 2*length)
	if err != nil {
		return nil, nil, err
	}
	normalizePeak(w)
	return w[:length], w[length:], nil
}

// besselI0 is the zeroth-order modified Bessel function of the first kind,
// summed as a power series.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	half := x / 2.0
	for k := 1; k <= 50; k++ {
		term *= half / float64(k)
		sq := term * term
		sum += sq
		if sq < 1e-12*sum {
			break
		}
	}
	return sum
}
