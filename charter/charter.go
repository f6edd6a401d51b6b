// Package charter renders synthesized signal components as HTML line charts.
package charter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// MaxPoints is the number of points plotted per series; longer signals are
// decimated.
const MaxPoints = 4000

// RenderComponents writes one line chart with a series per component to
// path. All series are expected to share the sampling rate fs.
func RenderComponents(path, title string, fs int, series map[string][]float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("charter: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	return WriteComponents(f, title, fs, series)
}

// WriteComponents renders the chart of RenderComponents to w.
func WriteComponents(w io.Writer, title string, fs int, series map[string][]float64) error {
	if fs <= 0 {
		return errors.New("charter: sampling rate must be positive")
	}

	names := make([]string, 0, len(series))
	longest := 0
	for name, data := range series {
		names = append(names, name)
		if len(data) > longest {
			longest = len(data)
		}
	}
	sort.Strings(names)

	step := decimationStep(longest)

	xLabels := make([]string, 0, longest/step+1)
	for i := 0; i < longest; i += step {
		xLabels = append(xLabels, fmt.Sprintf("%.4f", float64(i)/float64(fs)))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d Hz, every %d. sample", fs, step),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
		charts.WithXAxisOpts(opts.XAxis{Name: "s"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	line.SetXAxis(xLabels)
	for _, name := range names {
		line.AddSeries(name, lineItems(series[name], step, len(xLabels)))
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: false}),
	)

	return line.Render(w)
}

func decimationStep(length int) int {
	if length <= MaxPoints {
		return 1
	}
	return (length + MaxPoints - 1) / MaxPoints
}

// lineItems picks every step-th sample; series shorter than the axis are
// padded with zeros.
func lineItems(data []float64, step, count int) []opts.LineData {
	items := make([]opts.LineData, count)
	for i := range items {
		n := i * step
		value := 0.0
		if n < len(data) {
			value = data[n]
		}
		items[i] = opts.LineData{Value: value}
	}
	return items
}
