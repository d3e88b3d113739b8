package chromatogram

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
)

// Chromatogram is a set of intensity traces sampled at shared retention times.
type Chromatogram struct {
	// Path is the file the chromatogram was read from, empty for in-memory data.
	Path string

	// Times are the retention times, strictly increasing.
	Times []float64

	// TraceNames label the traces in column order.
	TraceNames []string

	// Traces hold one intensity per time point each.
	Traces [][]float64
}

// Len returns the number of time points.
func (c *Chromatogram) Len() int { return len(c.Times) }

// Summed returns the point-wise sum of all traces.
func (c *Chromatogram) Summed() []float64 {
	out := make([]float64, len(c.Times))
	for _, tr := range c.Traces {
		floats.Add(out, tr)
	}
	return out
}

// Sequence returns the summed traces as model input.
func (c *Chromatogram) Sequence() []float32 {
	summed := c.Summed()
	out := make([]float32, len(summed))
	for i, v := range summed {
		out[i] = float32(v)
	}
	return out
}

// Info summarizes the chromatogram. FileSizeBytes is left zero.
func (c *Chromatogram) Info() *Info {
	summed := c.Summed()
	apex := floats.MaxIdx(summed)
	return &Info{
		Path:         c.Path,
		Points:       len(c.Times),
		Traces:       append([]string(nil), c.TraceNames...),
		StartTime:    c.Times[0],
		EndTime:      c.Times[len(c.Times)-1],
		MaxIntensity: summed[apex],
		ApexTime:     c.Times[apex],
	}
}

// Resample interpolates every trace linearly onto n evenly spaced times spanning
// the original time range.
func (c *Chromatogram) Resample(n int) (*Chromatogram, error) {
	if n < 2 {
		return nil, fmt.Errorf("chromatogram: resample needs at least 2 points, got %d", n)
	}
	if len(c.Times) == n {
		return c, nil
	}

	times := make([]float64, n)
	floats.Span(times, c.Times[0], c.Times[len(c.Times)-1])

	out := &Chromatogram{
		Path:       c.Path,
		Times:      times,
		TraceNames: append([]string(nil), c.TraceNames...),
		Traces:     make([][]float64, len(c.Traces)),
	}
	for i, tr := range c.Traces {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(c.Times, tr); err != nil {
			return nil, fmt.Errorf("chromatogram: trace %s: %w", c.TraceNames[i], err)
		}
		resampled := make([]float64, n)
		for j, t := range times {
			resampled[j] = pl.Predict(t)
		}
		out.Traces[i] = resampled
	}
	return out, nil
}

// TimeAt maps a fractional point index to a retention time by linear
// interpolation, clamping to the first and last times.
func (c *Chromatogram) TimeAt(pos float64) float64 {
	last := len(c.Times) - 1
	switch {
	case pos <= 0:
		return c.Times[0]
	case pos >= float64(last):
		return c.Times[last]
	}
	i := int(math.Floor(pos))
	frac := pos - float64(i)
	return c.Times[i] + frac*(c.Times[i+1]-c.Times[i])
}

// TimeWindow converts an index interval to the retention-time window it covers.
func (c *Chromatogram) TimeWindow(iv interval.Interval) (left, right float64) {
	return c.TimeAt(iv.Start), c.TimeAt(iv.End)
}

// LabelWindow returns the index interval of the points whose time lies in
// [left, right]. ok is false when no point falls inside the window or the window
// is empty.
func LabelWindow(times []float64, left, right float64) (iv interval.Interval, ok bool) {
	if !(left <= right) {
		return interval.Interval{}, false
	}
	first := sort.SearchFloat64s(times, left)
	last := sort.Search(len(times), func(i int) bool { return times[i] > right }) - 1
	if first >= len(times) || last < first {
		return interval.Interval{}, false
	}
	return interval.Interval{Start: float64(first), End: float64(last)}, true
}

// Labels returns a 0/1 mask over times marking the points inside [left, right].
func Labels(times []float64, left, right float64) []int {
	out := make([]int, len(times))
	for i, t := range times {
		if left <= t && t <= right {
			out[i] = 1
		}
	}
	return out
}
