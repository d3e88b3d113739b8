package interval

import (
	"fmt"
	"math"
)

// Interval is a closed range [Start, End] in sequence-index units.
type Interval struct {
	Start float64 `json:"start"` // First covered index (inclusive)
	End   float64 `json:"end"`   // Last covered index (inclusive)
}

// FromCenter builds the interval of the given width centered at c.
func FromCenter(c, w float64) Interval {
	half := (w - 1) / 2
	return Interval{Start: c - half, End: c + half}
}

// Width returns the number of samples covered by the interval.
// Degenerate intervals (End < Start - 1) have a non-positive width.
func (iv Interval) Width() float64 {
	return iv.End - iv.Start + 1
}

// Center returns the midpoint of the interval.
func (iv Interval) Center() float64 {
	return (iv.Start + iv.End) / 2
}

// Valid reports whether both ends are finite and the width is positive.
func (iv Interval) Valid() bool {
	if math.IsNaN(iv.Start) || math.IsNaN(iv.End) || math.IsInf(iv.Start, 0) || math.IsInf(iv.End, 0) {
		return false
	}
	return iv.Width() > 0
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g]", iv.Start, iv.End)
}

// Clip clamps both ends of the interval into [0, length-1].
func Clip(iv Interval, length int) Interval {
	hi := float64(length - 1)
	return Interval{
		Start: math.Max(0, math.Min(iv.Start, hi)),
		End:   math.Max(0, math.Min(iv.End, hi)),
	}
}

// Intersection returns the number of samples shared by a and b (0 if disjoint).
func Intersection(a, b Interval) float64 {
	inter := math.Min(a.End, b.End) - math.Max(a.Start, b.Start) + 1
	if inter < 0 {
		return 0
	}
	return inter
}

// IoU returns the intersection-over-union of a and b.
//
// The result is in [0, 1]; it is 0 for disjoint intervals and when the union is empty.
func IoU(a, b Interval) float64 {
	inter := Intersection(a, b)
	union := a.Width() + b.Width() - inter
	if union <= 0 || inter <= 0 {
		return 0
	}
	iou := inter / union
	if iou > 1 {
		return 1
	}
	return iou
}
