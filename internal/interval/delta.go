package interval

import "math"

// Delta is the (center, log-width) offset of an interval relative to an anchor.
type Delta struct {
	Center   float64 `json:"center_delta"`
	LogWidth float64 `json:"log_width_delta"`
}

// Decode applies d to the anchor interval and returns the resulting interval.
func Decode(anchor Interval, d Delta) Interval {
	w := anchor.Width()
	c := anchor.Center() + d.Center*w
	return FromCenter(c, w*math.Exp(d.LogWidth))
}

// Encode returns the delta that maps anchor onto gt.
// Both intervals must have a positive width.
func Encode(anchor, gt Interval) Delta {
	aw := anchor.Width()
	return Delta{
		Center:   (gt.Center() - anchor.Center()) / aw,
		LogWidth: math.Log(gt.Width() / aw),
	}
}
