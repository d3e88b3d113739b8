// Package interval provides the 1D interval geometry shared by anchor
// generation, proposal decoding and target assignment.
//
// # Coordinate Convention
//
// Intervals are closed and expressed in sequence-index units:
//   - [Start, End] covers End - Start + 1 samples
//   - Width() = End - Start + 1
//   - Center() = (Start + End) / 2
//
// A ground-truth peak spanning samples 90 through 110 is Interval{90, 110}: width 21,
// center 100. The same convention is used for anchors, proposals and IoU so that an
// anchor built from (center, width) and a ground truth with the same extent compare
// as identical.
//
// # Regression Parameterization
//
// A Delta moves and rescales an anchor:
//
//	center = anchor.center + delta.Center * anchor.width
//	width  = anchor.width * exp(delta.LogWidth)
//
// Encode is the exact inverse of Decode for positive widths.
package interval
