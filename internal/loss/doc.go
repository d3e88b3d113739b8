// Package loss combines the RPN classification and regression signals into a
// scalar training loss.
//
// The classification term is binary cross-entropy over anchors that are not
// Ignore. When no anchor is labeled the term is defined as 0 rather than NaN.
//
// The regression term is a smooth-L1 over the (center, log-width) channels:
//
//	d = inside * (pred - target)
//	term = 0.5 * sigma² * d²      if |d| < 1/sigma²
//	term = |d| - 0.5 / sigma²     otherwise
//
// Each term is scaled by the outside weight, summed over both channels and
// averaged over all anchors.
package loss
