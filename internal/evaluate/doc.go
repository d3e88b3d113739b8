// Package evaluate scores peak predictions against reference peak boundaries.
//
// Each Record pairs a reference peak (with the reference tool's score) and the
// model's top proposal (with its objectness score) for one chromatogram. A side
// whose score is below its threshold counts as "no peak". The tally follows:
//
//	reference  prediction  outcome
//	none       none        true negative
//	none       peak        false positive
//	peak       none        false negative
//	peak       peak        true positive if the intervals overlap, else false positive
package evaluate
