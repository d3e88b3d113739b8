// Package chromatogram loads extracted-ion chromatograms and turns them into
// fixed-length model inputs.
//
// # File Format
//
// A chromatogram file is CSV with a header row. The first column holds retention
// times in strictly increasing order; every further column is one transition
// trace of intensities:
//
//	time,y4,y5,b3
//	1201.4,0,12.5,3
//	1204.8,4,20.1,7
//
// # Model Input
//
// The network sees one intensity per point: Sequence sums the traces. Models are
// built for a fixed sequence length, so Resample interpolates a chromatogram onto
// an evenly spaced time grid of the required size first.
//
// # Labels
//
// LabelWindow converts a retention-time peak window (left and right boundaries,
// as reported by a peak-picking tool) into the index interval used as ground
// truth: the first and last points whose time lies inside the window.
//
// # Thread Safety
//
// Chromatogram values are not modified after loading. Cache is safe for
// concurrent use.
package chromatogram
