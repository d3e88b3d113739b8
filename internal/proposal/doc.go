// Package proposal turns per-anchor foreground scores and regression offsets into
// ranked, de-duplicated candidate peak intervals.
//
// # Pipeline
//
//  1. Decode: apply each anchor's predicted delta and clip to [0, L-1]
//  2. Filter: drop degenerate (width <= MinWidth) and non-finite candidates
//  3. Rank: sort by score descending, keep at most PreNMSTopN
//  4. Suppress: greedy 1D non-maximum suppression, at most PostNMSTopN kept
//
// # Determinism
//
// Candidates with equal scores are ordered by anchor index (lowest first), so
// identical inputs always give identical output lists.
//
// # Suppression Threshold
//
// A candidate is discarded when its IoU with an already accepted proposal is greater
// than NMSThreshold. A threshold of 1.0 therefore disables suppression entirely, and a
// threshold of 0.0 keeps only mutually non-overlapping proposals.
//
// # Empty Results
//
// An empty proposal list is a valid result, not an error. Callers must check the
// length before reading the top proposal.
package proposal
