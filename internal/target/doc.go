// Package target assigns training labels, regression targets and loss weights to
// anchors given the ground-truth peak intervals of one sample.
//
// # Labeling Rules
//
// Rules are applied in priority order:
//
//  1. For each ground truth, the anchor(s) with the highest IoU are Positive. This
//     guarantees every ground truth at least one matched anchor, even when its best
//     IoU is below IoUHigh. When a ground truth overlaps no anchor at all, the anchor
//     whose center is nearest to the ground-truth center is used instead.
//  2. Any other anchor whose best IoU is at least IoUHigh is Positive.
//  3. Any remaining anchor whose best IoU is below IoULow is Negative.
//  4. Everything else is Ignore.
//
// # Balancing
//
// PositiveCap and NegativeCap (0 disables) demote a random subset of each class to
// Ignore. The subset is drawn from a math/rand source seeded with Seed, so the same
// inputs always produce the same labels. Anchors forced Positive by rule 1 are never
// demoted.
//
// # Weights
//
// Inside weights are 1 on both channels for Positive anchors and 0 elsewhere, so the
// regression loss only sees matched anchors. Outside weights are 1/N for every
// Positive or Negative anchor, where N is the number of such anchors, and 0 for Ignore.
//
// # Concurrency
//
// Assign is a pure function of its inputs and the read-only anchor bank; AssignBatch
// runs it for several samples in parallel.
package target
