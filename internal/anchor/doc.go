// Package anchor generates the fixed bank of reference intervals used by the
// region proposal network.
//
// The bank is built once per model by Generate and never mutated afterwards.
// Anchor i corresponds to feature-map position i / K and scale i % K, where K is
// ScalesPerPosition; the network's score and offset channels use the same order.
package anchor
