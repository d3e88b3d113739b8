// Package rpn assembles the 1D region proposal network: a backbone feature
// extractor, a convolutional head and the shared anchor bank.
//
// A Model is built once in a fixed Mode. In Test mode Forward returns ranked
// proposals for every sequence of the batch. In Train mode Forward accepts
// exactly one sequence with its ground-truth intervals and returns the loss.
//
// The anchor bank and head weights are read-only after New, so Test-mode calls
// may run concurrently.
package rpn
