// Package backbone provides feature extractors that map an intensity sequence of
// length L to a feature map of shape (channels, floor(L / stride)).
//
// The region proposal network treats the backbone as an opaque, deterministic
// function; only the output shape matters. Two implementations are provided:
//
//   - Pooling: weight-free window statistics, deterministic and dependency-light
//   - Loom: a strided conv1d network built with github.com/openfluke/loom
//
// Loom weights are written with (*Loom).Save and restored with LoadLoom.
//
// Feature maps are float64 gorgonia.org/tensor Dense values laid out channel-major,
// so element (c, p) lives at index c*length + p of the backing slice.
package backbone
