// Package render draws chromatograms with their ground-truth peaks and
// proposals as PNG images.
//
// The plot shows every transition trace as a polyline, shades ground-truth
// intervals and outlines the top proposals with their scores. Lines are
// rasterized as filled quads with golang.org/x/image/vector. Images are
// returned base64-encoded for MCP clients and can optionally be written to disk.
package render
