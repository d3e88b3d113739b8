package anchor

import (
	"fmt"
	"math"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
)

// Anchor is one reference interval of the bank.
type Anchor struct {
	Index  int     `json:"index"`  // Position in the bank (position-major, scale-minor)
	Center float64 `json:"center"` // Center in input-sequence units
	Width  float64 `json:"width"`  // Width in input-sequence units, always > 0
}

// Interval returns the closed interval covered by the anchor.
func (a Anchor) Interval() interval.Interval {
	return interval.FromCenter(a.Center, a.Width)
}

// Config describes the anchor bank layout.
type Config struct {
	// FeatureLength is the number of feature-map positions, floor(L / stride).
	FeatureLength int `json:"feature_length"`

	// Stride is the distance between neighboring positions in input units.
	Stride float64 `json:"stride"`

	// BaseWidth is multiplied by every scale to give the anchor widths.
	BaseWidth float64 `json:"base_width"`

	// Scales are the width multipliers emitted at every position, in channel order.
	Scales []float64 `json:"scales"`
}

// DefaultConfig returns the anchor layout for 201-sample chromatograms at stride 1.
func DefaultConfig() Config {
	return Config{
		FeatureLength: 201,
		Stride:        1,
		BaseWidth:     1,
		Scales:        []float64{5, 11, 21, 31, 41, 61},
	}
}

// Validate checks that the configuration yields a non-empty bank of positive widths.
func (c Config) Validate() error {
	if c.FeatureLength <= 0 {
		return fmt.Errorf("anchor: feature length must be positive, got %d", c.FeatureLength)
	}
	if !(c.Stride > 0) || math.IsInf(c.Stride, 0) {
		return fmt.Errorf("anchor: stride must be positive and finite, got %v", c.Stride)
	}
	if !(c.BaseWidth > 0) || math.IsInf(c.BaseWidth, 0) {
		return fmt.Errorf("anchor: base width must be positive and finite, got %v", c.BaseWidth)
	}
	if len(c.Scales) == 0 {
		return fmt.Errorf("anchor: at least one scale is required")
	}
	for i, s := range c.Scales {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("anchor: scale %d must be positive and finite, got %v", i, s)
		}
	}
	return nil
}

// Bank is an immutable, ordered set of anchors. It is safe for concurrent use.
type Bank struct {
	anchors []Anchor
	scales  int
	stride  float64
}

// Generate builds the anchor bank for cfg.
//
// For every position p in [0, FeatureLength) and every scale s (in order), it emits
// an anchor centered at p*Stride with width BaseWidth*s. The result is deterministic:
// the same configuration always produces the same anchors in the same order.
func Generate(cfg Config) (*Bank, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	k := len(cfg.Scales)
	anchors := make([]Anchor, 0, cfg.FeatureLength*k)
	for p := 0; p < cfg.FeatureLength; p++ {
		center := float64(p) * cfg.Stride
		for _, s := range cfg.Scales {
			anchors = append(anchors, Anchor{
				Index:  len(anchors),
				Center: center,
				Width:  cfg.BaseWidth * s,
			})
		}
	}

	return &Bank{anchors: anchors, scales: k, stride: cfg.Stride}, nil
}

// Len returns the number of anchors (positions × scales).
func (b *Bank) Len() int { return len(b.anchors) }

// ScalesPerPosition returns K, the number of anchors emitted per position.
func (b *Bank) ScalesPerPosition() int { return b.scales }

// Positions returns the number of feature-map positions covered by the bank.
func (b *Bank) Positions() int { return len(b.anchors) / b.scales }

// Stride returns the spacing between positions in input units.
func (b *Bank) Stride() float64 { return b.stride }

// At returns anchor i. It panics if i is out of range, like slice indexing.
func (b *Bank) At(i int) Anchor { return b.anchors[i] }

// Interval returns the closed interval of anchor i.
func (b *Bank) Interval(i int) interval.Interval { return b.anchors[i].Interval() }

// Index returns the bank index of the anchor at (position, scale).
func (b *Bank) Index(position, scale int) int { return position*b.scales + scale }

// All returns a copy of the anchors in bank order.
func (b *Bank) All() []Anchor {
	out := make([]Anchor, len(b.anchors))
	copy(out, b.anchors)
	return out
}

// Summary describes the bank for reporting.
type Summary struct {
	Count             int       `json:"count"`
	Positions         int       `json:"positions"`
	ScalesPerPosition int       `json:"scales_per_position"`
	Stride            float64   `json:"stride"`
	Widths            []float64 `json:"widths"`
}

// Summarize returns the bank dimensions and the widths emitted at each position.
func (b *Bank) Summarize() Summary {
	widths := make([]float64, b.scales)
	for s := 0; s < b.scales; s++ {
		widths[s] = b.anchors[s].Width
	}
	return Summary{
		Count:             b.Len(),
		Positions:         b.Positions(),
		ScalesPerPosition: b.scales,
		Stride:            b.stride,
		Widths:            widths,
	}
}
