package backbone

import (
	"errors"
	"fmt"
	"math"

	"gorgonia.org/tensor"
)

// ErrTooShort is returned when a sequence yields an empty feature map.
var ErrTooShort = errors.New("backbone: sequence shorter than one stride")

// Backbone extracts a feature map from one intensity sequence.
type Backbone interface {
	// Extract returns a (Channels(), floor(len(seq)/Stride())) float64 tensor.
	Extract(seq []float32) (*tensor.Dense, error)

	// Channels is the number of feature channels produced.
	Channels() int

	// Stride is the number of input samples per feature-map position.
	Stride() int
}

// OutputLength returns floor(seqLen / stride), the feature-map length.
func OutputLength(seqLen, stride int) int {
	if stride <= 0 {
		return 0
	}
	return seqLen / stride
}

// Pooling summarizes each window of Stride samples with four statistics:
// mean, max, min and slope (last minus first), all divided by the largest
// absolute intensity of the sequence so that features are scale-free.
type Pooling struct {
	stride int
}

// NewPooling creates a pooling backbone with the given stride.
func NewPooling(stride int) (*Pooling, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("backbone: stride must be positive, got %d", stride)
	}
	return &Pooling{stride: stride}, nil
}

// Channels returns 4.
func (p *Pooling) Channels() int { return 4 }

// Stride returns the window size.
func (p *Pooling) Stride() int { return p.stride }

// Extract computes the window statistics of seq.
func (p *Pooling) Extract(seq []float32) (*tensor.Dense, error) {
	n := OutputLength(len(seq), p.stride)
	if n == 0 {
		return nil, fmt.Errorf("%w: length %d, stride %d", ErrTooShort, len(seq), p.stride)
	}

	scale := 0.0
	for _, v := range seq {
		scale = math.Max(scale, math.Abs(float64(v)))
	}
	if scale == 0 {
		scale = 1
	}

	data := make([]float64, 4*n)
	for pos := 0; pos < n; pos++ {
		window := seq[pos*p.stride : (pos+1)*p.stride]
		sum, hi, lo := 0.0, math.Inf(-1), math.Inf(1)
		for _, v := range window {
			f := float64(v) / scale
			sum += f
			hi = math.Max(hi, f)
			lo = math.Min(lo, f)
		}
		data[0*n+pos] = sum / float64(len(window))
		data[1*n+pos] = hi
		data[2*n+pos] = lo
		data[3*n+pos] = float64(window[len(window)-1]-window[0]) / scale
	}

	return tensor.New(tensor.WithShape(4, n), tensor.WithBacking(data)), nil
}
