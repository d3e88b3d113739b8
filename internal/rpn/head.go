package rpn

import (
	"fmt"
	"math"
	"math/rand"

	"gorgonia.org/tensor"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
)

// initStd is the standard deviation of the head's initial weights.
const initStd = 0.01

// Head maps a (C, N) feature map to K objectness scores and K deltas per position.
//
// Layers:
//
//	shared = relu(pointwise(depthwise(x)))   depthwise kernel k, C -> hidden
//	scores = sigmoid(cls · shared)           hidden -> K
//	deltas = reg · shared                    hidden -> 2K
//
// Score channel s at position p belongs to anchor p*K + s; delta channels 2s
// and 2s+1 hold its center and log-width offsets.
type Head struct {
	in, hidden, kernel, scales int

	depthwise []float64     // in × kernel
	pointwise *tensor.Dense // hidden × in
	sharedB   []float64     // hidden
	cls       *tensor.Dense // K × hidden
	clsB      []float64     // K
	reg       *tensor.Dense // 2K × hidden
	regB      []float64     // 2K
}

// HeadOutput is the head's prediction for one sample, in anchor bank order.
type HeadOutput struct {
	Probs  []float64
	Deltas []interval.Delta
}

// NewHead creates a head with normally distributed weights drawn from seed and zero biases.
func NewHead(in, hidden, kernel, scales int, seed int64) (*Head, error) {
	if in <= 0 || hidden <= 0 || kernel <= 0 || scales <= 0 {
		return nil, fmt.Errorf("rpn: head dimensions must be positive: in %d, hidden %d, kernel %d, scales %d",
			in, hidden, kernel, scales)
	}
	rng := rand.New(rand.NewSource(seed))
	normal := func(n int) []float64 {
		w := make([]float64, n)
		for i := range w {
			w[i] = rng.NormFloat64() * initStd
		}
		return w
	}

	return &Head{
		in:        in,
		hidden:    hidden,
		kernel:    kernel,
		scales:    scales,
		depthwise: normal(in * kernel),
		pointwise: tensor.New(tensor.WithShape(hidden, in), tensor.WithBacking(normal(hidden*in))),
		sharedB:   make([]float64, hidden),
		cls:       tensor.New(tensor.WithShape(scales, hidden), tensor.WithBacking(normal(scales*hidden))),
		clsB:      make([]float64, scales),
		reg:       tensor.New(tensor.WithShape(2*scales, hidden), tensor.WithBacking(normal(2*scales*hidden))),
		regB:      make([]float64, 2*scales),
	}, nil
}

// SetObjectnessBias sets the bias of every score channel, shifting all
// probabilities to sigmoid(bias) before the weighted term.
func (h *Head) SetObjectnessBias(bias float64) {
	for i := range h.clsB {
		h.clsB[i] = bias
	}
}

// Forward runs the head over a feature map of shape (in, N).
func (h *Head) Forward(fm *tensor.Dense) (*HeadOutput, error) {
	shape := fm.Shape()
	if len(shape) != 2 || shape[0] != h.in {
		return nil, fmt.Errorf("rpn: head expects a (%d, N) feature map, got %v", h.in, shape)
	}
	n := shape[1]

	x, ok := fm.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("rpn: feature map must be float64, got %v", fm.Dtype())
	}

	dw := tensor.New(tensor.WithShape(h.in, n), tensor.WithBacking(h.depthwiseConv(x, n)))
	shared, err := h.pointwise.MatMul(dw)
	if err != nil {
		return nil, fmt.Errorf("rpn: pointwise conv: %w", err)
	}
	addBias(shared.Float64s(), h.sharedB, n)
	relu(shared.Float64s())

	scores, err := h.cls.MatMul(shared)
	if err != nil {
		return nil, fmt.Errorf("rpn: score conv: %w", err)
	}
	offsets, err := h.reg.MatMul(shared)
	if err != nil {
		return nil, fmt.Errorf("rpn: delta conv: %w", err)
	}
	s := scores.Float64s()
	r := offsets.Float64s()
	addBias(s, h.clsB, n)
	addBias(r, h.regB, n)

	out := &HeadOutput{
		Probs:  make([]float64, n*h.scales),
		Deltas: make([]interval.Delta, n*h.scales),
	}
	for p := 0; p < n; p++ {
		for k := 0; k < h.scales; k++ {
			i := p*h.scales + k
			out.Probs[i] = sigmoid(s[k*n+p])
			out.Deltas[i] = interval.Delta{
				Center:   r[(2*k)*n+p],
				LogWidth: r[(2*k+1)*n+p],
			}
		}
	}
	return out, nil
}

// depthwiseConv applies one kernel per channel with zero "same" padding.
func (h *Head) depthwiseConv(x []float64, n int) []float64 {
	out := make([]float64, h.in*n)
	left := (h.kernel - 1) / 2
	for c := 0; c < h.in; c++ {
		w := h.depthwise[c*h.kernel : (c+1)*h.kernel]
		row := x[c*n : (c+1)*n]
		for p := 0; p < n; p++ {
			sum := 0.0
			for j, wj := range w {
				q := p + j - left
				if q < 0 || q >= n {
					continue
				}
				sum += wj * row[q]
			}
			out[c*n+p] = sum
		}
	}
	return out
}

func addBias(m, bias []float64, n int) {
	for c, b := range bias {
		if b == 0 {
			continue
		}
		row := m[c*n : (c+1)*n]
		for i := range row {
			row[i] += b
		}
	}
}

func relu(v []float64) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
