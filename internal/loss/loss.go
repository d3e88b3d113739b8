package loss

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/target"
)

// ErrShape is returned when the per-anchor inputs have different lengths.
var ErrShape = errors.New("loss: per-anchor inputs differ in length")

// logFloor bounds log(p) from below so that p = 0 or 1 gives a large but finite loss.
const logFloor = -100

// Config holds the loss hyperparameters.
type Config struct {
	// Sigma sets the smooth-L1 transition point at |d| = 1/sigma².
	Sigma float64 `json:"sigma"`

	// BoxWeight scales the regression term in the total.
	BoxWeight float64 `json:"loss_box_weight"`
}

// DefaultConfig returns sigma 1 and an unweighted regression term.
func DefaultConfig() Config {
	return Config{Sigma: 1, BoxWeight: 1}
}

// Validate checks that sigma is positive and the box weight non-negative.
func (c Config) Validate() error {
	if !(c.Sigma > 0) || math.IsInf(c.Sigma, 0) {
		return fmt.Errorf("loss: sigma must be positive and finite, got %v", c.Sigma)
	}
	if !(c.BoxWeight >= 0) || math.IsInf(c.BoxWeight, 0) {
		return fmt.Errorf("loss: loss_box_weight must be non-negative and finite, got %v", c.BoxWeight)
	}
	return nil
}

// Inputs are the per-anchor predictions and targets of one sample, in bank order.
type Inputs struct {
	Probs   []float64
	Labels  []target.Label
	Pred    []interval.Delta
	Target  []interval.Delta
	Weights []target.Weights
}

// Breakdown is the loss of one sample split into its terms.
type Breakdown struct {
	Classification float64 `json:"classification"`
	Regression     float64 `json:"regression"`
	Total          float64 `json:"total"`
}

// Compute returns the classification, regression and total loss of one sample.
func Compute(in Inputs, cfg Config) (Breakdown, error) {
	if err := cfg.Validate(); err != nil {
		return Breakdown{}, err
	}
	n := len(in.Probs)
	if len(in.Labels) != n || len(in.Pred) != n || len(in.Target) != n || len(in.Weights) != n {
		return Breakdown{}, fmt.Errorf("%w: probs %d, labels %d, pred %d, target %d, weights %d",
			ErrShape, n, len(in.Labels), len(in.Pred), len(in.Target), len(in.Weights))
	}

	cls := BinaryCrossEntropy(in.Probs, in.Labels)
	reg := SmoothL1(in.Pred, in.Target, in.Weights, cfg.Sigma)
	return Breakdown{
		Classification: cls,
		Regression:     reg,
		Total:          cls + cfg.BoxWeight*reg,
	}, nil
}

// BinaryCrossEntropy returns the mean binary cross-entropy between probs and the
// 0/1 targets of the labels, over anchors that are not Ignore.
// It returns 0 when no anchor is labeled.
func BinaryCrossEntropy(probs []float64, labels []target.Label) float64 {
	terms := make([]float64, 0, len(probs))
	for i, l := range labels {
		y, ok := l.Target()
		if !ok {
			continue
		}
		p := probs[i]
		terms = append(terms, -(y*clampedLog(p) + (1-y)*clampedLog(1-p)))
	}
	if len(terms) == 0 {
		return 0
	}
	return floats.Sum(terms) / float64(len(terms))
}

func clampedLog(x float64) float64 {
	if x <= 0 {
		return logFloor
	}
	return math.Max(math.Log(x), logFloor)
}

// SmoothL1 returns the weighted smooth-L1 regression loss summed over the two
// channels and averaged over all anchors. It returns 0 for an empty input.
func SmoothL1(pred, tgt []interval.Delta, weights []target.Weights, sigma float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	perAnchor := make([]float64, len(pred))
	for i := range pred {
		w := weights[i]
		diff := [2]float64{pred[i].Center - tgt[i].Center, pred[i].LogWidth - tgt[i].LogWidth}
		for ch := 0; ch < 2; ch++ {
			perAnchor[i] += w.Outside[ch] * SmoothL1Term(w.Inside[ch]*diff[ch], sigma)
		}
	}
	return floats.Sum(perAnchor) / float64(len(perAnchor))
}

// SmoothL1Term returns the smooth-L1 value of a single residual d.
func SmoothL1Term(d, sigma float64) float64 {
	s2 := sigma * sigma
	ad := math.Abs(d)
	if ad < 1/s2 {
		return 0.5 * s2 * d * d
	}
	return ad - 0.5/s2
}
