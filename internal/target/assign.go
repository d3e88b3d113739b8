package target

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gorgonia.org/tensor"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/anchor"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/parallel"
)

var (
	// ErrInvalidGroundTruth is returned for ground truths with a non-positive or non-finite width.
	ErrInvalidGroundTruth = errors.New("target: invalid ground-truth interval")

	// ErrNoEligibleAnchors is returned when IgnoreOutside excludes every anchor.
	ErrNoEligibleAnchors = errors.New("target: no anchor lies inside the sequence")
)

// Config controls label assignment.
type Config struct {
	// IoUHigh is the best-IoU at or above which an anchor is Positive.
	IoUHigh float64 `json:"iou_high"`

	// IoULow is the best-IoU below which an anchor is Negative.
	IoULow float64 `json:"iou_low"`

	// PositiveCap limits the number of Positive anchors (0 disables).
	PositiveCap int `json:"positive_cap"`

	// NegativeCap limits the number of Negative anchors (0 disables).
	NegativeCap int `json:"negative_cap"`

	// Seed drives the balancing subset selection.
	Seed int64 `json:"seed"`

	// IgnoreOutside marks anchors that extend past the sequence (plus AllowedBorder)
	// as Ignore before any other rule runs.
	IgnoreOutside bool `json:"ignore_outside"`

	// AllowedBorder is how far an anchor may extend past either end when IgnoreOutside is set.
	AllowedBorder float64 `json:"allowed_border"`
}

// DefaultConfig returns the usual RPN thresholds with balancing disabled.
func DefaultConfig() Config {
	return Config{
		IoUHigh: 0.7,
		IoULow:  0.3,
	}
}

// Validate checks the thresholds and caps.
func (c Config) Validate() error {
	if !(c.IoULow >= 0 && c.IoULow <= 1) {
		return fmt.Errorf("target: iou_low must be in [0, 1], got %v", c.IoULow)
	}
	if !(c.IoUHigh >= 0 && c.IoUHigh <= 1) {
		return fmt.Errorf("target: iou_high must be in [0, 1], got %v", c.IoUHigh)
	}
	if c.IoULow > c.IoUHigh {
		return fmt.Errorf("target: iou_low %v exceeds iou_high %v", c.IoULow, c.IoUHigh)
	}
	if c.PositiveCap < 0 || c.NegativeCap < 0 {
		return fmt.Errorf("target: caps must be non-negative, got %d/%d", c.PositiveCap, c.NegativeCap)
	}
	if !(c.AllowedBorder >= 0) || math.IsInf(c.AllowedBorder, 0) {
		return fmt.Errorf("target: allowed_border must be non-negative and finite, got %v", c.AllowedBorder)
	}
	return nil
}

// Weights holds the per-anchor loss weights for the (center, width) channels.
type Weights struct {
	Inside  [2]float64 `json:"inside"`
	Outside [2]float64 `json:"outside"`
}

// Targets is the assignment result for one sample, aligned with the anchor bank.
type Targets struct {
	// Labels is the class of every anchor.
	Labels []Label `json:"labels"`

	// Deltas is the regression target of every anchor; zero unless Positive.
	Deltas []interval.Delta `json:"deltas"`

	// Weights are the inside/outside loss weights of every anchor.
	Weights []Weights `json:"weights"`

	// Matched is the ground-truth index each anchor is compared against, -1 if none.
	Matched []int `json:"matched"`

	// BestIoU is the highest IoU of each anchor against any ground truth.
	BestIoU []float64 `json:"best_iou"`
}

// Counts tallies the assigned labels.
func (t *Targets) Counts() Counts {
	return CountLabels(t.Labels)
}

// Positives returns the indices of Positive anchors in ascending order.
func (t *Targets) Positives() []int {
	var out []int
	for i, l := range t.Labels {
		if l == Positive {
			out = append(out, i)
		}
	}
	return out
}

// Assign labels every anchor of bank against the ground-truth intervals of one sample.
//
// Parameters:
//   - bank: The shared anchor bank.
//   - gts: Ground-truth peak intervals; may be empty, in which case every eligible
//     anchor is Negative.
//   - seqLen: Input sequence length, used only when cfg.IgnoreOutside is set.
//   - cfg: Thresholds, caps and seed.
//
// Returns per-anchor labels, regression targets and loss weights.
func Assign(bank *anchor.Bank, gts []interval.Interval, seqLen int, cfg Config) (*Targets, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for i, gt := range gts {
		if !gt.Valid() {
			return nil, fmt.Errorf("%w: #%d %v", ErrInvalidGroundTruth, i, gt)
		}
	}

	n := bank.Len()
	t := &Targets{
		Labels:  make([]Label, n),
		Deltas:  make([]interval.Delta, n),
		Weights: make([]Weights, n),
		Matched: make([]int, n),
		BestIoU: make([]float64, n),
	}
	for i := range t.Matched {
		t.Matched[i] = -1
	}

	eligible := eligibleAnchors(bank, seqLen, cfg)
	if len(eligible) == 0 {
		return nil, ErrNoEligibleAnchors
	}

	forced := make(map[int]bool)
	if len(gts) == 0 {
		for _, a := range eligible {
			t.Labels[a] = Negative
		}
	} else {
		var err error
		forced, err = label(bank, gts, eligible, cfg, t)
		if err != nil {
			return nil, err
		}
	}

	balance(t.Labels, forced, cfg)

	for i, l := range t.Labels {
		switch l {
		case Positive:
			t.Deltas[i] = interval.Encode(bank.Interval(i), gts[t.Matched[i]])
			t.Weights[i].Inside = [2]float64{1, 1}
		case Negative, Ignore:
		}
	}

	if labeled := t.Counts().Labeled(); labeled > 0 {
		w := 1 / float64(labeled)
		for i, l := range t.Labels {
			switch l {
			case Positive, Negative:
				t.Weights[i].Outside = [2]float64{w, w}
			case Ignore:
			}
		}
	}

	return t, nil
}

// eligibleAnchors returns the bank indices that take part in labeling.
func eligibleAnchors(bank *anchor.Bank, seqLen int, cfg Config) []int {
	out := make([]int, 0, bank.Len())
	lo := -cfg.AllowedBorder
	hi := float64(seqLen-1) + cfg.AllowedBorder
	for i := 0; i < bank.Len(); i++ {
		if cfg.IgnoreOutside {
			iv := bank.Interval(i)
			if iv.Start < lo || iv.End > hi {
				continue
			}
		}
		out = append(out, i)
	}
	return out
}

// label fills labels, Matched and BestIoU for the eligible anchors and returns the
// set of anchors forced Positive by the coverage rule.
func label(bank *anchor.Bank, gts []interval.Interval, eligible []int, cfg Config, t *Targets) (map[int]bool, error) {
	rows, cols := len(eligible), len(gts)

	backing := make([]float64, rows*cols)
	for r, a := range eligible {
		aiv := bank.Interval(a)
		for c, gt := range gts {
			backing[r*cols+c] = interval.IoU(aiv, gt)
		}
	}
	overlaps := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))

	argmax, err := overlaps.Argmax(1)
	if err != nil {
		return nil, fmt.Errorf("target: best ground truth per anchor: %w", err)
	}
	anchorMax, err := overlaps.Max(1)
	if err != nil {
		return nil, fmt.Errorf("target: best IoU per anchor: %w", err)
	}
	gtMax, err := overlaps.Max(0)
	if err != nil {
		return nil, fmt.Errorf("target: best IoU per ground truth: %w", err)
	}
	bestGT := argmax.Ints()
	bestIoU := anchorMax.Float64s()
	gtBest := gtMax.Float64s()

	for r, a := range eligible {
		t.Matched[a] = bestGT[r]
		t.BestIoU[a] = bestIoU[r]
	}

	// Rule 1: every ground truth keeps its best anchor(s).
	forced := make(map[int]bool)
	for c, gt := range gts {
		if gtBest[c] <= 0 {
			a := nearestAnchor(bank, eligible, gt.Center())
			forced[a] = true
			t.Matched[a] = c
			continue
		}
		for r, a := range eligible {
			if backing[r*cols+c] == gtBest[c] {
				forced[a] = true
			}
		}
	}

	for _, a := range eligible {
		switch {
		case forced[a]:
			t.Labels[a] = Positive
		case t.BestIoU[a] >= cfg.IoUHigh:
			t.Labels[a] = Positive
		case t.BestIoU[a] < cfg.IoULow:
			t.Labels[a] = Negative
		default:
			t.Labels[a] = Ignore
		}
	}

	return forced, nil
}

// nearestAnchor returns the eligible anchor whose center is closest to c,
// preferring the lowest index on ties.
func nearestAnchor(bank *anchor.Bank, eligible []int, c float64) int {
	best, bestDist := eligible[0], math.Inf(1)
	for _, a := range eligible {
		if d := math.Abs(bank.At(a).Center - c); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

// balance demotes random subsets of Positive and Negative anchors to Ignore so
// that neither class exceeds its cap. Forced positives are never demoted.
func balance(labels []Label, forced map[int]bool, cfg Config) {
	if cfg.PositiveCap == 0 && cfg.NegativeCap == 0 {
		return
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	if cfg.PositiveCap > 0 {
		var free []int
		total := 0
		for i, l := range labels {
			if l != Positive {
				continue
			}
			total++
			if !forced[i] {
				free = append(free, i)
			}
		}
		demote(labels, free, total-cfg.PositiveCap, rng)
	}

	if cfg.NegativeCap > 0 {
		var negatives []int
		for i, l := range labels {
			if l == Negative {
				negatives = append(negatives, i)
			}
		}
		demote(labels, negatives, len(negatives)-cfg.NegativeCap, rng)
	}
}

// demote sets count randomly chosen anchors from candidates to Ignore.
func demote(labels []Label, candidates []int, count int, rng *rand.Rand) {
	if count <= 0 || len(candidates) == 0 {
		return
	}
	count = min(count, len(candidates))
	perm := rng.Perm(len(candidates))
	for _, p := range perm[:count] {
		labels[candidates[p]] = Ignore
	}
}

// Sample is one sample's ground truths for AssignBatch.
type Sample struct {
	GroundTruth []interval.Interval `json:"ground_truth"`
	SeqLen      int                 `json:"seq_len"`
}

// AssignBatch runs Assign for every sample on up to limit goroutines
// (parallel.Workers() when limit <= 0). Results are in sample order; the first
// failing sample's error is returned.
func AssignBatch(bank *anchor.Bank, samples []Sample, cfg Config, limit int) ([]*Targets, error) {
	if limit <= 0 {
		limit = parallel.Workers()
	}
	out, errs := parallel.Map(len(samples), limit, func(i int) (*Targets, error) {
		return Assign(bank, samples[i].GroundTruth, samples[i].SeqLen, cfg)
	})
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("target: sample %d: %w", i, err)
		}
	}
	return out, nil
}
