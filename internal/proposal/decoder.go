package proposal

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/anchor"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
)

// ErrShape is returned when scores or deltas do not line up with the anchor bank.
var ErrShape = errors.New("proposal: input does not match anchor bank")

// Proposal is a decoded candidate interval with its foreground score.
type Proposal struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Score  float64 `json:"score"`
	Anchor int     `json:"anchor"` // Index of the anchor the proposal was decoded from
}

// Interval returns the proposal bounds.
func (p Proposal) Interval() interval.Interval {
	return interval.Interval{Start: p.Start, End: p.End}
}

// Config controls ranking and suppression.
type Config struct {
	// PreNMSTopN is the number of top-scoring candidates considered for suppression.
	PreNMSTopN int `json:"pre_nms_top_n"`

	// PostNMSTopN is the maximum number of proposals returned.
	PostNMSTopN int `json:"post_nms_top_n"`

	// NMSThreshold is the IoU above which a lower-scored candidate is suppressed.
	NMSThreshold float64 `json:"nms_threshold"`

	// MinWidth is the width at or below which a decoded candidate is dropped.
	MinWidth float64 `json:"min_width"`
}

// DefaultConfig returns the ranking settings used for chromatogram peak picking.
func DefaultConfig() Config {
	return Config{
		PreNMSTopN:   6000,
		PostNMSTopN:  300,
		NMSThreshold: 0.7,
		MinWidth:     1e-6,
	}
}

// Validate checks the ranking settings.
func (c Config) Validate() error {
	if c.PreNMSTopN <= 0 {
		return fmt.Errorf("proposal: pre_nms_top_n must be positive, got %d", c.PreNMSTopN)
	}
	if c.PostNMSTopN <= 0 {
		return fmt.Errorf("proposal: post_nms_top_n must be positive, got %d", c.PostNMSTopN)
	}
	if !(c.NMSThreshold >= 0 && c.NMSThreshold <= 1) {
		return fmt.Errorf("proposal: nms_threshold must be in [0, 1], got %v", c.NMSThreshold)
	}
	if c.MinWidth < 0 || math.IsNaN(c.MinWidth) {
		return fmt.Errorf("proposal: min_width must be non-negative, got %v", c.MinWidth)
	}
	return nil
}

// Decode converts per-anchor scores and deltas into ranked proposals.
//
// Parameters:
//   - bank: The anchor bank the network outputs are aligned with.
//   - probs: Foreground probability per anchor, in bank order.
//   - deltas: Predicted regression delta per anchor, in bank order.
//   - seqLen: Input sequence length L; proposals are clipped to [0, L-1].
//   - cfg: Ranking and suppression settings.
//
// A candidate is suppressed when its IoU with an accepted proposal is strictly
// greater than cfg.NMSThreshold, so a threshold of 1 suppresses nothing.
//
// Returns the accepted proposals sorted by descending score. The result may be empty.
// The output length never exceeds min(PreNMSTopN, PostNMSTopN, valid candidates).
func Decode(bank *anchor.Bank, probs []float64, deltas []interval.Delta, seqLen int, cfg Config) ([]Proposal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(probs) != bank.Len() || len(deltas) != bank.Len() {
		return nil, fmt.Errorf("%w: %d anchors, %d scores, %d deltas", ErrShape, bank.Len(), len(probs), len(deltas))
	}
	if seqLen <= 0 {
		return nil, fmt.Errorf("proposal: sequence length must be positive, got %d", seqLen)
	}

	candidates := make([]Proposal, 0, len(probs))
	for i, score := range probs {
		if math.IsNaN(score) {
			continue
		}
		// Check finiteness before clipping, which would turn infinities into bounds
		raw := interval.Decode(bank.Interval(i), deltas[i])
		if !raw.Valid() {
			continue
		}
		iv := interval.Clip(raw, seqLen)
		if iv.Width() <= cfg.MinWidth {
			continue
		}
		candidates = append(candidates, Proposal{
			Start:  iv.Start,
			End:    iv.End,
			Score:  score,
			Anchor: i,
		})
	}

	Rank(candidates)
	if len(candidates) > cfg.PreNMSTopN {
		candidates = candidates[:cfg.PreNMSTopN]
	}

	return NMS(candidates, cfg.NMSThreshold, cfg.PostNMSTopN), nil
}

// Rank sorts proposals by descending score, breaking ties by ascending anchor index.
func Rank(ps []Proposal) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Score != ps[j].Score {
			return ps[i].Score > ps[j].Score
		}
		return ps[i].Anchor < ps[j].Anchor
	})
}

// NMS performs greedy non-maximum suppression over proposals already sorted by Rank.
//
// Each candidate is accepted only if its IoU with every previously accepted proposal
// is at most threshold. Processing stops once limit proposals are accepted.
func NMS(sorted []Proposal, threshold float64, limit int) []Proposal {
	kept := make([]Proposal, 0, min(limit, len(sorted)))
	for _, cand := range sorted {
		if len(kept) >= limit {
			break
		}
		civ := cand.Interval()
		suppressed := false
		for _, k := range kept {
			if interval.IoU(civ, k.Interval()) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}
