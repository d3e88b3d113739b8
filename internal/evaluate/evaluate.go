package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
)

// ErrFormat is returned for malformed evaluation files.
var ErrFormat = errors.New("evaluate: malformed evaluation file")

// Overlaps reports whether the closed intervals share at least one point.
func Overlaps(pred, ref interval.Interval) bool {
	return pred.Start <= ref.End && ref.Start <= pred.End
}

// Record is one chromatogram's reference peak and predicted peak.
type Record struct {
	ID              string             `json:"id"`
	Source          string             `json:"source,omitempty"`
	Reference       *interval.Interval `json:"reference,omitempty"`
	ReferenceScore  float64            `json:"reference_score"`
	Prediction      *interval.Interval `json:"prediction,omitempty"`
	PredictionScore float64            `json:"prediction_score"`
}

// Options controls how records are tallied.
type Options struct {
	// ReferenceThreshold is the reference score below which the reference peak is discarded.
	ReferenceThreshold float64 `json:"reference_threshold"`

	// ModelThreshold is the prediction score below which the prediction is discarded.
	ModelThreshold float64 `json:"model_threshold"`

	// MinPoints is the minimum number of points a prediction must span.
	MinPoints int `json:"min_points"`

	// Exclude lists peptide sequences whose records are skipped.
	Exclude map[string]bool `json:"exclude,omitempty"`
}

// DefaultOptions returns the thresholds used for OpenSWATH comparisons.
func DefaultOptions() Options {
	return Options{ReferenceThreshold: 2.5, ModelThreshold: 0.5, MinPoints: 1}
}

// Outcome classifies one record.
type Outcome string

const (
	TruePositive  Outcome = "tp"
	FalsePositive Outcome = "fp"
	TrueNegative  Outcome = "tn"
	FalseNegative Outcome = "fn"
)

// Stats is the confusion tally over a set of records.
type Stats struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`

	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`

	// AUC is the area under the ROC curve of prediction scores against the
	// reference-derived targets, 0 when only one class is present.
	AUC float64 `json:"auc"`

	Outcomes map[string]Outcome `json:"outcomes,omitempty"`
}

// Classify returns the outcome of one record under opts.
func Classify(r Record, opts Options) Outcome {
	ref := r.Reference
	if r.ReferenceScore < opts.ReferenceThreshold {
		ref = nil
	}
	pred := r.Prediction
	if pred != nil && pred.Width() < float64(opts.MinPoints) {
		pred = nil
	}
	if r.PredictionScore < opts.ModelThreshold {
		pred = nil
	}

	switch {
	case ref == nil && pred == nil:
		return TrueNegative
	case ref == nil:
		return FalsePositive
	case pred == nil:
		return FalseNegative
	case Overlaps(*pred, *ref):
		return TruePositive
	}
	return FalsePositive
}

// Tally classifies every record not excluded by opts and summarizes the result.
func Tally(records []Record, opts Options) *Stats {
	s := &Stats{Outcomes: make(map[string]Outcome, len(records))}
	var scores []float64
	var classes []bool

	for _, r := range records {
		if opts.Exclude[Sequence(r.Source)] {
			continue
		}
		o := Classify(r, opts)
		s.Outcomes[r.ID] = o
		switch o {
		case TruePositive:
			s.TP++
		case FalsePositive:
			s.FP++
		case TrueNegative:
			s.TN++
		case FalseNegative:
			s.FN++
		}
		scores = append(scores, r.PredictionScore)
		classes = append(classes, o == TruePositive || o == FalseNegative)
	}

	s.Precision = ratio(s.TP, s.TP+s.FP)
	s.Recall = ratio(s.TP, s.TP+s.FN)
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	s.Accuracy = ratio(s.TP+s.TN, s.TP+s.FP+s.TN+s.FN)
	s.AUC = AUC(scores, classes)
	return s
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// AUC returns the area under the ROC curve of scores for the positive classes.
// It returns 0 unless both classes are present.
func AUC(scores []float64, classes []bool) float64 {
	if len(scores) == 0 || len(scores) != len(classes) {
		return 0
	}
	pos := 0
	for _, c := range classes {
		if c {
			pos++
		}
	}
	if pos == 0 || pos == len(classes) {
		return 0
	}

	y := append([]float64(nil), scores...)
	c := append([]bool(nil), classes...)
	idx := make([]int, len(y))
	floats.Argsort(y, idx)
	for i, j := range idx {
		c[i] = classes[j]
	}

	tpr, fpr, _ := stat.ROC(nil, y, c, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// Sequence extracts the peptide sequence from a source name of the form
// "<run>_<sequence>_<charge>". It returns the whole name when it has no
// underscore.
func Sequence(source string) string {
	parts := strings.Split(source, "_")
	if len(parts) < 2 {
		return source
	}
	return parts[len(parts)-2]
}

// ReadRecords parses an evaluation CSV with the header
// chrom_id,source,ref_start,ref_end,pred_start,pred_end,ref_score,pred_score.
// Empty prediction bounds mean the model reported no peak.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 8
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrFormat, err)
	}

	var out []Record
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, line, err)
		}

		ref, err := parseBounds(rec[2], rec[3])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: reference: %v", ErrFormat, line, err)
		}
		pred, err := parseBounds(rec[4], rec[5])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: prediction: %v", ErrFormat, line, err)
		}
		refScore, err := strconv.ParseFloat(rec[6], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: reference score %q", ErrFormat, line, rec[6])
		}
		predScore, err := strconv.ParseFloat(rec[7], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: prediction score %q", ErrFormat, line, rec[7])
		}

		out = append(out, Record{
			ID:              rec[0],
			Source:          rec[1],
			Reference:       ref,
			ReferenceScore:  refScore,
			Prediction:      pred,
			PredictionScore: predScore,
		})
	}
	return out, nil
}

func parseBounds(start, end string) (*interval.Interval, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, nil
	}
	s, err := strconv.ParseFloat(start, 64)
	if err != nil {
		return nil, err
	}
	e, err := strconv.ParseFloat(end, 64)
	if err != nil {
		return nil, err
	}
	return &interval.Interval{Start: s, End: e}, nil
}

// SortedIDs returns the record IDs with the given outcome in ascending order.
func (s *Stats) SortedIDs(o Outcome) []string {
	var ids []string
	for id, got := range s.Outcomes {
		if got == o {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
