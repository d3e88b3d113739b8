package target

import "fmt"

// Label is the training label of one anchor.
type Label int8

const (
	// Ignore anchors contribute to neither loss term.
	Ignore Label = iota
	// Negative anchors are background for the classification loss.
	Negative
	// Positive anchors are foreground and carry a regression target.
	Positive
)

func (l Label) String() string {
	switch l {
	case Ignore:
		return "ignore"
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return fmt.Sprintf("Label(%d)", int8(l))
	}
}

// Target returns the 0/1 classification target of the label and whether the
// label takes part in the classification loss at all.
func (l Label) Target() (float64, bool) {
	switch l {
	case Positive:
		return 1, true
	case Negative:
		return 0, true
	case Ignore:
		return 0, false
	default:
		panic(fmt.Sprintf("target: invalid label %d", int8(l)))
	}
}

// MarshalText encodes the label by name.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Counts tallies labels by class.
type Counts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Ignore   int `json:"ignore"`
}

// Labeled returns the number of Positive and Negative anchors.
func (c Counts) Labeled() int { return c.Positive + c.Negative }

// CountLabels tallies a label slice.
func CountLabels(labels []Label) Counts {
	var c Counts
	for _, l := range labels {
		switch l {
		case Positive:
			c.Positive++
		case Negative:
			c.Negative++
		case Ignore:
			c.Ignore++
		}
	}
	return c
}
