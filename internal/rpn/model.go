package rpn

import (
	"errors"
	"fmt"
	"log"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/anchor"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/backbone"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/loss"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/parallel"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/proposal"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/target"
)

var (
	// ErrUnknownMode is returned for a mode other than Test or Train.
	ErrUnknownMode = errors.New("rpn: unknown mode")

	// ErrBatchSize is returned when a Train-mode call does not carry exactly one sequence.
	ErrBatchSize = errors.New("rpn: train mode requires a batch of exactly one sequence")

	// ErrSequenceLength is returned for a sequence whose length differs from the configured one.
	ErrSequenceLength = errors.New("rpn: sequence length mismatch")

	// ErrWrongMode is returned by Detect on a Train model and by Loss on a Test model.
	ErrWrongMode = errors.New("rpn: operation not available in this mode")
)

// Debug enables per-call log lines. It is set once at startup.
var Debug bool

// Model is a region proposal network in a fixed mode.
type Model struct {
	cfg      Config
	backbone backbone.Backbone
	head     *Head
	bank     *anchor.Bank
}

// Output is the result of Forward. Proposals is set in both modes; Loss and
// Targets only in Train mode.
type Output struct {
	Mode      Mode                  `json:"mode"`
	Proposals [][]proposal.Proposal `json:"proposals"`
	Loss      *loss.Breakdown       `json:"loss,omitempty"`
	Targets   *target.Targets       `json:"-"`
}

// New validates cfg, generates the anchor bank for the backbone's stride and
// initializes the head.
func New(bb backbone.Backbone, cfg Config) (*Model, error) {
	if bb == nil {
		return nil, fmt.Errorf("rpn: backbone is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stride := bb.Stride()
	if backbone.OutputLength(cfg.SequenceLength, stride) == 0 {
		return nil, fmt.Errorf("rpn: sequence_length %d yields no feature positions at stride %d",
			cfg.SequenceLength, stride)
	}
	bank, err := anchor.Generate(cfg.anchorConfig(stride))
	if err != nil {
		return nil, err
	}
	head, err := NewHead(bb.Channels(), cfg.RPNChannels, cfg.RPNKernelSize, bank.ScalesPerPosition(), cfg.HeadSeed)
	if err != nil {
		return nil, err
	}

	return &Model{cfg: cfg, backbone: bb, head: head, bank: bank}, nil
}

// Mode returns the mode the model was built in.
func (m *Model) Mode() Mode { return m.cfg.Mode }

// Config returns the model configuration.
func (m *Model) Config() Config { return m.cfg }

// Bank returns the shared anchor bank.
func (m *Model) Bank() *anchor.Bank { return m.bank }

// Head returns the prediction head.
func (m *Model) Head() *Head { return m.head }

// Forward runs the network over a batch of sequences.
//
// Parameters:
//   - batch: Input sequences, each of length Config.SequenceLength.
//   - gts: Ground-truth peak intervals of the single Train-mode sequence;
//     ignored in Test mode. An empty set labels every anchor Negative.
//
// Returns proposals per sequence, plus the loss breakdown in Train mode.
func (m *Model) Forward(batch [][]float32, gts []interval.Interval) (*Output, error) {
	switch m.cfg.Mode {
	case Test:
		return m.forwardTest(batch)
	case Train:
		return m.forwardTrain(batch, gts)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownMode, m.cfg.Mode)
}

// Detect returns the ranked proposals of one sequence. The model must be in Test mode.
func (m *Model) Detect(seq []float32) ([]proposal.Proposal, error) {
	if m.cfg.Mode != Test {
		return nil, fmt.Errorf("%w: detect needs test mode, model is %v", ErrWrongMode, m.cfg.Mode)
	}
	out, err := m.forwardTest([][]float32{seq})
	if err != nil {
		return nil, err
	}
	return out.Proposals[0], nil
}

// Loss returns the training loss of one sequence. The model must be in Train mode.
func (m *Model) Loss(seq []float32, gts []interval.Interval) (*loss.Breakdown, error) {
	if m.cfg.Mode != Train {
		return nil, fmt.Errorf("%w: loss needs train mode, model is %v", ErrWrongMode, m.cfg.Mode)
	}
	out, err := m.forwardTrain([][]float32{seq}, gts)
	if err != nil {
		return nil, err
	}
	return out.Loss, nil
}

// Predict runs the backbone and head over one sequence.
func (m *Model) Predict(seq []float32) (*HeadOutput, error) {
	if len(seq) != m.cfg.SequenceLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSequenceLength, len(seq), m.cfg.SequenceLength)
	}
	fm, err := m.backbone.Extract(seq)
	if err != nil {
		return nil, fmt.Errorf("rpn: backbone: %w", err)
	}
	out, err := m.head.Forward(fm)
	if err != nil {
		return nil, err
	}
	if len(out.Probs) != m.bank.Len() {
		return nil, fmt.Errorf("rpn: head produced %d anchors, bank has %d", len(out.Probs), m.bank.Len())
	}
	return out, nil
}

func (m *Model) propose(seq []float32) ([]proposal.Proposal, *HeadOutput, error) {
	pred, err := m.Predict(seq)
	if err != nil {
		return nil, nil, err
	}
	ps, err := proposal.Decode(m.bank, pred.Probs, pred.Deltas, len(seq), m.cfg.Proposal)
	if err != nil {
		return nil, nil, err
	}
	return ps, pred, nil
}

func (m *Model) forwardTest(batch [][]float32) (*Output, error) {
	results, errs := parallel.Map(len(batch), parallel.Workers(), func(i int) ([]proposal.Proposal, error) {
		ps, _, err := m.propose(batch[i])
		return ps, err
	})
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("rpn: sequence %d: %w", i, err)
		}
	}
	if Debug {
		log.Printf("rpn: decoded %d sequences", len(batch))
	}
	return &Output{Mode: Test, Proposals: results}, nil
}

func (m *Model) forwardTrain(batch [][]float32, gts []interval.Interval) (*Output, error) {
	if len(batch) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBatchSize, len(batch))
	}
	seq := batch[0]

	ps, pred, err := m.propose(seq)
	if err != nil {
		return nil, err
	}
	if Debug {
		if len(ps) == 0 {
			log.Printf("rpn: train step produced no proposals")
		} else {
			log.Printf("rpn: top proposal %s score %.4f of %d", ps[0].Interval(), ps[0].Score, len(ps))
		}
	}

	tg, err := target.Assign(m.bank, gts, len(seq), m.cfg.Target)
	if err != nil {
		return nil, err
	}
	b, err := loss.Compute(loss.Inputs{
		Probs:   pred.Probs,
		Labels:  tg.Labels,
		Pred:    pred.Deltas,
		Target:  tg.Deltas,
		Weights: tg.Weights,
	}, m.cfg.Loss)
	if err != nil {
		return nil, err
	}
	if Debug {
		c := tg.Counts()
		log.Printf("rpn: labels pos=%d neg=%d ignore=%d loss=%.6f", c.Positive, c.Negative, c.Ignore, b.Total)
	}

	return &Output{
		Mode:      Train,
		Proposals: [][]proposal.Proposal{ps},
		Loss:      &b,
		Targets:   tg,
	}, nil
}
