package backbone

import (
	"encoding/json"
	"fmt"

	"github.com/openfluke/loom/nn"
	"gorgonia.org/tensor"
)

// Loom wraps a single strided conv1d layer built with the loom nn package.
//
// The layer uses kernel size and stride equal to the backbone stride with no
// padding, so an input of InputLength samples yields floor(InputLength/stride)
// positions per filter. Loom returns the activations filter-major, which is the
// channel-major layout of the feature map.
type Loom struct {
	net         *nn.Network
	inputLength int
	stride      int
	filters     int
}

// LoomConfig describes the conv1d feature extractor.
type LoomConfig struct {
	InputLength int    `json:"input_length"`
	Stride      int    `json:"stride"`
	Filters     int    `json:"filters"`
	Activation  string `json:"activation"`
}

// DefaultLoomConfig returns an 8-filter ReLU extractor for 201-sample inputs at stride 1.
func DefaultLoomConfig() LoomConfig {
	return LoomConfig{InputLength: 201, Stride: 1, Filters: 8, Activation: "relu"}
}

// Validate checks the extractor dimensions.
func (c LoomConfig) Validate() error {
	if c.Stride <= 0 {
		return fmt.Errorf("backbone: loom stride must be positive, got %d", c.Stride)
	}
	if c.Filters <= 0 {
		return fmt.Errorf("backbone: loom filters must be positive, got %d", c.Filters)
	}
	if OutputLength(c.InputLength, c.Stride) == 0 {
		return fmt.Errorf("%w: length %d, stride %d", ErrTooShort, c.InputLength, c.Stride)
	}
	return nil
}

// networkJSON renders the loom network definition for cfg.
func (c LoomConfig) networkJSON() (string, error) {
	activation := c.Activation
	if activation == "" {
		activation = "relu"
	}
	def := map[string]interface{}{
		"id":              "peak_backbone",
		"batch_size":      1,
		"grid_rows":       1,
		"grid_cols":       1,
		"layers_per_cell": 1,
		"layers": []map[string]interface{}{
			{
				"type":           "conv1d",
				"activation":     activation,
				"input_channels": 1,
				"filters":        c.Filters,
				"kernel_size":    c.Stride,
				"stride":         c.Stride,
				"padding":        0,
				"input_length":   c.InputLength,
			},
		},
	}
	b, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("backbone: encode loom network: %w", err)
	}
	return string(b), nil
}

// NewLoom builds and randomly initializes a conv1d extractor.
func NewLoom(cfg LoomConfig) (*Loom, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def, err := cfg.networkJSON()
	if err != nil {
		return nil, err
	}
	net, err := nn.BuildNetworkFromJSON(def)
	if err != nil {
		return nil, fmt.Errorf("backbone: build loom network: %w", err)
	}
	net.InitializeWeights()
	return &Loom{net: net, inputLength: cfg.InputLength, stride: cfg.Stride, filters: cfg.Filters}, nil
}

// LoadLoom restores trained extractor weights saved with loom's SaveModel.
// The saved network must match cfg's dimensions.
func LoadLoom(path, modelID string, cfg LoomConfig) (*Loom, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	net, err := nn.LoadModel(path, modelID)
	if err != nil {
		return nil, fmt.Errorf("backbone: load loom model %s: %w", path, err)
	}
	return &Loom{net: net, inputLength: cfg.InputLength, stride: cfg.Stride, filters: cfg.Filters}, nil
}

// Save writes the extractor weights as a loom model bundle that LoadLoom reads back.
func (l *Loom) Save(path, modelID string) error {
	if err := l.net.SaveModel(path, modelID); err != nil {
		return fmt.Errorf("backbone: save loom model %s: %w", path, err)
	}
	return nil
}

// Channels returns the number of conv1d filters.
func (l *Loom) Channels() int { return l.filters }

// Stride returns the conv1d stride.
func (l *Loom) Stride() int { return l.stride }

// Extract runs the conv1d network over seq.
func (l *Loom) Extract(seq []float32) (*tensor.Dense, error) {
	if len(seq) != l.inputLength {
		return nil, fmt.Errorf("backbone: loom expects %d samples, got %d", l.inputLength, len(seq))
	}
	n := OutputLength(len(seq), l.stride)

	out, _ := l.net.Forward(seq)
	if len(out) != l.filters*n {
		return nil, fmt.Errorf("backbone: loom produced %d values, want %d×%d", len(out), l.filters, n)
	}

	data := make([]float64, len(out))
	for i, v := range out {
		data[i] = float64(v)
	}
	return tensor.New(tensor.WithShape(l.filters, n), tensor.WithBacking(data)), nil
}
