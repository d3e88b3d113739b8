package rpn

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/anchor"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/loss"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/proposal"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/target"
)

// Config holds everything fixed at model construction.
type Config struct {
	// Mode selects Test (proposals) or Train (loss).
	Mode Mode `json:"mode"`

	// SequenceLength is the required input length L.
	SequenceLength int `json:"sequence_length"`

	// RPNChannels is the width of the shared conv layer of the head.
	RPNChannels int `json:"rpn_channels"`

	// RPNKernelSize is the depthwise kernel size of the shared conv layer.
	RPNKernelSize int `json:"rpn_kernel_size"`

	// HeadSeed seeds the head's weight initialization.
	HeadSeed int64 `json:"head_seed"`

	// AnchorScales are the anchor width multipliers per position.
	AnchorScales []float64 `json:"anchor_scales"`

	// AnchorBaseWidth multiplies every scale.
	AnchorBaseWidth float64 `json:"anchor_base_width"`

	Proposal proposal.Config `json:"proposal"`
	Target   target.Config   `json:"target"`
	Loss     loss.Config     `json:"loss"`
}

// DefaultConfig returns a Test-mode configuration for 201-sample chromatograms.
func DefaultConfig() Config {
	a := anchor.DefaultConfig()
	return Config{
		Mode:            Test,
		SequenceLength:  201,
		RPNChannels:     64,
		RPNKernelSize:   3,
		HeadSeed:        1,
		AnchorScales:    a.Scales,
		AnchorBaseWidth: a.BaseWidth,
		Proposal:        proposal.DefaultConfig(),
		Target:          target.DefaultConfig(),
		Loss:            loss.DefaultConfig(),
	}
}

// Validate checks every field against its accepted range.
func (c Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(c.Mode))
	}
	if c.SequenceLength <= 0 {
		return fmt.Errorf("rpn: sequence_length must be positive, got %d", c.SequenceLength)
	}
	if c.RPNChannels <= 0 {
		return fmt.Errorf("rpn: rpn_channels must be positive, got %d", c.RPNChannels)
	}
	if c.RPNKernelSize <= 0 {
		return fmt.Errorf("rpn: rpn_kernel_size must be positive, got %d", c.RPNKernelSize)
	}
	if !(c.AnchorBaseWidth > 0) || math.IsInf(c.AnchorBaseWidth, 0) {
		return fmt.Errorf("rpn: anchor_base_width must be positive and finite, got %v", c.AnchorBaseWidth)
	}
	if len(c.AnchorScales) == 0 {
		return fmt.Errorf("rpn: anchor_scales must not be empty")
	}
	if err := c.Proposal.Validate(); err != nil {
		return err
	}
	if err := c.Target.Validate(); err != nil {
		return err
	}
	return c.Loss.Validate()
}

// anchorConfig lays the bank over a feature map of the given stride.
func (c Config) anchorConfig(stride int) anchor.Config {
	return anchor.Config{
		FeatureLength: c.SequenceLength / stride,
		Stride:        float64(stride),
		BaseWidth:     c.AnchorBaseWidth,
		Scales:        append([]float64(nil), c.AnchorScales...),
	}
}

// LoadConfig reads a JSON config file. Fields absent from the file keep their
// DefaultConfig values. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("rpn: read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("rpn: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
