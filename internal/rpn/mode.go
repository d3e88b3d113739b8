package rpn

import (
	"fmt"
	"strings"
)

// Mode selects what Forward computes. It is fixed when a Model is built.
type Mode int

const (
	// Test decodes ranked proposals.
	Test Mode = iota + 1

	// Train assigns anchor targets and returns the loss of a single sample.
	Train
)

// ParseMode converts "train" or "test" (case-insensitive) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "test":
		return Test, nil
	case "train":
		return Train, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// String returns "test", "train" or "Mode(n)".
func (m Mode) String() string {
	switch m {
	case Test:
		return "test"
	case Train:
		return "train"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid reports whether m is Test or Train.
func (m Mode) Valid() bool {
	return m == Test || m == Train
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
