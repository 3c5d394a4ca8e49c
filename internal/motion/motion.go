// Package motion classifies Doppler radar output as motion or no motion.
//
// A Doppler module such as the HB100 emits a square wave whose frequency
// tracks the speed of whatever moves in front of it. Measure counts falling
// edges over a bounded number of waits, each capped by an edge timeout, and
// turns the count into pulses per second. A frequency at or above the
// sensitivity threshold is motion.
package motion

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned for unusable measurement settings.
var ErrInvalidConfig = errors.New("INVALID_MOTION_CONFIG")

// Defaults match the reference sensor sketch.
const (
	DefaultSensitivity = 10.0
	DefaultMaxPulses   = 10
	DefaultEdgeTimeout = 50 * time.Millisecond
)

// EdgeSource waits for one falling edge on the sensor output.
//
// WaitFallingEdge blocks for at most timeout. It reports whether an edge
// arrived and how long it waited.
type EdgeSource interface {
	WaitFallingEdge(ctx context.Context, timeout time.Duration) (bool, time.Duration, error)
}

// Config holds the measurement settings.
type Config struct {
	// Sensitivity is the motion threshold in Hz. Higher values reduce
	// false readings.
	Sensitivity float64
	// MaxPulses is the number of edge waits per measurement. More waits
	// average the frequency over a longer window.
	MaxPulses   int
	EdgeTimeout time.Duration
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		Sensitivity: DefaultSensitivity,
		MaxPulses:   DefaultMaxPulses,
		EdgeTimeout: DefaultEdgeTimeout,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Sensitivity <= 0 {
		return fmt.Errorf("%w: sensitivity %v must be positive", ErrInvalidConfig, c.Sensitivity)
	}
	if c.MaxPulses <= 0 {
		return fmt.Errorf("%w: max pulses %d must be positive", ErrInvalidConfig, c.MaxPulses)
	}
	if c.EdgeTimeout <= 0 {
		return fmt.Errorf("%w: edge timeout %v must be positive", ErrInvalidConfig, c.EdgeTimeout)
	}
	return nil
}

// Reading is one frequency measurement.
type Reading struct {
	FrequencyHz float64       `json:"frequencyHz"`
	Pulses      int           `json:"pulses"`
	Window      time.Duration `json:"windowNs"`
	Motion      bool          `json:"motion"`
}

// Measure waits for up to cfg.MaxPulses falling edges and classifies the
// resulting frequency against cfg.Sensitivity.
func Measure(ctx context.Context, src EdgeSource, cfg Config) (Reading, error) {
	if err := cfg.Validate(); err != nil {
		return Reading{}, err
	}

	var r Reading
	for i := 0; i < cfg.MaxPulses; i++ {
		edge, waited, err := src.WaitFallingEdge(ctx, cfg.EdgeTimeout)
		if err != nil {
			return Reading{}, fmt.Errorf("edge wait %d: %w", i+1, err)
		}
		r.Window += waited
		if edge {
			r.Pulses++
		}
	}

	if r.Window > 0 {
		r.FrequencyHz = float64(r.Pulses) / r.Window.Seconds()
	}
	r.Motion = Detected(r.FrequencyHz, cfg.Sensitivity)
	return r, nil
}

// Detected reports whether frequencyHz counts as motion.
func Detected(frequencyHz, sensitivity float64) bool {
	return frequencyHz >= sensitivity
}
