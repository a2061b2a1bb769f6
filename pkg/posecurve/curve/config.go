package curve

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/himanishpuri/PoseCurve/pkg/models"
)

var (
	// ErrInvalidInput is returned for sample sequences the pipeline cannot
	// process: fewer than two samples, unordered timestamps or NaN values.
	ErrInvalidInput = errors.New("invalid sample sequence")

	// ErrConfigOutOfRange is returned when a threshold is outside its domain.
	ErrConfigOutOfRange = errors.New("pipeline configuration out of range")
)

// Defaults used when no settings are given. A zero threshold disables its stage.
const (
	DefaultMinTremblingFreq = 7
	DefaultMLFMaxErrorRatio = 0.1
	DefaultAvgKeysPerSec    = 0
)

// Config holds the thresholds of the reduction stages.
type Config struct {
	// MinTremblingFreq is the number of consecutive direction reversals
	// from which an oscillation is removed.
	MinTremblingFreq int `yaml:"min_trembling_freq" json:"min_trembling_freq" msgpack:"min_trembling_freq"`

	// MLFMaxErrorRatio is the tolerated deviation of Multi-Line Fitting as a
	// fraction of the value range of the curve. In [0, 1].
	MLFMaxErrorRatio float64 `yaml:"mlf_max_error_ratio" json:"mlf_max_error_ratio" msgpack:"mlf_max_error_ratio"`

	// AvgKeysPerSec caps the keys per one-second window by averaging.
	AvgKeysPerSec float64 `yaml:"avg_keys_per_sec" json:"avg_keys_per_sec" msgpack:"avg_keys_per_sec"`
}

func DefaultConfig() Config {
	return Config{
		MinTremblingFreq: DefaultMinTremblingFreq,
		MLFMaxErrorRatio: DefaultMLFMaxErrorRatio,
		AvgKeysPerSec:    DefaultAvgKeysPerSec,
	}
}

// Validate reports the first threshold outside its domain.
func (c Config) Validate() error {
	if c.MinTremblingFreq < 0 {
		return fmt.Errorf("%w: min_trembling_freq must be >= 0, got %d", ErrConfigOutOfRange, c.MinTremblingFreq)
	}
	if math.IsNaN(c.MLFMaxErrorRatio) || c.MLFMaxErrorRatio < 0 || c.MLFMaxErrorRatio > 1 {
		return fmt.Errorf("%w: mlf_max_error_ratio must be in [0, 1], got %g", ErrConfigOutOfRange, c.MLFMaxErrorRatio)
	}
	if math.IsNaN(c.AvgKeysPerSec) || math.IsInf(c.AvgKeysPerSec, 0) || c.AvgKeysPerSec < 0 {
		return fmt.Errorf("%w: avg_keys_per_sec must be a finite value >= 0, got %g", ErrConfigOutOfRange, c.AvgKeysPerSec)
	}
	return nil
}

// ValidateSequence checks that seq has a start and an end sample, finite
// values and strictly increasing timestamps.
func ValidateSequence(seq []models.Sample) error {
	if len(seq) < 2 {
		return fmt.Errorf("%w: need at least 2 samples, got %d", ErrInvalidInput, len(seq))
	}
	for i, s := range seq {
		if !isFinite(s.T) || !isFinite(s.Value) {
			return fmt.Errorf("%w: non-finite sample (%g, %g) at index %d", ErrInvalidInput, s.T, s.Value, i)
		}
		if i > 0 && s.T <= seq[i-1].T {
			return fmt.Errorf("%w: timestamp %g at index %d does not follow %g", ErrInvalidInput, s.T, i, seq[i-1].T)
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// passThrough is what a disabled stage returns.
func passThrough(seq []models.Sample) []models.Sample {
	return slices.Clone(seq)
}
