package curve

import (
	"fmt"

	"github.com/himanishpuri/PoseCurve/pkg/models"
)

// Stats records the sample count after each stage of a run.
type Stats struct {
	Input          int
	AfterTrembling int
	AfterFit       int
	AfterAverage   int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d -> trembling %d -> mlf %d -> avg %d", s.Input, s.AfterTrembling, s.AfterFit, s.AfterAverage)
}

// Ratio is the fraction of input samples that survived all stages.
func (s Stats) Ratio() float64 {
	if s.Input == 0 {
		return 0
	}
	return float64(s.AfterAverage) / float64(s.Input)
}

// Process simplifies one bone's samples into keyframes. The stages run in
// fixed order: ReduceTrembling, FitLines, AverageKeys, ComputeSlopes.
// Config and input are validated before any stage runs.
func Process(seq []models.Sample, cfg Config) ([]models.Keyframe, error) {
	keys, _, err := ProcessWithStats(seq, cfg)
	return keys, err
}

// ProcessWithStats is Process that also reports per-stage counts.
func ProcessWithStats(seq []models.Sample, cfg Config) ([]models.Keyframe, Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Stats{}, err
	}
	if err := ValidateSequence(seq); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Input: len(seq)}

	out := ReduceTrembling(seq, cfg.MinTremblingFreq)
	stats.AfterTrembling = len(out)

	out = FitLines(out, cfg.MLFMaxErrorRatio)
	stats.AfterFit = len(out)

	out = AverageKeys(out, cfg.AvgKeysPerSec)
	stats.AfterAverage = len(out)

	return ComputeSlopes(out), stats, nil
}
