package posecurve

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/pose"
)

// Settings is the YAML settings file. Keys left out keep their defaults:
//
//	body_orientation: 90
//	min_confidence: 0.6
//	min_trembling_freq: 7
//	mlf_max_error_ratio: 0.1
//	avg_keys_per_sec: 0
//	bones:
//	  - {start: 8, end: 1, parent: -1, path: hips/spine}
//	  - {start: 1, end: 0, parent: 0, path: hips/spine/head}
type Settings struct {
	OpenPoseDir     string         `yaml:"openpose_dir,omitempty"`
	OpenPoseBinary  string         `yaml:"openpose_binary,omitempty"`
	BodyOrientation float64        `yaml:"body_orientation"`
	MinConfidence   float64        `yaml:"min_confidence"`
	Workers         int            `yaml:"workers,omitempty"`
	Pipeline        curve.Config   `yaml:",inline"`
	Bones           []pose.BoneDef `yaml:"bones"`
}

func DefaultSettings() *Settings {
	return &Settings{
		BodyOrientation: pose.DefaultBodyOrientation,
		MinConfidence:   pose.DefaultMinConfidence,
		Pipeline:        curve.DefaultConfig(),
		Bones:           pose.DefaultBones(),
	}
}

// ParseSettings decodes YAML over the defaults and validates the result.
func ParseSettings(data []byte) (*Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	s, err := ParseSettings(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if math.IsNaN(s.MinConfidence) || s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence must be in [0, 1], got %g", ErrConfigOutOfRange, s.MinConfidence)
	}
	if math.IsNaN(s.BodyOrientation) || math.IsInf(s.BodyOrientation, 0) {
		return fmt.Errorf("%w: body_orientation must be finite", ErrConfigOutOfRange)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrConfigOutOfRange, s.Workers)
	}
	if err := s.Pipeline.Validate(); err != nil {
		return err
	}
	if _, err := pose.SortBoneDefs(s.Bones); err != nil {
		return err
	}
	return nil
}

// Marshal renders the settings as YAML.
func (s *Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
