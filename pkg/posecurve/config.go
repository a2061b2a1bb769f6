package posecurve

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/pose"
)

type Config struct {
	DBPath         string
	TempDir        string
	OpenPoseDir    string
	OpenPoseBinary string

	Pipeline        curve.Config
	Bones           []pose.BoneDef
	BodyOrientation float64
	MinConfidence   float64
	Workers         int

	Logger  Logger
	Storage Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithOpenPoseDir(dir string) Option {
	return func(c *Config) {
		c.OpenPoseDir = dir
	}
}

func WithPipeline(cfg curve.Config) Option {
	return func(c *Config) {
		c.Pipeline = cfg
	}
}

func WithBones(bones []pose.BoneDef) Option {
	return func(c *Config) {
		c.Bones = bones
	}
}

func WithBodyOrientation(deg float64) Option {
	return func(c *Config) {
		c.BodyOrientation = deg
	}
}

func WithMinConfidence(conf float64) Option {
	return func(c *Config) {
		c.MinConfidence = conf
	}
}

// WithWorkers bounds how many bones are simplified concurrently.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithSettings applies every field of a settings file; an empty OpenPose
// directory or binary keeps the current value.
func WithSettings(s *Settings) Option {
	return func(c *Config) {
		if s == nil {
			return
		}
		c.Pipeline = s.Pipeline
		c.Bones = s.Bones
		c.BodyOrientation = s.BodyOrientation
		c.MinConfidence = s.MinConfidence
		if s.Workers > 0 {
			c.Workers = s.Workers
		}
		if s.OpenPoseDir != "" {
			c.OpenPoseDir = s.OpenPoseDir
		}
		if s.OpenPoseBinary != "" {
			c.OpenPoseBinary = s.OpenPoseBinary
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultConfig() *Config {
	return &Config{
		DBPath:          envOr("POSECURVE_DB_PATH", "posecurve.sqlite3"),
		TempDir:         envOr("POSECURVE_TEMP_DIR", filepath.Join(os.TempDir(), "posecurve")),
		OpenPoseDir:     os.Getenv("POSECURVE_OPENPOSE_DIR"),
		Pipeline:        curve.DefaultConfig(),
		Bones:           pose.DefaultBones(),
		BodyOrientation: pose.DefaultBodyOrientation,
		MinConfidence:   pose.DefaultMinConfidence,
		Workers:         runtime.NumCPU(),
	}
}
