package main

import (
	"fmt"
	"strings"

	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/curve"
)

// MaxSamples bounds the samples accepted by POST /api/simplify
const MaxSamples = 1_000_000

// SimplifyRequest is the request body for POST /api/simplify
type SimplifyRequest struct {
	Samples []models.Sample `json:"samples" msgpack:"samples"`
	// Config is optional; missing uses the server's pipeline settings
	Config *curve.Config `json:"config,omitempty" msgpack:"config,omitempty"`
}

func (r *SimplifyRequest) Validate() error {
	if len(r.Samples) == 0 {
		return fmt.Errorf("samples cannot be empty")
	}
	if len(r.Samples) > MaxSamples {
		return fmt.Errorf("too many samples: %d (maximum: %d)", len(r.Samples), MaxSamples)
	}
	return nil
}

// SimplifyResponse is the response for POST /api/simplify
type SimplifyResponse struct {
	Keyframes []models.Keyframe `json:"keyframes" msgpack:"keyframes"`
	Stats     StatsDTO          `json:"stats" msgpack:"stats"`
}

type StatsDTO struct {
	Input          int     `json:"input" msgpack:"input"`
	AfterTrembling int     `json:"after_trembling" msgpack:"after_trembling"`
	AfterFit       int     `json:"after_fit" msgpack:"after_fit"`
	AfterAverage   int     `json:"after_average" msgpack:"after_average"`
	Ratio          float64 `json:"ratio" msgpack:"ratio"`
}

func statsDTO(s curve.Stats) StatsDTO {
	return StatsDTO{
		Input:          s.Input,
		AfterTrembling: s.AfterTrembling,
		AfterFit:       s.AfterFit,
		AfterAverage:   s.AfterAverage,
		Ratio:          s.Ratio(),
	}
}

// ConvertPosesRequest is the request body for POST /api/convert/poses
type ConvertPosesRequest struct {
	// PosesDir is a directory of OpenPose JSON files on the server
	PosesDir  string  `json:"poses_dir" msgpack:"poses_dir"`
	FrameRate float64 `json:"fps" msgpack:"fps"`
	Name      string  `json:"name,omitempty" msgpack:"name,omitempty"`
	Person    int     `json:"person" msgpack:"person"`
}

func (r *ConvertPosesRequest) Validate() error {
	if strings.TrimSpace(r.PosesDir) == "" {
		return fmt.Errorf("poses_dir is required")
	}
	if r.FrameRate <= 0 {
		return fmt.Errorf("fps must be positive")
	}
	if r.Person < 0 {
		return fmt.Errorf("person must not be negative")
	}
	return nil
}

// ConvertYouTubeRequest is the request body for POST /api/convert/youtube
type ConvertYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url" msgpack:"youtube_url"`
	Person     int    `json:"person" msgpack:"person"`
}

func (r *ConvertYouTubeRequest) Validate() error {
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required")
	}
	if r.Person < 0 {
		return fmt.Errorf("person must not be negative")
	}
	return nil
}

// ConvertResponse is the response for successful conversions
type ConvertResponse struct {
	Message       string  `json:"message" msgpack:"message"`
	ID            string  `json:"id" msgpack:"id"`
	Name          string  `json:"name" msgpack:"name"`
	DurationSec   float64 `json:"duration_sec" msgpack:"duration_sec"`
	BoneCount     int     `json:"bone_count" msgpack:"bone_count"`
	KeyframeCount int     `json:"keyframe_count" msgpack:"keyframe_count"`
}

// ListClipsResponse is the response for GET /api/clips
type ListClipsResponse struct {
	Clips []models.ClipSummary `json:"clips" msgpack:"clips"`
	Count int                  `json:"count" msgpack:"count"`
}

// DeleteClipResponse is the response for DELETE /api/clips/{id}
type DeleteClipResponse struct {
	Message string `json:"message" msgpack:"message"`
	ID      string `json:"id" msgpack:"id"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status        string  `json:"status" msgpack:"status"`
	DatabasePath  string  `json:"database_path" msgpack:"database_path"`
	ClipCount     int     `json:"clip_count" msgpack:"clip_count"`
	KeyframeCount int     `json:"keyframe_count" msgpack:"keyframe_count"`
	Requests      uint64  `json:"requests" msgpack:"requests"`
	UptimeSec     float64 `json:"uptime_sec" msgpack:"uptime_sec"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error" msgpack:"error"`
	Message string `json:"message,omitempty" msgpack:"message,omitempty"`
	Code    int    `json:"code,omitempty" msgpack:"code,omitempty"`
}
