package models

import "time"

// BoneCurve is the simplified rotation curve of one bone.
type BoneCurve struct {
	Path     string     `json:"path" msgpack:"path"`           // GameObject path in the target hierarchy, e.g. "hips/spine"
	RawCount int        `json:"raw_count" msgpack:"raw_count"` // number of samples before simplification
	Keys     []Keyframe `json:"keys" msgpack:"keys"`           // final keyframes, ordered by time
}

// Clip is one converted animation: every bone of one person in one video.
type Clip struct {
	ID          string  `json:"id" msgpack:"id"`                     // Database ID (UUID), empty until stored
	Name        string  `json:"name" msgpack:"name"`                 // Animation name, usually "<video><person>"
	Source      string  `json:"source" msgpack:"source"`             // Video path, poses directory or URL the clip came from
	PersonIdx   int     `json:"person_idx" msgpack:"person_idx"`     // Index of the person in the pose detector output
	FrameRate   float64 `json:"frame_rate" msgpack:"frame_rate"`     // Frames per second of the source
	DurationSec float64 `json:"duration_sec" msgpack:"duration_sec"` // Time of the last frame with pose data

	MinTremblingFreq int     `json:"min_trembling_freq" msgpack:"min_trembling_freq"`
	MLFMaxErrorRatio float64 `json:"mlf_max_error_ratio" msgpack:"mlf_max_error_ratio"`
	AvgKeysPerSec    float64 `json:"avg_keys_per_sec" msgpack:"avg_keys_per_sec"`

	Curves    []BoneCurve `json:"curves" msgpack:"curves"`
	CreatedAt time.Time   `json:"created_at" msgpack:"created_at"`
}

// KeyframeCount returns the total number of keyframes over all curves.
func (c *Clip) KeyframeCount() int {
	n := 0
	for _, curve := range c.Curves {
		n += len(curve.Keys)
	}
	return n
}

// ClipSummary is the listing view of a stored clip.
type ClipSummary struct {
	ID            string    `json:"id" msgpack:"id"`
	Name          string    `json:"name" msgpack:"name"`
	Source        string    `json:"source" msgpack:"source"`
	DurationSec   float64   `json:"duration_sec" msgpack:"duration_sec"`
	BoneCount     int       `json:"bone_count" msgpack:"bone_count"`
	KeyframeCount int       `json:"keyframe_count" msgpack:"keyframe_count"`
	CreatedAt     time.Time `json:"created_at" msgpack:"created_at"`
}
