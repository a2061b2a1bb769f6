package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/PoseCurve/pkg/models"
)

const (
	DefaultBodyOrientation = 90.0
	DefaultMinConfidence   = 0.6
)

// Track is the raw angle series of one bone.
type Track struct {
	Bone    BoneDef
	Samples []models.RawSample
}

// Extractor turns OpenPose frames into per-bone angle tracks.
//
// A bone's angle is the direction from its start joint to its end joint in
// degrees, minus BodyOrientation, minus the angle its parent had in the same
// frame. It is normalised to [0, 360) and then shifted by whole turns to the
// value closest to the bone's previous sample so the track has no wrap jumps.
type Extractor struct {
	Bones           []BoneDef
	BodyOrientation float64
	MinConfidence   float64
	FrameRate       float64
	PersonIdx       int
}

// Extract returns one track per bone, in parent-first order, and the clip
// duration in seconds. Time zero is the first frame in which any bone could
// be measured.
func (e Extractor) Extract(frames []Frame) ([]Track, float64, error) {
	if e.FrameRate <= 0 || math.IsNaN(e.FrameRate) || math.IsInf(e.FrameRate, 0) {
		return nil, 0, fmt.Errorf("frame rate must be positive, got %g", e.FrameRate)
	}
	if e.PersonIdx < 0 {
		return nil, 0, errors.New("person index must not be negative")
	}
	if e.MinConfidence < 0 || e.MinConfidence > 1 {
		return nil, 0, fmt.Errorf("minimum confidence must be in [0, 1], got %g", e.MinConfidence)
	}

	bones, err := SortBoneDefs(e.Bones)
	if err != nil {
		return nil, 0, err
	}

	type frameAngle struct {
		frame      int
		angle      float64
		confidence float64
	}

	angles := make([][]frameAngle, len(bones))
	current := make([]float64, len(bones))
	measured := make([]bool, len(bones))
	first, last := -1, -1

	for fi, frame := range frames {
		if e.PersonIdx >= len(frame.People) {
			continue
		}
		kps := frame.People[e.PersonIdx].PoseKeypoints2D
		clear(measured)
		hasData := false

		for bi, bone := range bones {
			parentAngle := 0.0
			if bone.Parent != NoParent {
				if !measured[bone.Parent] {
					continue
				}
				parentAngle = current[bone.Parent]
			}

			start, ok := Keypoint(kps, bone.Start, e.MinConfidence)
			if !ok {
				continue
			}
			end, ok := Keypoint(kps, bone.End, e.MinConfidence)
			if !ok {
				continue
			}

			angle := degrees(math.Atan2(end.Y-start.Y, end.X-start.X))
			angle = normalizeDegrees(angle - e.BodyOrientation - parentAngle)
			if n := len(angles[bi]); n > 0 {
				angle = unwrapDegrees(angle, angles[bi][n-1].angle)
			}

			angles[bi] = append(angles[bi], frameAngle{
				frame:      fi,
				angle:      angle,
				confidence: math.Min(start.Confidence, end.Confidence),
			})
			current[bi] = angle
			measured[bi] = true
			hasData = true
		}

		if hasData {
			if first < 0 {
				first = fi
			}
			last = fi
		}
	}

	tracks := make([]Track, len(bones))
	for bi, bone := range bones {
		tracks[bi].Bone = bone
		if len(angles[bi]) == 0 {
			continue
		}
		samples := make([]models.RawSample, len(angles[bi]))
		for i, a := range angles[bi] {
			samples[i] = models.RawSample{
				T:          float64(a.frame-first) / e.FrameRate,
				Angle:      a.angle,
				Confidence: a.confidence,
			}
		}
		tracks[bi].Samples = samples
	}

	duration := 0.0
	if first >= 0 {
		duration = float64(last-first) / e.FrameRate
	}
	return tracks, duration, nil
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func normalizeDegrees(a float64) float64 {
	m := math.Mod(a, 360)
	if m < 0 {
		m += 360
	}
	if m >= 360 {
		m -= 360
	}
	return m
}

// unwrapDegrees shifts a by whole turns to the value nearest prev.
func unwrapDegrees(a, prev float64) float64 {
	return a + 360*math.Round((prev-a)/360)
}
