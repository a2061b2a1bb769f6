package pose

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/himanishpuri/PoseCurve/pkg/utils"
)

// Frame is one OpenPose JSON output file.
type Frame struct {
	Version float64  `json:"version"`
	People  []Person `json:"people"`
}

// Person holds the BODY_25 keypoints of one detected person as a flat
// [x0, y0, c0, x1, y1, c1, ...] array.
type Person struct {
	PersonID        []int     `json:"person_id"`
	PoseKeypoints2D []float64 `json:"pose_keypoints_2d"`
}

// ReadFrame decodes a single OpenPose JSON file.
func ReadFrame(path string) (Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("reading frame %s: %w", path, err)
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("decoding frame %s: %w", path, err)
	}
	return frame, nil
}

// ReadFrames reads every .json file in dir in name order. OpenPose names its
// output <video>_<frame number, zero padded>_keypoints.json, so name order
// is frame order.
func ReadFrames(dir string) ([]Frame, error) {
	paths, err := utils.ListFilesWithExt(dir, ".json")
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0, len(paths))
	for _, p := range paths {
		frame, err := ReadFrame(p)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
