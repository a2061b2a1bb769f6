package curve

import "github.com/himanishpuri/PoseCurve/pkg/models"

// ComputeSlopes turns samples into keyframes. The slope of an interior
// keyframe is the central difference of its neighbours; the first and last
// keyframes are flat.
func ComputeSlopes(seq []models.Sample) []models.Keyframe {
	keys := make([]models.Keyframe, len(seq))
	for i, s := range seq {
		keys[i] = models.Keyframe{T: s.T, Value: s.Value}
		if i > 0 && i < len(seq)-1 {
			prev, next := seq[i-1], seq[i+1]
			keys[i].Slope = (next.Value - prev.Value) / (next.T - prev.T)
		}
	}
	return keys
}
