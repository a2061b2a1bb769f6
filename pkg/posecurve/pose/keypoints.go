package pose

import "math"

// BODY_25 joint indices.
const (
	Nose = iota
	Neck
	RShoulder
	RElbow
	RWrist
	LShoulder
	LElbow
	LWrist
	MidHip
	RHip
	RKnee
	RAnkle
	LHip
	LKnee
	LAnkle
	REye
	LEye
	REar
	LEar
	LBigToe
	LSmallToe
	LHeel
	RBigToe
	RSmallToe
	RHeel

	NumJoints
)

// Point is a keypoint in normalised image coordinates with y growing upward.
type Point struct {
	X, Y       float64
	Confidence float64
}

// Keypoint returns joint idx of a flat [x, y, c, ...] keypoint array.
// A fractional index k.5 yields the midpoint of joints k and k+1, with the
// lower of their confidences. The joint is rejected when its confidence is
// below minConfidence or zero (OpenPose writes zeros for undetected joints).
func Keypoint(kps []float64, idx float64, minConfidence float64) (Point, bool) {
	if idx < 0 || math.IsNaN(idx) {
		return Point{}, false
	}

	whole, frac := math.Modf(idx)
	if frac != 0 {
		a, ok := Keypoint(kps, whole, minConfidence)
		if !ok {
			return Point{}, false
		}
		b, ok := Keypoint(kps, whole+1, minConfidence)
		if !ok {
			return Point{}, false
		}
		return Point{
			X:          (a.X + b.X) / 2,
			Y:          (a.Y + b.Y) / 2,
			Confidence: math.Min(a.Confidence, b.Confidence),
		}, true
	}

	i := int(whole) * 3
	if i+2 >= len(kps) {
		return Point{}, false
	}
	c := kps[i+2]
	if c <= 0 || c < minConfidence {
		return Point{}, false
	}
	return Point{X: kps[i], Y: 1 - kps[i+1], Confidence: c}, true
}

// validJoint reports whether idx names a joint, or the midpoint of two, in BODY_25.
func validJoint(idx float64) bool {
	if idx < 0 || math.IsNaN(idx) {
		return false
	}
	return math.Ceil(idx) < NumJoints
}
