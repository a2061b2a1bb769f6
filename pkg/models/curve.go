package models

// Sample is one (timestamp, angle) observation of a bone.
// T is in seconds, Value in degrees.
type Sample struct {
	T     float64 `json:"t" msgpack:"t"`
	Value float64 `json:"value" msgpack:"value"`
}

// Keyframe is a final curve point. Slope is used as both the in and out
// tangent during playback.
type Keyframe struct {
	T     float64 `json:"t" msgpack:"t"`
	Value float64 `json:"value" msgpack:"value"`
	Slope float64 `json:"slope" msgpack:"slope"`
}

// RawSample is an angle measured from pose keypoints. Confidence is the
// lowest confidence among the joints used to compute the angle.
type RawSample struct {
	T          float64
	Angle      float64
	Confidence float64
}

// Samples drops the confidence of a raw track.
func Samples(raw []RawSample) []Sample {
	out := make([]Sample, len(raw))
	for i, r := range raw {
		out[i] = Sample{T: r.T, Value: r.Angle}
	}
	return out
}
