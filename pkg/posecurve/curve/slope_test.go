package curve

import (
	"testing"

	"github.com/himanishpuri/PoseCurve/pkg/models"
)

func TestComputeSlopes(t *testing.T) {
	seq := []models.Sample{{T: 0, Value: 0}, {T: 1, Value: 2}, {T: 2, Value: 6}, {T: 4, Value: 6}}

	keys := ComputeSlopes(seq)

	expected := []models.Keyframe{
		{T: 0, Value: 0, Slope: 0},
		{T: 1, Value: 2, Slope: 3},
		{T: 2, Value: 6, Slope: 4.0 / 3.0},
		{T: 4, Value: 6, Slope: 0},
	}
	if len(keys) != len(expected) {
		t.Fatalf("got %d keyframes, expected %d", len(keys), len(expected))
	}
	for i := range expected {
		if keys[i].T != expected[i].T || keys[i].Value != expected[i].Value || !approxEqual(keys[i].Slope, expected[i].Slope) {
			t.Errorf("keyframe %d = %v, expected %v", i, keys[i], expected[i])
		}
	}
}

func TestComputeSlopesBoundaries(t *testing.T) {
	tests := []struct {
		name string
		seq  []models.Sample
	}{
		{"empty", nil},
		{"single", seqOf(5)},
		{"pair", seqOf(5, 10)},
		{"noisy", noisySine(50, 2)},
	}

	for _, tt := range tests {
		keys := ComputeSlopes(tt.seq)
		if len(keys) != len(tt.seq) {
			t.Errorf("%s: got %d keyframes for %d samples", tt.name, len(keys), len(tt.seq))
			continue
		}
		if len(keys) == 0 {
			continue
		}
		if keys[0].Slope != 0 || keys[len(keys)-1].Slope != 0 {
			t.Errorf("%s: boundary slopes %f, %f, expected 0", tt.name, keys[0].Slope, keys[len(keys)-1].Slope)
		}
	}
}
