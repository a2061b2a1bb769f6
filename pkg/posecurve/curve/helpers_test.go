package curve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/himanishpuri/PoseCurve/pkg/models"
)

// seqOf builds samples at t = 0, 1, 2, ...
func seqOf(values ...float64) []models.Sample {
	seq := make([]models.Sample, len(values))
	for i, v := range values {
		seq[i] = models.Sample{T: float64(i), Value: v}
	}
	return seq
}

// noisySine is a slow sine with jitter, sampled at 30 fps.
func noisySine(n int, seed int64) []models.Sample {
	rng := rand.New(rand.NewSource(seed))
	seq := make([]models.Sample, n)
	for i := range seq {
		t := float64(i) / 30.0
		seq[i] = models.Sample{T: t, Value: 45*math.Sin(t) + rng.NormFloat64()*2}
	}
	return seq
}

func assertSamples(t *testing.T, got, want []models.Sample) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d samples %v, expected %d samples %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, expected %v", i, got[i], want[i])
		}
	}
}

func assertEndpoints(t *testing.T, in, out []models.Sample) {
	t.Helper()
	if len(out) < 2 {
		t.Fatalf("expected at least 2 samples, got %d", len(out))
	}
	if out[0] != in[0] {
		t.Errorf("first sample changed: got %v, expected %v", out[0], in[0])
	}
	if out[len(out)-1] != in[len(in)-1] {
		t.Errorf("last sample changed: got %v, expected %v", out[len(out)-1], in[len(in)-1])
	}
}

// assertSubsequence checks that every sample of sub appears in seq, in order.
func assertSubsequence(t *testing.T, seq, sub []models.Sample) {
	t.Helper()
	j := 0
	for _, s := range seq {
		if j < len(sub) && sub[j] == s {
			j++
		}
	}
	if j != len(sub) {
		t.Errorf("output is not an ordered subsequence of the input (matched %d of %d)", j, len(sub))
	}
}
