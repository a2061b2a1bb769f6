package curve

import (
	"math"
	"testing"

	"github.com/himanishpuri/PoseCurve/pkg/models"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAverageKeysPairsDenseSecond(t *testing.T) {
	seq := []models.Sample{{T: 0, Value: 100}}
	for i := 0; i < 10; i++ {
		seq = append(seq, models.Sample{T: 1 + 0.1*float64(i), Value: float64(i)})
	}
	seq = append(seq, models.Sample{T: 3, Value: -100})

	got := AverageKeys(seq, 5)

	if len(got) != 7 {
		t.Fatalf("expected 7 samples (2 endpoints + 5 averages), got %d: %v", len(got), got)
	}
	assertEndpoints(t, seq, got)
	for k := 0; k < 5; k++ {
		a, b := seq[1+2*k], seq[2+2*k]
		avg := got[1+k]
		if !approxEqual(avg.T, (a.T+b.T)/2) || !approxEqual(avg.Value, (a.Value+b.Value)/2) {
			t.Errorf("average %d = %v, expected mean of %v and %v", k, avg, a, b)
		}
	}
}

func TestAverageKeysEndpointsInsideWindow(t *testing.T) {
	var seq []models.Sample
	for i := 0; i < 10; i++ {
		seq = append(seq, models.Sample{T: 0.1 * float64(i), Value: float64(i * i)})
	}

	got := AverageKeys(seq, 5)

	// 8 interior samples pair up; the endpoints stay on their own
	if len(got) != 6 {
		t.Fatalf("expected 6 samples (2 endpoints + 4 averages), got %d: %v", len(got), got)
	}
	assertEndpoints(t, seq, got)
	for k := 0; k < 4; k++ {
		a, b := seq[1+2*k], seq[2+2*k]
		avg := got[1+k]
		if !approxEqual(avg.T, (a.T+b.T)/2) || !approxEqual(avg.Value, (a.Value+b.Value)/2) {
			t.Errorf("average %d = %v, expected mean of %v and %v", k, avg, a, b)
		}
	}
}

func TestAverageKeysCountLaw(t *testing.T) {
	tests := []struct {
		count int
		rate  float64
	}{
		{3, 2},
		{7, 3},
		{10, 5},
		{11, 5},
		{25, 3},
		{30, 7},
		{4, 4},
		{2, 5},
	}

	for _, tt := range tests {
		seq := []models.Sample{{T: 0, Value: 0}}
		for i := 0; i < tt.count; i++ {
			seq = append(seq, models.Sample{T: 1 + 0.9*float64(i)/float64(tt.count), Value: float64(i % 3)})
		}
		seq = append(seq, models.Sample{T: 5, Value: 0})

		got := AverageKeys(seq, tt.rate)

		expected := tt.count
		if float64(tt.count) > tt.rate {
			size := int(math.Ceil(float64(tt.count) / tt.rate))
			expected = int(math.Ceil(float64(tt.count) / float64(size)))
		}
		if len(got)-2 != expected {
			t.Errorf("count %d rate %.0f: got %d window samples, expected %d", tt.count, tt.rate, len(got)-2, expected)
		}
		assertEndpoints(t, seq, got)
	}
}

func TestAverageKeysSplitsWindowsBySecond(t *testing.T) {
	seq := []models.Sample{
		{T: 0, Value: 0},
		{T: 1.0, Value: 1},
		{T: 1.5, Value: 3},
		{T: 2.0, Value: 5},
		{T: 2.5, Value: 7},
		{T: 4, Value: 0},
	}

	got := AverageKeys(seq, 1)

	assertSamples(t, got, []models.Sample{
		{T: 0, Value: 0},
		{T: 1.25, Value: 2},
		{T: 2.25, Value: 6},
		{T: 4, Value: 0},
	})
}

func TestAverageKeysSparseWindowsPassThrough(t *testing.T) {
	seq := seqOf(0, 1, 2, 3, 4, 5)

	got := AverageKeys(seq, 2)

	assertSamples(t, got, seq)
}

func TestAverageKeysFractionalRate(t *testing.T) {
	seq := []models.Sample{
		{T: 0, Value: 0},
		{T: 1.0, Value: 3},
		{T: 1.2, Value: 6},
		{T: 1.4, Value: 9},
		{T: 3, Value: 0},
	}

	got := AverageKeys(seq, 0.5)

	if len(got) != 3 {
		t.Fatalf("expected the window to collapse into one sample, got %v", got)
	}
	if !approxEqual(got[1].T, 1.2) || !approxEqual(got[1].Value, 6) {
		t.Errorf("got average %v, expected (1.2, 6)", got[1])
	}
}

func TestAverageKeysDisabledAndShort(t *testing.T) {
	seq := seqOf(0, 1, 2, 3)
	assertSamples(t, AverageKeys(seq, 0), seq)

	short := seqOf(4, 5)
	assertSamples(t, AverageKeys(short, 1), short)
}

func TestAverageKeysDoesNotMutateInput(t *testing.T) {
	seq := noisySine(120, 5)
	before := append([]models.Sample(nil), seq...)

	got := AverageKeys(seq, 4)

	assertSamples(t, seq, before)
	assertEndpoints(t, seq, got)
	for i := 1; i < len(got); i++ {
		if got[i].T <= got[i-1].T {
			t.Fatalf("timestamps not increasing at %d: %f after %f", i, got[i].T, got[i-1].T)
		}
	}
}
