package curve

import (
	"math"

	"github.com/himanishpuri/PoseCurve/pkg/models"
	"gonum.org/v1/gonum/floats"
)

// windowSeconds is the wall-clock length of an averaging window.
const windowSeconds = 1.0

// AverageKeys limits the number of samples per second by averaging.
//
// Interior samples are split into disjoint one-second windows; a window
// starts at its first sample and holds the following samples with
// t < start+1s. A window with more than keysPerSec samples is cut, in order,
// into chunks of ceil(count/keysPerSec) samples (the last chunk may be
// shorter) and each chunk is replaced by its mean time and mean value. The
// first and last samples are never merged.
//
// Short peaks such as a kick can be averaged away, so this stage is meant
// as an alternative to ReduceTrembling and FitLines, not a companion.
func AverageKeys(seq []models.Sample, keysPerSec float64) []models.Sample {
	if keysPerSec <= 0 || len(seq) < 3 {
		return passThrough(seq)
	}

	n := len(seq)
	out := make([]models.Sample, 0, n)
	out = append(out, seq[0])
	for lo := 1; lo < n-1; {
		hi := lo + 1
		for hi < n-1 && seq[hi].T < seq[lo].T+windowSeconds {
			hi++
		}
		out = appendWindow(out, seq[lo:hi], keysPerSec)
		lo = hi
	}
	return append(out, seq[n-1])
}

func appendWindow(out, window []models.Sample, keysPerSec float64) []models.Sample {
	count := len(window)
	if float64(count) <= keysPerSec {
		return append(out, window...)
	}

	size := count
	if keysPerSec >= 1 {
		size = int(math.Ceil(float64(count) / keysPerSec))
	}
	for start := 0; start < count; start += size {
		out = append(out, mean(window[start:min(start+size, count)]))
	}
	return out
}

func mean(chunk []models.Sample) models.Sample {
	ts := make([]float64, len(chunk))
	vs := make([]float64, len(chunk))
	for i, s := range chunk {
		ts[i], vs[i] = s.T, s.Value
	}
	n := float64(len(chunk))
	return models.Sample{T: floats.Sum(ts) / n, Value: floats.Sum(vs) / n}
}
