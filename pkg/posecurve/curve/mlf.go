package curve

import (
	"container/heap"
	"math"

	"github.com/himanishpuri/PoseCurve/pkg/models"
	"gonum.org/v1/gonum/floats"
)

// FitLines runs Multi-Line Fitting: it returns the smallest subsequence of
// seq, always containing the first and last samples, such that every dropped
// sample lies within maxError of the polyline through the kept ones.
//
// maxError is (max(value) - min(value)) * maxErrorRatio over the whole input
// and stays fixed during the fit. Starting from the segment {first, last},
// the dropped sample with the largest vertical error above maxError is kept
// and its segment split in two (ties go to the earliest sample). Only the two
// new segments are rescanned; the worst sample of every other segment is
// cached in a priority queue. A flat curve collapses to its endpoints.
func FitLines(seq []models.Sample, maxErrorRatio float64) []models.Sample {
	if maxErrorRatio <= 0 || len(seq) < 3 {
		return passThrough(seq)
	}

	values := make([]float64, len(seq))
	for i, s := range seq {
		values[i] = s.Value
	}
	maxError := (floats.Max(values) - floats.Min(values)) * maxErrorRatio

	n := len(seq)
	kept := make([]bool, n)
	kept[0], kept[n-1] = true, true

	queue := &segmentQueue{}
	queue.pushIfAbove(scanSegment(seq, 0, n-1), maxError)
	for queue.Len() > 0 {
		s := popSegment(queue)
		kept[s.worst] = true
		queue.pushIfAbove(scanSegment(seq, s.lo, s.worst), maxError)
		queue.pushIfAbove(scanSegment(seq, s.worst, s.hi), maxError)
	}

	out := make([]models.Sample, 0, n)
	for i, k := range kept {
		if k {
			out = append(out, seq[i])
		}
	}
	return out
}

// MaxDeviation returns the largest vertical distance between a sample of
// original and the polyline through fitted. Both must be ordered by time and
// fitted must span the time range of original.
func MaxDeviation(original, fitted []models.Sample) float64 {
	if len(fitted) < 2 {
		return 0
	}
	var worst float64
	j := 0
	for _, s := range original {
		for j < len(fitted)-2 && fitted[j+1].T < s.T {
			j++
		}
		worst = math.Max(worst, math.Abs(s.Value-interpolate(fitted[j], fitted[j+1], s.T)))
	}
	return worst
}

func interpolate(a, b models.Sample, t float64) float64 {
	return a.Value + (t-a.T)*(b.Value-a.Value)/(b.T-a.T)
}

// segment is a pair of kept samples, as indices into the input, with the
// cached worst interior sample. worst is -1 when the segment has no interior.
type segment struct {
	lo, hi int
	worst  int
	err    float64
}

func scanSegment(seq []models.Sample, lo, hi int) segment {
	s := segment{lo: lo, hi: hi, worst: -1}
	a, b := seq[lo], seq[hi]
	for i := lo + 1; i < hi; i++ {
		e := math.Abs(seq[i].Value - interpolate(a, b, seq[i].T))
		// strict comparison keeps the earliest of equal errors
		if s.worst < 0 || e > s.err {
			s.worst, s.err = i, e
		}
	}
	return s
}

// segmentQueue is a max-heap of segments by worst error, then earliest index.
type segmentQueue []segment

func (q segmentQueue) Len() int { return len(q) }

func (q segmentQueue) Less(i, j int) bool {
	if q[i].err != q[j].err {
		return q[i].err > q[j].err
	}
	return q[i].worst < q[j].worst
}

func (q segmentQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *segmentQueue) Push(x any) { *q = append(*q, x.(segment)) }

func (q *segmentQueue) Pop() any {
	old := *q
	n := len(old)
	s := old[n-1]
	*q = old[:n-1]
	return s
}

func (q *segmentQueue) pushIfAbove(s segment, maxError float64) {
	if s.worst >= 0 && s.err > maxError {
		heap.Push(q, s)
	}
}

func popSegment(q *segmentQueue) segment {
	return heap.Pop(q).(segment)
}
