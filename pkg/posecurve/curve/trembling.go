package curve

import "github.com/himanishpuri/PoseCurve/pkg/models"

// ReduceTrembling removes high frequency oscillations from seq.
//
// A tremble run is a maximal run of consecutive samples that are each a
// strict local maximum or minimum. Neighbouring strict extrema always
// alternate, so the number of samples in the run is the number of direction
// reversals. Runs with at least minFreq reversals are dropped entirely; the
// samples bounding the run are kept, which straightens the curve across the
// noisy region. Timestamps and values of survivors are never altered, and the
// first and last samples always survive.
func ReduceTrembling(seq []models.Sample, minFreq int) []models.Sample {
	if minFreq <= 0 || len(seq) < 3 {
		return passThrough(seq)
	}

	out := make([]models.Sample, 0, len(seq))
	next := 0
	for _, run := range TrembleRuns(seq) {
		if run[1]-run[0] < minFreq {
			continue
		}
		out = append(out, seq[next:run[0]]...)
		next = run[1]
	}
	return append(out, seq[next:]...)
}

// TrembleRuns returns the [start, end) index ranges of every tremble run in
// seq, in order. Useful to inspect what ReduceTrembling would remove.
func TrembleRuns(seq []models.Sample) [][2]int {
	var runs [][2]int
	for i := 1; i < len(seq)-1; {
		if !isExtremum(seq, i) {
			i++
			continue
		}
		end := i
		for end < len(seq)-1 && isExtremum(seq, end) {
			end++
		}
		runs = append(runs, [2]int{i, end})
		i = end
	}
	return runs
}

// isExtremum reports whether interior sample i is higher or lower than both
// neighbours. Plateaus are not extrema.
func isExtremum(seq []models.Sample, i int) bool {
	prev, cur, next := seq[i-1].Value, seq[i].Value, seq[i+1].Value
	return (cur > prev && cur > next) || (cur < prev && cur < next)
}
