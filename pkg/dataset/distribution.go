package dataset

import "math"

// Distribution tallies a split and returns the percentage of samples
// belonging to each class, rounded to two decimals. Every sample in the split
// is visited exactly once. A class with no samples reports 0.00.
// Class indices outside the given class list are ignored.
func Distribution(split *Split, classes []string) map[string]float64 {
	counts := make([]int, len(classes))
	total := 0
	for _, s := range split.Samples {
		if s.Class >= 0 && s.Class < len(counts) {
			counts[s.Class]++
			total++
		}
	}
	dist := make(map[string]float64, len(classes))
	for i, class := range classes {
		if total == 0 {
			dist[class] = 0
			continue
		}
		dist[class] = round2(100 * float64(counts[i]) / float64(total))
	}
	return dist
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
