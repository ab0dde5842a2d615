package dataset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistribution(t *testing.T) {
	classes := []string{"bird", "cat", "dog"}
	split := &Split{
		Name:      "train",
		BatchSize: 4,
		Samples: []Sample{
			{Class: 1}, {Class: 1}, {Class: 1},
			{Class: 2}, {Class: 2},
			{Class: 0},
		},
	}
	dist := Distribution(split, classes)
	require.InDelta(t, 16.67, dist["bird"], 0.001)
	require.InDelta(t, 50.00, dist["cat"], 0.001)
	require.InDelta(t, 33.33, dist["dog"], 0.001)
}

func TestDistributionSumsTo100(t *testing.T) {
	root := makeDataset(t, map[string]int{"a": 37, "b": 51, "c": 13, "d": 7})
	col, err := ScanDir(root)
	require.NoError(t, err)

	train, val, err := Partition(col, Options{Seed: 11, ValFraction: 0.3, BatchSize: 8})
	require.NoError(t, err)

	for _, split := range []*Split{train, val} {
		sum := 0.0
		for _, pct := range Distribution(split, col.Classes) {
			sum += pct
		}
		require.InDelta(t, 100.0, sum, 0.1, "split %v percentages sum to %v", split.Name, sum)
	}
}

func TestDistributionZeroSampleClass(t *testing.T) {
	classes := []string{"cat", "dog", "ghost"}
	split := &Split{
		Name:      "val",
		BatchSize: 2,
		Samples:   []Sample{{Class: 0}, {Class: 1}},
	}
	dist := Distribution(split, classes)
	require.Equal(t, 0.0, dist["ghost"])
	require.InDelta(t, 50.0, dist["cat"], 0.001)
}

func TestDistributionEmptySplit(t *testing.T) {
	classes := []string{"cat", "dog"}
	split := &Split{Name: "val", BatchSize: 2}
	dist := Distribution(split, classes)
	require.Equal(t, 0.0, dist["cat"])
	require.Equal(t, 0.0, dist["dog"])
}
