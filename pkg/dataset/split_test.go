package dataset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleSet(samples []Sample) map[string]bool {
	set := map[string]bool{}
	for _, s := range samples {
		set[s.Path] = true
	}
	return set
}

func TestPartitionDeterministic(t *testing.T) {
	root := makeDataset(t, map[string]int{"cat": 40, "dog": 30, "bird": 30})
	col, err := ScanDir(root)
	require.NoError(t, err)

	for _, seed := range []int64{0, 1, 42, 987654321} {
		opts := Options{Seed: seed, ValFraction: 0.2, BatchSize: 8}
		train1, val1, err := Partition(col, opts)
		require.NoError(t, err)
		train2, val2, err := Partition(col, opts)
		require.NoError(t, err)
		require.Equal(t, train1.Samples, train2.Samples)
		require.Equal(t, val1.Samples, val2.Samples)
	}
}

func TestPartitionCoversCollection(t *testing.T) {
	root := makeDataset(t, map[string]int{"cat": 33, "dog": 27})
	col, err := ScanDir(root)
	require.NoError(t, err)

	train, val, err := Partition(col, Options{Seed: 7, ValFraction: 0.25, BatchSize: 4})
	require.NoError(t, err)

	trainSet := sampleSet(train.Samples)
	valSet := sampleSet(val.Samples)
	require.Equal(t, col.NumSamples(), len(trainSet)+len(valSet))
	for path := range valSet {
		require.False(t, trainSet[path], "sample %v appears in both splits", path)
	}
	for _, s := range col.Samples {
		require.True(t, trainSet[s.Path] || valSet[s.Path], "sample %v lost by partition", s.Path)
	}
}

func TestPartitionScenario(t *testing.T) {
	// 3 classes of sizes {100, 50, 25}, held-out fraction 0.2:
	// training ~140, validation ~35.
	root := makeDataset(t, map[string]int{"a": 100, "b": 50, "c": 25})
	col, err := ScanDir(root)
	require.NoError(t, err)

	train, val, err := Partition(col, Options{Seed: 3, ValFraction: 0.2, BatchSize: 16})
	require.NoError(t, err)
	require.Equal(t, 140, len(train.Samples))
	require.Equal(t, 35, len(val.Samples))
}

func TestPartitionErrors(t *testing.T) {
	root := makeDataset(t, map[string]int{"cat": 3, "dog": 2})
	col, err := ScanDir(root)
	require.NoError(t, err)

	// Fraction that rounds down to an empty validation split
	_, _, err = Partition(col, Options{Seed: 1, ValFraction: 0.01, BatchSize: 2})
	require.ErrorIs(t, err, ErrEmptySplit)

	_, _, err = Partition(col, Options{Seed: 1, ValFraction: 0, BatchSize: 2})
	require.Error(t, err)
	_, _, err = Partition(col, Options{Seed: 1, ValFraction: 1.5, BatchSize: 2})
	require.Error(t, err)
	_, _, err = Partition(col, Options{Seed: 1, ValFraction: 0.2, BatchSize: 0})
	require.Error(t, err)
}

func TestBisect(t *testing.T) {
	root := makeDataset(t, map[string]int{"cat": 60, "dog": 60})
	col, err := ScanDir(root)
	require.NoError(t, err)

	_, val, err := Partition(col, Options{Seed: 5, ValFraction: 0.5, BatchSize: 10})
	require.NoError(t, err)
	require.Equal(t, 60, len(val.Samples))

	test, residual, err := Bisect(val)
	require.NoError(t, err)
	// Positional cut at the middle batch boundary, no shuffling
	require.Equal(t, 30, len(test.Samples))
	require.Equal(t, 30, len(residual.Samples))
	require.Equal(t, val.Samples[:30], test.Samples)
	require.Equal(t, val.Samples[30:], residual.Samples)

	// Bisecting twice gives the same cut
	test2, residual2, err := Bisect(val)
	require.NoError(t, err)
	require.Equal(t, test.Samples, test2.Samples)
	require.Equal(t, residual.Samples, residual2.Samples)
}

func TestBisectTooSmall(t *testing.T) {
	val := &Split{Name: "val", BatchSize: 32, Samples: make([]Sample, 10)}
	_, _, err := Bisect(val)
	require.ErrorIs(t, err, ErrEmptySplit)
}

func TestSplitBatches(t *testing.T) {
	split := &Split{Name: "train", BatchSize: 4, Samples: make([]Sample, 10)}
	require.Equal(t, 3, split.NumBatches())
	require.Len(t, split.Batch(0), 4)
	require.Len(t, split.Batch(1), 4)
	require.Len(t, split.Batch(2), 2)
}

func TestDistributionSkew(t *testing.T) {
	classes := []string{"cat", "dog"}
	a := &Split{BatchSize: 4, Samples: []Sample{{Class: 0}, {Class: 0}, {Class: 1}, {Class: 1}}}
	b := &Split{BatchSize: 4, Samples: []Sample{{Class: 0}, {Class: 0}, {Class: 0}, {Class: 1}}}
	require.InDelta(t, 25.0, DistributionSkew(a, b, classes), 0.01)
	require.InDelta(t, 0.0, DistributionSkew(a, a, classes), 0.01)
}
