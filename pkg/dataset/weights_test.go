package dataset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func repeatLabels(counts ...int) []int {
	labels := []int{}
	for class, count := range counts {
		for i := 0; i < count; i++ {
			labels = append(labels, class)
		}
	}
	return labels
}

func TestClassWeightsBalanced(t *testing.T) {
	weights, err := ClassWeights(repeatLabels(20, 20, 20), 3)
	require.NoError(t, err)
	require.Len(t, weights, 3)
	for c := 0; c < 3; c++ {
		require.InDelta(t, 1.0, weights[c], 1e-9)
	}
}

func TestClassWeightsImbalanced(t *testing.T) {
	// Sizes {100, 50, 25}: weight of the rarest class is 2x the middle
	// class and 4x the most common class.
	weights, err := ClassWeights(repeatLabels(100, 50, 25), 3)
	require.NoError(t, err)
	require.InDelta(t, 2.0, weights[2]/weights[1], 1e-9)
	require.InDelta(t, 4.0, weights[2]/weights[0], 1e-9)

	// weight(c) = total / (numClasses * count(c))
	require.InDelta(t, 175.0/(3*100), weights[0], 1e-9)
	require.InDelta(t, 175.0/(3*50), weights[1], 1e-9)
	require.InDelta(t, 175.0/(3*25), weights[2], 1e-9)
}

func TestClassWeightsZeroSamples(t *testing.T) {
	// Class 2 never appears in the labels
	_, err := ClassWeights(repeatLabels(10, 10), 3)
	require.ErrorIs(t, err, ErrZeroClassSamples)
}

func TestClassWeightsBadInput(t *testing.T) {
	_, err := ClassWeights([]int{0, 1, 5}, 3)
	require.Error(t, err)

	_, err = ClassWeights([]int{-1}, 2)
	require.Error(t, err)

	_, err = ClassWeights([]int{}, 0)
	require.Error(t, err)
}
