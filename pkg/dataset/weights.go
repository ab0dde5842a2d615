package dataset

import (
	"errors"
	"fmt"
)

// ErrZeroClassSamples means a class has no samples in the training split, so
// an inverse-frequency weight would divide by zero.
var ErrZeroClassSamples = errors.New("class has no training samples")

// ClassWeights computes one positive weight per class index from the labels
// observed in a training split, using the balanced rule
//
//	weight(c) = total / (numClasses * count(c))
//
// so that rare classes weigh more, and the weighted loss stays on the same
// scale as the unweighted case. A class with zero samples is an error, never
// an Inf/NaN weight.
func ClassWeights(labels []int, numClasses int) (map[int]float64, error) {
	if numClasses < 1 {
		return nil, fmt.Errorf("Invalid class count %v", numClasses)
	}
	counts := make([]int, numClasses)
	for _, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("Label %v is out of range (class count %v)", label, numClasses)
		}
		counts[label]++
	}
	weights := make(map[int]float64, numClasses)
	total := float64(len(labels))
	for c, count := range counts {
		if count == 0 {
			return nil, fmt.Errorf("%w: class %v", ErrZeroClassSamples, c)
		}
		weights[c] = total / (float64(numClasses) * float64(count))
	}
	return weights, nil
}
