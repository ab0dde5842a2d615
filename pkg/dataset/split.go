package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrEmptySplit means a requested partition produced a split with no samples
// (eg a held-out fraction that rounds down to nothing).
var ErrEmptySplit = errors.New("partition produced an empty split")

// Options controls how a Collection is partitioned.
type Options struct {
	Seed        int64   // Shuffle seed. The same seed always reproduces the same partition.
	ValFraction float64 // Fraction of samples held out for validation (0..1 exclusive)
	BatchSize   int     // Number of samples per batch
}

// DefaultOptions returns sane partitioning defaults.
func DefaultOptions() Options {
	return Options{
		Seed:        1234,
		ValFraction: 0.2,
		BatchSize:   32,
	}
}

func (o Options) validate() error {
	if o.ValFraction <= 0 || o.ValFraction >= 1 {
		return fmt.Errorf("Invalid held-out fraction %v (must be between 0 and 1, exclusive)", o.ValFraction)
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("Invalid batch size %v", o.BatchSize)
	}
	return nil
}

// Split is an ordered sequence of labeled samples, consumed in batches.
type Split struct {
	Name      string
	BatchSize int
	Samples   []Sample
}

// NumBatches returns the number of batches in the split (final batch may be partial).
func (s *Split) NumBatches() int {
	return (len(s.Samples) + s.BatchSize - 1) / s.BatchSize
}

// Batch returns the i'th batch.
func (s *Split) Batch(i int) []Sample {
	start := i * s.BatchSize
	end := min(start+s.BatchSize, len(s.Samples))
	return s.Samples[start:end]
}

// Labels returns the class index of every sample, in split order.
func (s *Split) Labels() []int {
	labels := make([]int, len(s.Samples))
	for i, sample := range s.Samples {
		labels[i] = sample.Class
	}
	return labels
}

// Partition shuffles the collection deterministically and splits it into a
// training split and a validation split. Every sample lands in exactly one of
// the two. Re-running with the same seed reproduces an identical partition.
func Partition(col *Collection, opts Options) (train, val *Split, err error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}
	shuffled := make([]Sample, len(col.Samples))
	copy(shuffled, col.Samples)
	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nVal := int(math.Round(float64(len(shuffled)) * opts.ValFraction))
	nTrain := len(shuffled) - nVal
	if nVal == 0 || nTrain == 0 {
		return nil, nil, fmt.Errorf("%w: %v samples with held-out fraction %v yields train=%v, val=%v",
			ErrEmptySplit, len(shuffled), opts.ValFraction, nTrain, nVal)
	}

	train = &Split{Name: "train", BatchSize: opts.BatchSize, Samples: shuffled[:nTrain]}
	val = &Split{Name: "val", BatchSize: opts.BatchSize, Samples: shuffled[nTrain:]}
	return train, val, nil
}

// Bisect cuts a validation split in two at the batch boundary closest to the
// middle: the first half of the batches become the test split, the remainder
// stays as validation. There is no shuffling at this stage, so the cut is
// reproducible, but NOT stratified: neither half is guaranteed to be
// class-balanced. Use DistributionSkew to detect a lopsided cut.
func Bisect(val *Split) (test, residual *Split, err error) {
	nBatches := val.NumBatches()
	if nBatches < 2 {
		return nil, nil, fmt.Errorf("%w: validation split has %v batch(es), need at least 2 to bisect",
			ErrEmptySplit, nBatches)
	}
	cut := (nBatches / 2) * val.BatchSize
	test = &Split{Name: "test", BatchSize: val.BatchSize, Samples: val.Samples[:cut]}
	residual = &Split{Name: "val", BatchSize: val.BatchSize, Samples: val.Samples[cut:]}
	return test, residual, nil
}

// DistributionSkew returns the largest absolute difference, in percentage
// points, between the class distributions of two splits. A large skew after
// Bisect means the positional cut produced a non-representative test split.
func DistributionSkew(a, b *Split, classes []string) float64 {
	da := Distribution(a, classes)
	db := Distribution(b, classes)
	worst := 0.0
	for _, class := range classes {
		d := math.Abs(da[class] - db[class])
		if d > worst {
			worst = d
		}
	}
	return worst
}
