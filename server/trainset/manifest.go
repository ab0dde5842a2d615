package trainset

import "github.com/cyclopcam/finetune/pkg/dataset"

// Manifest is the trainer-facing description of a dataset package.
// Split membership is recorded as archive-relative paths, so a training run
// is reproducible from the archive alone.
type Manifest struct {
	Classes      []string                      `json:"classes"`
	Seed         int64                         `json:"seed"`
	ValFraction  float64                       `json:"valFraction"`
	BatchSize    int                           `json:"batchSize"`
	Counts       map[string]int                `json:"counts"`       // split name -> sample count
	Splits       map[string][]string           `json:"splits"`       // split name -> archive paths
	Distribution map[string]map[string]float64 `json:"distribution"` // split name -> class -> percent
	ClassWeights map[int]float64               `json:"classWeights"`
}

func buildManifest(pkg *Package) *Manifest {
	m := &Manifest{
		Classes:      pkg.Classes,
		Seed:         pkg.Options.Seed,
		ValFraction:  pkg.Options.ValFraction,
		BatchSize:    pkg.Options.BatchSize,
		Counts:       map[string]int{},
		Splits:       map[string][]string{},
		Distribution: pkg.Distribution,
		ClassWeights: pkg.ClassWeights,
	}
	for _, split := range []*dataset.Split{pkg.Train, pkg.Val, pkg.Test} {
		m.Counts[split.Name] = len(split.Samples)
		paths := make([]string, 0, len(split.Samples))
		for _, sample := range split.Samples {
			paths = append(paths, archivePath(pkg.Classes, split.Name, sample))
		}
		m.Splits[split.Name] = paths
	}
	return m
}
