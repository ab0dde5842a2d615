package trainset

// Package trainset packages a partitioned dataset into a single zip archive
// that the external trainer consumes: the images of each split under
// train/<class>/, val/<class>/ and test/<class>/, plus a manifest.json with
// the split membership, class distribution, and class weights.

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/finetune/pkg/dataset"
	"github.com/cyclopcam/logs"
)

// If the class distributions of the test and residual validation splits
// diverge by more than this many percentage points, we warn. The bisection is
// positional, so a skewed cut is possible and worth surfacing.
const bisectSkewWarnThreshold = 10.0

type Packer struct {
	Log logs.Log

	// RecompressMaxDim, when non-zero, re-encodes JPEG images whose longest
	// side exceeds it, to keep archives small. Other formats are copied as-is.
	RecompressMaxDim int
}

func NewPacker(log logs.Log) *Packer {
	return &Packer{Log: log}
}

// Package is the result of partitioning a collection: three splits plus the
// bookkeeping that the trainer needs.
type Package struct {
	Classes      []string
	Train        *dataset.Split
	Val          *dataset.Split
	Test         *dataset.Split
	Distribution map[string]map[string]float64 // split name -> class -> percent
	ClassWeights map[int]float64
	Options      dataset.Options
}

// BuildPackage partitions a collection and computes its distribution and
// class weights. It does not touch the image files; WriteArchive does that.
func (p *Packer) BuildPackage(col *dataset.Collection, opts dataset.Options) (*Package, error) {
	train, val, err := dataset.Partition(col, opts)
	if err != nil {
		return nil, err
	}
	test, val, err := dataset.Bisect(val)
	if err != nil {
		return nil, err
	}
	p.warnIfBisectSkewed(test, val, col.Classes)

	weights, err := dataset.ClassWeights(train.Labels(), len(col.Classes))
	if err != nil {
		return nil, fmt.Errorf("Failed to compute class weights: %w", err)
	}

	return &Package{
		Classes: col.Classes,
		Train:   train,
		Val:     val,
		Test:    test,
		Distribution: map[string]map[string]float64{
			"train": dataset.Distribution(train, col.Classes),
			"val":   dataset.Distribution(val, col.Classes),
			"test":  dataset.Distribution(test, col.Classes),
		},
		ClassWeights: weights,
		Options:      opts,
	}, nil
}

// WriteArchive streams the package as a zip archive.
func (p *Packer) WriteArchive(w io.Writer, pkg *Package) error {
	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	manifestZ, err := zipWriter.Create("manifest.json")
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(manifestZ)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(buildManifest(pkg)); err != nil {
		return err
	}

	for _, split := range []*dataset.Split{pkg.Train, pkg.Val, pkg.Test} {
		for _, sample := range split.Samples {
			fileZ, err := zipWriter.Create(archivePath(pkg.Classes, split.Name, sample))
			if err != nil {
				return err
			}
			if err := p.copyImage(fileZ, sample.Path); err != nil {
				return fmt.Errorf("Failed to add %v to archive: %w", sample.Path, err)
			}
		}
	}
	return nil
}

// warnIfBisectSkewed logs when the positional test/val cut left the two
// halves with very different class distributions. Returns true if it warned.
func (p *Packer) warnIfBisectSkewed(test, val *dataset.Split, classes []string) bool {
	skew := dataset.DistributionSkew(test, val, classes)
	if skew <= bisectSkewWarnThreshold {
		return false
	}
	p.Log.Warnf("Test/validation bisection is skewed by %.1f percentage points. "+
		"The cut is positional, not stratified, so the test split may not be representative.", skew)
	return true
}

func archivePath(classes []string, splitName string, sample dataset.Sample) string {
	return path.Join(splitName, classes[sample.Class], filepath.Base(sample.Path))
}

func (p *Packer) copyImage(dst io.Writer, src string) error {
	if p.RecompressMaxDim != 0 && dataset.IsImageFile(src) {
		if ok, err := p.recompress(dst, src); ok {
			return err
		}
	}
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(dst, file)
	return err
}

// recompress shrinks an oversized JPEG. Returns false if the image is small
// enough already, so the caller copies the original bytes instead.
func (p *Packer) recompress(dst io.Writer, src string) (bool, error) {
	img, err := cimg.ReadFile(src)
	if err != nil {
		// Not decodable by cimg (eg webp). Fall back to a raw copy.
		return false, nil
	}
	if img.Width <= p.RecompressMaxDim && img.Height <= p.RecompressMaxDim {
		return false, nil
	}
	scale := float64(p.RecompressMaxDim) / float64(max(img.Width, img.Height))
	img = cimg.ResizeNew(img, int(float64(img.Width)*scale), int(float64(img.Height)*scale), nil)
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling420, 90, 0))
	if err != nil {
		return true, err
	}
	_, err = dst.Write(jpg)
	return true, err
}
