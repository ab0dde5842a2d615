package dataset

// Package dataset scans a labeled image directory and partitions it into
// training/validation/test splits. The layout on disk is one immediate
// subdirectory per class, each containing image files.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrTooFewClasses means the root directory has fewer than two class subdirectories
	ErrTooFewClasses = errors.New("fewer than two class directories")

	// ErrNoImages means no recognizable image files were found
	ErrNoImages = errors.New("no image files found")
)

// Sample is one labeled image on disk.
type Sample struct {
	Path  string // Full path to the image file
	Class int    // Index into Collection.Classes
}

// Collection is the full labeled image set found under a root directory.
// Samples are ordered by class, and by filename within a class, so that
// scanning the same directory twice yields an identical Collection.
type Collection struct {
	Root    string
	Classes []string
	Samples []Sample
}

// Image extensions that we treat as samples. Anything else in a class
// directory (sidecar files, checksums etc) is ignored.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".webp": true,
}

// IsImageFile returns true if the filename has a recognized image extension.
func IsImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ScanDir reads a labeled image directory.
// The immediate subdirectories of root name the classes.
// Class directories are scanned in parallel, but the resulting sample order
// is deterministic.
func ScanDir(root string) (*Collection, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("Failed to read dataset directory %v: %w", root, err)
	}
	classes := []string{}
	for _, ent := range entries {
		if ent.IsDir() {
			classes = append(classes, ent.Name())
		}
	}
	sort.Strings(classes)
	if len(classes) < 2 {
		return nil, fmt.Errorf("%w in %v (found %v)", ErrTooFewClasses, root, len(classes))
	}

	perClass := make([][]Sample, len(classes))
	var group errgroup.Group
	for i, class := range classes {
		i, class := i, class
		group.Go(func() error {
			dir := filepath.Join(root, class)
			files, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("Failed to read class directory %v: %w", dir, err)
			}
			samples := []Sample{}
			for _, f := range files {
				if f.IsDir() || !IsImageFile(f.Name()) {
					continue
				}
				samples = append(samples, Sample{
					Path:  filepath.Join(dir, f.Name()),
					Class: i,
				})
			}
			sort.Slice(samples, func(a, b int) bool { return samples[a].Path < samples[b].Path })
			perClass[i] = samples
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	col := &Collection{
		Root:    root,
		Classes: classes,
	}
	for _, samples := range perClass {
		col.Samples = append(col.Samples, samples...)
	}
	if len(col.Samples) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoImages, root)
	}
	return col, nil
}

// ClassCounts returns the number of samples per class index.
func (c *Collection) ClassCounts() []int {
	counts := make([]int, len(c.Classes))
	for _, s := range c.Samples {
		counts[s.Class]++
	}
	return counts
}

// NumSamples returns the total number of samples in the collection.
func (c *Collection) NumSamples() int {
	return len(c.Samples)
}
