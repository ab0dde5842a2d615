package trainset

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyclopcam/finetune/pkg/dataset"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func makeDataset(t *testing.T, classCounts map[string]int) *dataset.Collection {
	root := t.TempDir()
	for class, count := range classCounts {
		dir := filepath.Join(root, class)
		require.NoError(t, os.MkdirAll(dir, 0755))
		for i := 0; i < count; i++ {
			path := filepath.Join(dir, fmt.Sprintf("img%04d.jpg", i))
			require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("image %v/%v", class, i)), 0644))
		}
	}
	col, err := dataset.ScanDir(root)
	require.NoError(t, err)
	return col
}

func TestBuildPackage(t *testing.T) {
	col := makeDataset(t, map[string]int{"cat": 60, "dog": 40})
	packer := NewPacker(logs.NewTestingLog(t))

	pkg, err := packer.BuildPackage(col, dataset.Options{Seed: 42, ValFraction: 0.3, BatchSize: 5})
	require.NoError(t, err)

	require.Equal(t, 70, len(pkg.Train.Samples))
	require.Equal(t, 30, len(pkg.Val.Samples)+len(pkg.Test.Samples))
	require.Len(t, pkg.ClassWeights, 2)

	// Every split's distribution must sum to ~100
	for name, dist := range pkg.Distribution {
		sum := 0.0
		for _, pct := range dist {
			sum += pct
		}
		require.InDelta(t, 100.0, sum, 0.1, "distribution of %v", name)
	}
}

func TestWriteArchive(t *testing.T) {
	col := makeDataset(t, map[string]int{"cat": 20, "dog": 20})
	packer := NewPacker(logs.NewTestingLog(t))

	pkg, err := packer.BuildPackage(col, dataset.Options{Seed: 1, ValFraction: 0.25, BatchSize: 2})
	require.NoError(t, err)

	buf := bytes.Buffer{}
	require.NoError(t, packer.WriteArchive(&buf, pkg))

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var manifest Manifest
	found := map[string]int{}
	for _, f := range reader.File {
		if f.Name == "manifest.json" {
			r, err := f.Open()
			require.NoError(t, err)
			require.NoError(t, json.NewDecoder(r).Decode(&manifest))
			r.Close()
			continue
		}
		splitName := strings.SplitN(f.Name, "/", 2)[0]
		found[splitName]++
	}

	require.Equal(t, []string{"cat", "dog"}, manifest.Classes)
	require.Equal(t, 40, found["train"]+found["val"]+found["test"])
	for _, name := range []string{"train", "val", "test"} {
		require.Equal(t, manifest.Counts[name], found[name], "split %v", name)
		require.Len(t, manifest.Splits[name], manifest.Counts[name])
	}

	// Spot check that image bytes survive the trip
	for _, f := range reader.File {
		if strings.HasSuffix(f.Name, ".jpg") {
			r, err := f.Open()
			require.NoError(t, err)
			content, err := io.ReadAll(r)
			r.Close()
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(string(content), "image "))
			break
		}
	}
}

func TestBuildPackageTooSmall(t *testing.T) {
	col := makeDataset(t, map[string]int{"cat": 3, "dog": 3})
	packer := NewPacker(logs.NewTestingLog(t))

	// Validation ends up as a single batch, which cannot be bisected
	_, err := packer.BuildPackage(col, dataset.Options{Seed: 1, ValFraction: 0.2, BatchSize: 32})
	require.ErrorIs(t, err, dataset.ErrEmptySplit)
}

func TestBisectSkewWarning(t *testing.T) {
	packer := NewPacker(logs.NewTestingLog(t))
	classes := []string{"cat", "dog"}
	mono := func(class, n int) []dataset.Sample {
		samples := make([]dataset.Sample, n)
		for i := range samples {
			samples[i] = dataset.Sample{Path: fmt.Sprintf("%v-%v.jpg", classes[class], i), Class: class}
		}
		return samples
	}

	// All cats on one side, all dogs on the other: maximally lopsided cut
	test := &dataset.Split{Name: "test", BatchSize: 4, Samples: mono(0, 8)}
	val := &dataset.Split{Name: "val", BatchSize: 4, Samples: mono(1, 8)}
	require.True(t, packer.warnIfBisectSkewed(test, val, classes))

	// Identical distributions stay quiet
	balanced := append(mono(0, 4), mono(1, 4)...)
	test = &dataset.Split{Name: "test", BatchSize: 4, Samples: balanced}
	val = &dataset.Split{Name: "val", BatchSize: 4, Samples: balanced}
	require.False(t, packer.warnIfBisectSkewed(test, val, classes))
}
