package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cyclopcam/finetune/pkg/chart"
	"github.com/cyclopcam/finetune/pkg/dataset"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

type datasetSummaryJSON struct {
	Root        string         `json:"root"`
	Classes     []string       `json:"classes"`
	Counts      map[string]int `json:"counts"`
	NumSamples  int            `json:"numSamples"`
	Seed        int64          `json:"seed"`
	ValFraction float64        `json:"valFraction"`
	BatchSize   int            `json:"batchSize"`
	Splits      map[string]int `json:"splits"`
}

func (s *Server) httpDatasetSummary(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	col, pkg := s.currentPackage()
	counts := map[string]int{}
	for i, n := range col.ClassCounts() {
		counts[col.Classes[i]] = n
	}
	www.SendJSON(w, &datasetSummaryJSON{
		Root:        col.Root,
		Classes:     col.Classes,
		Counts:      counts,
		NumSamples:  col.NumSamples(),
		Seed:        pkg.Options.Seed,
		ValFraction: pkg.Options.ValFraction,
		BatchSize:   pkg.Options.BatchSize,
		Splits: map[string]int{
			"train": len(pkg.Train.Samples),
			"val":   len(pkg.Val.Samples),
			"test":  len(pkg.Test.Samples),
		},
	})
}

// httpDatasetDistribution returns the class distribution of one split, as
// percentages. ?split=train|val|test (default train), ?format=json|png.
func (s *Server) httpDatasetDistribution(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	_, pkg := s.currentPackage()
	split := www.QueryValue(r, "split")
	if split == "" {
		split = "train"
	}
	dist, ok := pkg.Distribution[split]
	if !ok {
		www.PanicBadRequestf("Unknown split '%v'. Valid splits are train, val, test.", split)
	}
	if www.QueryValue(r, "format") == "png" {
		png, err := chart.DistributionChart(fmt.Sprintf("Class distribution (%v)", split), pkg.Classes, dist)
		www.Check(err)
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
		return
	}
	www.SendJSON(w, dist)
}

type classWeightJSON struct {
	Class  string  `json:"class"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
}

// httpDatasetWeights returns the inverse-frequency class weights of the
// training split, in class order.
func (s *Server) httpDatasetWeights(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	_, pkg := s.currentPackage()
	counts := map[int]int{}
	for _, label := range pkg.Train.Labels() {
		counts[label]++
	}
	weights := make([]classWeightJSON, len(pkg.Classes))
	for i, class := range pkg.Classes {
		weights[i] = classWeightJSON{
			Class:  class,
			Count:  counts[i],
			Weight: pkg.ClassWeights[i],
		}
	}
	www.SendJSON(w, weights)
}

// httpDatasetPackage streams the dataset package as a zip archive, with its
// manifest and the images laid out per split.
func (s *Server) httpDatasetPackage(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	_, pkg := s.currentPackage()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=\"dataset.zip\"")
	if err := s.packer.WriteArchive(w, pkg); err != nil {
		// Too late for an error response, the body is partially written
		s.Log.Errorf("Failed to stream dataset package: %v", err)
	}
}

// httpDatasetRescan re-reads the dataset directory and rebuilds the partition.
func (s *Server) httpDatasetRescan(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := s.rescanDataset(); err != nil {
		if errors.Is(err, dataset.ErrTooFewClasses) || errors.Is(err, dataset.ErrNoImages) || errors.Is(err, dataset.ErrEmptySplit) {
			www.PanicBadRequestf("%v", err)
		}
		www.Check(err)
	}
	www.SendOK(w)
}
