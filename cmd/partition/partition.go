package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/finetune/pkg/chart"
	"github.com/cyclopcam/finetune/pkg/dataset"
	"github.com/cyclopcam/finetune/server/trainset"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func main() {
	defaults := dataset.DefaultOptions()
	parser := argparse.NewParser("partition", "Partition an image dataset into train/val/test splits")
	root := parser.String("r", "root", &argparse.Options{Help: "Dataset root directory (one sub-directory per class)", Required: true})
	seed := parser.Int("s", "seed", &argparse.Options{Help: "Shuffle seed", Default: int(defaults.Seed)})
	fraction := parser.Float("f", "fraction", &argparse.Options{Help: "Fraction of the dataset held out of training", Default: defaults.ValFraction})
	batchSize := parser.Int("b", "batchsize", &argparse.Options{Help: "Batch size (test/val cut happens on a batch boundary)", Default: defaults.BatchSize})
	outFile := parser.String("o", "out", &argparse.Options{Help: "Write the dataset package to this zip file", Default: ""})
	chartFile := parser.String("", "chart", &argparse.Options{Help: "Write a PNG chart of the training distribution to this file", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	col, err := dataset.ScanDir(*root)
	check(err)

	opts := dataset.Options{
		Seed:        int64(*seed),
		ValFraction: *fraction,
		BatchSize:   *batchSize,
	}
	packer := trainset.NewPacker(logger)
	pkg, err := packer.BuildPackage(col, opts)
	check(err)

	fmt.Printf("%v: %v classes, %v images\n", col.Root, len(col.Classes), col.NumSamples())
	fmt.Printf("train %v, val %v, test %v (seed %v, fraction %v, batch size %v)\n\n",
		len(pkg.Train.Samples), len(pkg.Val.Samples), len(pkg.Test.Samples),
		opts.Seed, opts.ValFraction, opts.BatchSize)

	splits := []string{"train", "val", "test"}
	fmt.Printf("%-20v %10v %10v %10v %10v\n", "class", "train%", "val%", "test%", "weight")
	for i, class := range col.Classes {
		fmt.Printf("%-20v", class)
		for _, split := range splits {
			fmt.Printf(" %10.2f", pkg.Distribution[split][class])
		}
		fmt.Printf(" %10.4f\n", pkg.ClassWeights[i])
	}

	if *chartFile != "" {
		png, err := chart.DistributionChart("Class distribution (train)", pkg.Classes, pkg.Distribution["train"])
		check(err)
		check(os.WriteFile(*chartFile, png, 0644))
		fmt.Printf("\nWrote chart to %v\n", *chartFile)
	}

	if *outFile != "" {
		file, err := os.Create(*outFile)
		check(err)
		check(packer.WriteArchive(file, pkg))
		check(file.Close())
		fmt.Printf("\nWrote dataset package to %v\n", *outFile)
	}
}
