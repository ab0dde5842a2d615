package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/finetune/pkg/classifier"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func main() {
	parser := argparse.NewParser("predict", "Classify an image with a fine-tuned model")
	modelFile := parser.String("n", "model", &argparse.Options{Help: "Path to ONNX model file", Required: true})
	metadataFile := parser.String("m", "metadata", &argparse.Options{Help: "Path to model metadata JSON", Required: true})
	imageFile := parser.String("i", "image", &argparse.Options{Help: "Image to classify", Required: true})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	model, err := classifier.NewClassifier(logger, *modelFile, *metadataFile)
	check(err)
	defer model.Close()

	input, err := classifier.PreprocessFile(*imageFile, model.Metadata)
	check(err)
	pred, err := model.Predict(input)
	check(err)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	check(encoder.Encode(pred))
}
