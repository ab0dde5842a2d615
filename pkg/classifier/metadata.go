package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata is saved in a JSON file alongside the exported ONNX model.
type Metadata struct {
	Architecture string   `json:"architecture"` // eg "efficientnetv2b2"
	InputShape   []int64  `json:"inputShape"`   // eg [1, 3, 260, 260]
	OutputShape  []int64  `json:"outputShape"`  // eg [1, 5]
	Classes      []string `json:"classes"`      // Class names, in output order
	ImageSize    int      `json:"imageSize"`    // Square input dimension, eg 260
	Logits       bool     `json:"logits"`       // True if the model outputs raw logits instead of probabilities
}

// LoadMetadata reads model metadata from a JSON file.
func LoadMetadata(filename string) (*Metadata, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Failed to read model metadata %v: %w", filename, err)
	}
	meta := &Metadata{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, fmt.Errorf("Failed to parse model metadata %v: %w", filename, err)
	}
	if err := meta.validate(); err != nil {
		return nil, fmt.Errorf("Invalid model metadata %v: %w", filename, err)
	}
	return meta, nil
}

func (m *Metadata) validate() error {
	if len(m.Classes) < 2 {
		return fmt.Errorf("need at least two classes, have %v", len(m.Classes))
	}
	if m.ImageSize < 1 {
		return fmt.Errorf("invalid image size %v", m.ImageSize)
	}
	if len(m.InputShape) != 4 {
		return fmt.Errorf("input shape must have 4 dimensions, have %v", len(m.InputShape))
	}
	if len(m.OutputShape) < 2 {
		return fmt.Errorf("output shape must have at least 2 dimensions, have %v", len(m.OutputShape))
	}
	return nil
}

// ChannelsFirst is true for NCHW input layouts, false for NHWC.
func (m *Metadata) ChannelsFirst() bool {
	return m.InputShape[1] == 3
}

// InputSize is the number of float32 values the model expects.
func (m *Metadata) InputSize() int {
	n := 1
	for _, dim := range m.InputShape {
		n *= int(dim)
	}
	return n
}
