package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclopcam/finetune/pkg/dataset"
)

type Config struct {
	// DatasetRoot is the directory holding one sub-directory of images per class
	DatasetRoot string `json:"datasetRoot"`

	// Partitioning parameters. Zero values fall back to the defaults.
	Seed        int64   `json:"seed"`
	ValFraction float64 `json:"valFraction"`
	BatchSize   int     `json:"batchSize"`

	RunsDB  string `json:"runsDB"`  // Path to the training runs sqlite database
	WorkDir string `json:"workDir"` // Scratch space for dataset packages and in-flight models

	// TrainerCommand launches the external training process,
	// eg ["python3", "train.py"]. We append --dataset and --output.
	TrainerCommand []string `json:"trainerCommand"`

	Model           ModelConfig   `json:"model"`
	ArtifactStorage StorageConfig `json:"artifactStorage"`

	// RecompressMaxDim, when non-zero, shrinks oversized JPEGs when packaging
	RecompressMaxDim int `json:"recompressMaxDim"`

	// PredictRateLimit is requests per minute per IP on /api/predict (0 = default of 60)
	PredictRateLimit int `json:"predictRateLimit"`
}

type ModelConfig struct {
	Path     string `json:"path"`     // ONNX model file. May be absent until a model is deployed.
	Metadata string `json:"metadata"` // JSON metadata saved alongside the model
}

// One of the storage options must be configured (i.e. either 'filesystem' or 'gcs')
type StorageConfig struct {
	Filesystem *StorageConfigFS  `json:"filesystem"`
	GCS        *StorageConfigGCS `json:"gcs"`
}

type StorageConfigFS struct {
	Root string `json:"root"` // Path to the root of the filesystem
}

type StorageConfigGCS struct {
	Bucket string `json:"bucket"` // Name of the GCS bucket
}

func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("Error parsing config file %v: %w", filename, err)
	}
	if cfg.DatasetRoot == "" {
		return nil, fmt.Errorf("Config file %v does not specify datasetRoot", filename)
	}
	if cfg.RunsDB == "" {
		return nil, fmt.Errorf("Config file %v does not specify runsDB", filename)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.PredictRateLimit <= 0 {
		cfg.PredictRateLimit = 60
	}
	return cfg, nil
}

// DatasetOptions merges the config's partitioning parameters with the defaults.
func (c *Config) DatasetOptions() dataset.Options {
	opts := dataset.DefaultOptions()
	if c.Seed != 0 {
		opts.Seed = c.Seed
	}
	if c.ValFraction != 0 {
		opts.ValFraction = c.ValFraction
	}
	if c.BatchSize != 0 {
		opts.BatchSize = c.BatchSize
	}
	return opts
}
