package runsdb

import (
	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

type RunState string

const (
	RunStatePending   RunState = "pending"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
	RunStateCancelled RunState = "cancelled"
)

// Finished is true once the run can no longer change state.
func (s RunState) Finished() bool {
	return s == RunStateCompleted || s == RunStateFailed || s == RunStateCancelled
}

// EpochMetrics is one epoch of trainer progress.
type EpochMetrics struct {
	Epoch       int     `json:"epoch"`
	Loss        float64 `json:"loss"`
	Accuracy    float64 `json:"accuracy"`
	ValLoss     float64 `json:"valLoss"`
	ValAccuracy float64 `json:"valAccuracy"`
}

// TrainingRun is one fine-tuning run over a dataset partition.
type TrainingRun struct {
	BaseModel
	State        RunState                            `json:"state"`
	DatasetRoot  string                              `json:"datasetRoot"`
	Seed         int64                               `json:"seed"`
	ValFraction  float64                             `json:"valFraction"`
	BatchSize    int                                 `json:"batchSize"`
	Classes      *dbh.JSONField[[]string]            `json:"classes"`
	Distribution *dbh.JSONField[map[string]float64]  `json:"distribution"` // Training split percentages
	ClassWeights *dbh.JSONField[map[int]float64]     `json:"classWeights"`
	History      *dbh.JSONField[[]EpochMetrics]      `json:"history"`
	Error        string                              `json:"error,omitempty"`
	ArtifactPath string                              `json:"artifactPath,omitempty"` // Where the trained model was stored
	CreatedAt    dbh.IntTime                         `json:"createdAt"`
	StartedAt    dbh.IntTime                         `json:"startedAt"`
	FinishedAt   dbh.IntTime                         `json:"finishedAt"`
}
