package runsdb

// Package runsdb records training runs: their dataset parameters, state,
// per-epoch metrics, and the artifact the trainer produced.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

type RunsDB struct {
	Log logs.Log
	DB  *gorm.DB
}

func NewRunsDB(logger logs.Log, dbFilename string) (*RunsDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open runs database %v: %w", dbFilename, err)
	}
	return &RunsDB{
		Log: logger,
		DB:  db,
	}, nil
}

// CreateRun inserts a new run in the pending state and returns it with its ID set.
func (r *RunsDB) CreateRun(run *TrainingRun) error {
	run.State = RunStatePending
	run.CreatedAt = dbh.MakeIntTime(time.Now())
	return r.DB.Create(run).Error
}

// GetRun fetches one run by ID.
func (r *RunsDB) GetRun(id int64) (*TrainingRun, error) {
	run := TrainingRun{}
	if err := r.DB.First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (r *RunsDB) ListRuns() ([]TrainingRun, error) {
	runs := []TrainingRun{}
	if err := r.DB.Order("id DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// SetRunState transitions a run and stamps the relevant time field.
func (r *RunsDB) SetRunState(id int64, state RunState, errorMsg string) error {
	updates := map[string]any{
		"state": state,
		"error": errorMsg,
	}
	switch state {
	case RunStateRunning:
		updates["started_at"] = dbh.MakeIntTime(time.Now())
	case RunStateCompleted, RunStateFailed, RunStateCancelled:
		updates["finished_at"] = dbh.MakeIntTime(time.Now())
	}
	return r.DB.Model(&TrainingRun{}).Where("id = ?", id).Updates(updates).Error
}

// SetRunArtifact records where the trained model was stored.
func (r *RunsDB) SetRunArtifact(id int64, artifactPath string) error {
	return r.DB.Model(&TrainingRun{}).Where("id = ?", id).Update("artifact_path", artifactPath).Error
}

// AppendEpoch adds one epoch of metrics to the run's history.
func (r *RunsDB) AppendEpoch(id int64, m EpochMetrics) error {
	run, err := r.GetRun(id)
	if err != nil {
		return err
	}
	history := []EpochMetrics{}
	if run.History != nil {
		history = run.History.Data
	}
	history = append(history, m)
	return r.DB.Model(&TrainingRun{}).Where("id = ?", id).Update("history", dbh.MakeJSONField(history)).Error
}
