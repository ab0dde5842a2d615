package runsdb

import (
	"path/filepath"
	"testing"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func createTestDB(t *testing.T) *RunsDB {
	db, err := NewRunsDB(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "runs.sqlite"))
	require.NoError(t, err)
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := createTestDB(t)

	run := &TrainingRun{
		DatasetRoot: "/data/flowers",
		Seed:        1234,
		ValFraction: 0.2,
		BatchSize:   32,
		Classes:     dbh.MakeJSONField([]string{"daisy", "rose", "tulip"}),
		ClassWeights: dbh.MakeJSONField(map[int]float64{
			0: 0.58, 1: 1.17, 2: 2.33,
		}),
	}
	require.NoError(t, db.CreateRun(run))
	require.NotZero(t, run.ID)
	require.Equal(t, RunStatePending, run.State)

	require.NoError(t, db.SetRunState(run.ID, RunStateRunning, ""))
	require.NoError(t, db.AppendEpoch(run.ID, EpochMetrics{Epoch: 1, Loss: 1.4, Accuracy: 0.5}))
	require.NoError(t, db.AppendEpoch(run.ID, EpochMetrics{Epoch: 2, Loss: 1.0, Accuracy: 0.62}))
	require.NoError(t, db.SetRunArtifact(run.ID, "models/run-1.onnx"))
	require.NoError(t, db.SetRunState(run.ID, RunStateCompleted, ""))

	fetched, err := db.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, RunStateCompleted, fetched.State)
	require.True(t, fetched.State.Finished())
	require.Equal(t, "models/run-1.onnx", fetched.ArtifactPath)
	require.Len(t, fetched.History.Data, 2)
	require.Equal(t, 2, fetched.History.Data[1].Epoch)
	require.Equal(t, []string{"daisy", "rose", "tulip"}, fetched.Classes.Data)
	require.InDelta(t, 2.33, fetched.ClassWeights.Data[2], 1e-9)
	require.NotZero(t, fetched.StartedAt.Get().Unix())
	require.NotZero(t, fetched.FinishedAt.Get().Unix())
}

func TestListRuns(t *testing.T) {
	db := createTestDB(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.CreateRun(&TrainingRun{DatasetRoot: "/data", Seed: int64(i), ValFraction: 0.2, BatchSize: 8}))
	}
	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	// Newest first
	require.Greater(t, runs[0].ID, runs[1].ID)
}

func TestFailedRunKeepsError(t *testing.T) {
	db := createTestDB(t)
	run := &TrainingRun{DatasetRoot: "/data", Seed: 1, ValFraction: 0.2, BatchSize: 8}
	require.NoError(t, db.CreateRun(run))
	require.NoError(t, db.SetRunState(run.ID, RunStateFailed, "trainer exited with code 1"))

	fetched, err := db.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, RunStateFailed, fetched.State)
	require.Equal(t, "trainer exited with code 1", fetched.Error)
}
