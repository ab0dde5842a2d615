package trainer

// Package trainer launches the external training process over a dataset
// package and tracks its progress. The trainer binary owns the neural
// network, the optimizer, and model serialization; we own the dataset
// package, the run record, and progress reporting.

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/finetune/pkg/dataset"
	"github.com/cyclopcam/finetune/server/runsdb"
	"github.com/cyclopcam/finetune/server/storage"
	"github.com/cyclopcam/finetune/server/trainset"
	"github.com/cyclopcam/logs"
)

// ProgressFunc receives per-epoch metrics while a run is training.
type ProgressFunc func(runID int64, m runsdb.EpochMetrics)

// maxOutputLine bounds one line of trainer stdout. Frameworks that redraw a
// progress bar with \r can emit very long "lines".
const maxOutputLine = 1024 * 1024

type Trainer struct {
	Log logs.Log

	runs       *runsdb.RunsDB
	packer     *trainset.Packer
	store      storage.Store // Finished models end up here
	command    []string      // eg ["python3", "train.py"]. Dataset and output paths are appended.
	workDir    string        // Scratch space for dataset packages and the in-flight model
	onProgress ProgressFunc

	lock   sync.Mutex
	active map[int64]context.CancelFunc
}

// NewTrainer shares the caller's packer, so dataset packages fed to training
// carry the same settings (eg recompression) as packages served elsewhere.
func NewTrainer(log logs.Log, runs *runsdb.RunsDB, store storage.Store, packer *trainset.Packer, command []string, workDir string, onProgress ProgressFunc) *Trainer {
	return &Trainer{
		Log:        log,
		runs:       runs,
		packer:     packer,
		store:      store,
		command:    command,
		workDir:    workDir,
		onProgress: onProgress,
		active:     map[int64]context.CancelFunc{},
	}
}

// Start creates a run record and launches training in the background.
func (t *Trainer) Start(col *dataset.Collection, opts dataset.Options) (*runsdb.TrainingRun, error) {
	if len(t.command) == 0 {
		return nil, fmt.Errorf("No trainer command configured")
	}
	pkg, err := t.packer.BuildPackage(col, opts)
	if err != nil {
		return nil, err
	}

	run := newRunRecord(col, pkg, opts)
	if err := t.runs.CreateRun(run); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.lock.Lock()
	t.active[run.ID] = cancel
	t.lock.Unlock()

	go t.runTraining(ctx, run.ID, pkg)
	return run, nil
}

// Cancel stops a running training process. Cancelling a finished or unknown
// run is a no-op.
func (t *Trainer) Cancel(runID int64) {
	t.lock.Lock()
	cancel := t.active[runID]
	t.lock.Unlock()
	if cancel != nil {
		cancel()
	}
}

// CancelAll stops every active training process. Used at shutdown.
func (t *Trainer) CancelAll() {
	t.lock.Lock()
	cancels := make([]context.CancelFunc, 0, len(t.active))
	for _, cancel := range t.active {
		cancels = append(cancels, cancel)
	}
	t.lock.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (t *Trainer) runTraining(ctx context.Context, runID int64, pkg *trainset.Package) {
	defer func() {
		t.lock.Lock()
		delete(t.active, runID)
		t.lock.Unlock()
	}()

	if err := t.runs.SetRunState(runID, runsdb.RunStateRunning, ""); err != nil {
		t.Log.Errorf("Failed to mark run %v as running: %v", runID, err)
		return
	}

	err := t.execute(ctx, runID, pkg)
	switch {
	case ctx.Err() != nil:
		t.Log.Infof("Training run %v cancelled", runID)
		t.runs.SetRunState(runID, runsdb.RunStateCancelled, "")
	case err != nil:
		t.Log.Errorf("Training run %v failed: %v", runID, err)
		t.runs.SetRunState(runID, runsdb.RunStateFailed, err.Error())
	default:
		t.Log.Infof("Training run %v completed", runID)
		t.runs.SetRunState(runID, runsdb.RunStateCompleted, "")
	}
}

func (t *Trainer) execute(ctx context.Context, runID int64, pkg *trainset.Package) error {
	datasetPath := filepath.Join(t.workDir, fmt.Sprintf("run-%v-dataset.zip", runID))
	artifactPath := filepath.Join(t.workDir, fmt.Sprintf("run-%v-model.onnx", runID))
	defer os.Remove(datasetPath)
	defer os.Remove(artifactPath)

	if err := t.writePackageFile(datasetPath, pkg); err != nil {
		return err
	}

	args := append(append([]string{}, t.command[1:]...), "--dataset", datasetPath, "--output", artifactPath)
	cmd := exec.CommandContext(ctx, t.command[0], args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr := bytes.Buffer{}
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("Failed to launch trainer: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
	for scanner.Scan() {
		line := scanner.Text()
		if m, ok := ParseProgressLine(line); ok {
			if err := t.runs.AppendEpoch(runID, m); err != nil {
				t.Log.Warnf("Failed to record epoch %v of run %v: %v", m.Epoch, runID, err)
			}
			if t.onProgress != nil {
				t.onProgress(runID, m)
			}
		} else {
			t.Log.Infof("trainer[%v]: %v", runID, line)
		}
	}
	if err := scanner.Err(); err != nil {
		// Keep draining stdout, otherwise the child blocks on a full pipe
		// and Wait never returns. Progress after this point is lost.
		t.Log.Warnf("Failed to read trainer output of run %v: %v", runID, err)
		io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		return trainerError(err, stderr.Bytes())
	}
	if _, err := os.Stat(artifactPath); err != nil {
		return fmt.Errorf("Trainer exited cleanly but produced no model at %v", artifactPath)
	}
	objectName := ArtifactName(runID)
	if err := t.publishArtifact(objectName, artifactPath); err != nil {
		return fmt.Errorf("Failed to store model of run %v: %w", runID, err)
	}
	return t.runs.SetRunArtifact(runID, objectName)
}

// ArtifactName is the blob store object name of a run's trained model.
func ArtifactName(runID int64) string {
	return fmt.Sprintf("models/run-%v.onnx", runID)
}

func (t *Trainer) publishArtifact(objectName, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()
	return storage.PutFile(t.store, objectName, file)
}

func (t *Trainer) writePackageFile(filename string, pkg *trainset.Package) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	err = t.packer.WriteArchive(file, pkg)
	errClose := file.Close()
	if err != nil {
		return err
	}
	return errClose
}

func newRunRecord(col *dataset.Collection, pkg *trainset.Package, opts dataset.Options) *runsdb.TrainingRun {
	return &runsdb.TrainingRun{
		DatasetRoot:  col.Root,
		Seed:         opts.Seed,
		ValFraction:  opts.ValFraction,
		BatchSize:    opts.BatchSize,
		Classes:      dbh.MakeJSONField(pkg.Classes),
		Distribution: dbh.MakeJSONField(pkg.Distribution["train"]),
		ClassWeights: dbh.MakeJSONField(pkg.ClassWeights),
	}
}
