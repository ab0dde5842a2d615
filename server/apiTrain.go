package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/cyclopcam/finetune/pkg/chart"
	"github.com/cyclopcam/finetune/server/runsdb"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"gorm.io/gorm"
)

// httpTrainStart partitions the current dataset and launches a training run.
// The run record is returned immediately; training continues in the background.
func (s *Server) httpTrainStart(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	col, _ := s.currentPackage()
	run, err := s.trainer.Start(col, s.cfg.DatasetOptions())
	www.Check(err)
	www.SendJSON(w, run)
}

func (s *Server) httpTrainListRuns(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	runs, err := s.runs.ListRuns()
	www.Check(err)
	www.SendJSON(w, runs)
}

func (s *Server) getRunOrPanic(params httprouter.Params) *runsdb.TrainingRun {
	id := www.ParseID(params.ByName("id"))
	run, err := s.runs.GetRun(id)
	if err == gorm.ErrRecordNotFound {
		www.PanicNotFound()
	}
	www.Check(err)
	return run
}

func (s *Server) httpTrainGetRun(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.getRunOrPanic(params))
}

// httpTrainRunChart renders the loss curves of a run as a PNG.
func (s *Server) httpTrainRunChart(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	run := s.getRunOrPanic(params)
	if run.History == nil || len(run.History.Data) == 0 {
		www.PanicBadRequestf("Run %v has no recorded epochs yet", run.ID)
	}
	history := make([]chart.EpochMetrics, len(run.History.Data))
	for i, m := range run.History.Data {
		history[i] = chart.EpochMetrics{
			Epoch:       m.Epoch,
			Loss:        m.Loss,
			Accuracy:    m.Accuracy,
			ValLoss:     m.ValLoss,
			ValAccuracy: m.ValAccuracy,
		}
	}
	png, err := chart.TrainingCurves(fmt.Sprintf("Run %v", run.ID), history)
	www.Check(err)
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// httpTrainRunModel downloads the trained model of a completed run.
func (s *Server) httpTrainRunModel(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	run := s.getRunOrPanic(params)
	if run.ArtifactPath == "" {
		www.PanicBadRequestf("Run %v has no trained model", run.ID)
	}
	obj, err := s.store.Open(run.ArtifactPath)
	www.Check(err)
	defer obj.Reader.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"run-%v.onnx\"", run.ID))
	if _, err := io.Copy(w, obj.Reader); err != nil {
		s.Log.Errorf("Failed to stream model of run %v: %v", run.ID, err)
	}
}

func (s *Server) httpTrainCancelRun(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	run := s.getRunOrPanic(params)
	s.trainer.Cancel(run.ID)
	www.SendOK(w)
}

// httpTrainProgress upgrades to a websocket and streams per-epoch metrics of
// all active runs, as JSON text messages.
func (s *Server) httpTrainProgress(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	c, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("httpTrainProgress websocket upgrade failed: %v", err)
		return
	}
	s.progress.add(c)
	defer func() {
		s.progress.remove(c)
		c.Close()
	}()

	// We never expect messages from the client. The read loop exists to
	// notice when the client goes away.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
