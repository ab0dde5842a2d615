package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cyclopcam/finetune/pkg/classifier"
	"github.com/cyclopcam/finetune/pkg/dataset"
	"github.com/cyclopcam/finetune/server/runsdb"
	"github.com/cyclopcam/finetune/server/storage"
	"github.com/cyclopcam/finetune/server/trainer"
	"github.com/cyclopcam/finetune/server/trainset"
	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

type Server struct {
	HotReloadWWW bool
	Log          logs.Log

	cfg     *Config
	runs    *runsdb.RunsDB
	store   storage.Store
	packer  *trainset.Packer
	trainer *trainer.Trainer

	// The scanned dataset and its partition, built at startup and on rescan
	datasetLock sync.Mutex
	dataset     *dataset.Collection
	pkg         *trainset.Package

	// classifier is nil until a model is deployed
	classifierLock sync.Mutex
	classifier     *classifier.Classifier

	progress *progressHub

	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
	wsUpgrader websocket.Upgrader
}

func NewServer(configFile string, hotReloadWWW bool) (*Server, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logs.NewLog()
	if err != nil {
		return nil, err
	}
	runs, err := runsdb.NewRunsDB(logger, cfg.RunsDB)
	if err != nil {
		return nil, err
	}

	// Open blob store for trained models
	var store storage.Store
	if cfg.ArtifactStorage.GCS != nil {
		store, err = storage.NewStoreGCS(logger, cfg.ArtifactStorage.GCS.Bucket)
		if err != nil {
			return nil, err
		}
	} else if cfg.ArtifactStorage.Filesystem != nil {
		store, err = storage.NewStoreFS(logger, cfg.ArtifactStorage.Filesystem.Root)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("One of the storage options must be configured (i.e. either 'filesystem' or 'gcs')")
	}

	s := &Server{
		HotReloadWWW: hotReloadWWW,
		Log:          logger,
		cfg:          cfg,
		runs:         runs,
		store:        store,
		packer:       trainset.NewPacker(logger),
		progress:     newProgressHub(logger),
	}
	s.packer.RecompressMaxDim = cfg.RecompressMaxDim
	s.trainer = trainer.NewTrainer(logger, runs, store, s.packer, cfg.TrainerCommand, cfg.WorkDir, s.progress.onEpoch)

	if err := s.rescanDataset(); err != nil {
		return nil, err
	}
	if err := s.loadClassifier(); err != nil {
		// The server is still useful for dataset work and training, so a
		// broken model file is not fatal.
		logger.Errorf("Failed to load model: %v", err)
	}
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// rescanDataset walks the dataset directory and rebuilds the partition.
func (s *Server) rescanDataset() error {
	col, err := dataset.ScanDir(s.cfg.DatasetRoot)
	if err != nil {
		return err
	}
	pkg, err := s.packer.BuildPackage(col, s.cfg.DatasetOptions())
	if err != nil {
		return err
	}
	s.datasetLock.Lock()
	s.dataset = col
	s.pkg = pkg
	s.datasetLock.Unlock()
	s.Log.Infof("Dataset %v: %v classes, %v images (train %v, val %v, test %v)",
		col.Root, len(col.Classes), col.NumSamples(),
		len(pkg.Train.Samples), len(pkg.Val.Samples), len(pkg.Test.Samples))
	return nil
}

func (s *Server) currentPackage() (*dataset.Collection, *trainset.Package) {
	s.datasetLock.Lock()
	defer s.datasetLock.Unlock()
	return s.dataset, s.pkg
}

// loadClassifier loads the deployed model, if there is one.
func (s *Server) loadClassifier() error {
	if s.cfg.Model.Path == "" {
		s.Log.Infof("No model configured. /api/predict will be unavailable.")
		return nil
	}
	if _, err := os.Stat(s.cfg.Model.Path); os.IsNotExist(err) {
		s.Log.Infof("No model deployed yet at %v. /api/predict will be unavailable until one is.", s.cfg.Model.Path)
		return nil
	}
	cl, err := classifier.NewClassifier(s.Log, s.cfg.Model.Path, s.cfg.Model.Metadata)
	if err != nil {
		return err
	}
	s.classifierLock.Lock()
	old := s.classifier
	s.classifier = cl
	s.classifierLock.Unlock()
	if old != nil {
		old.Close()
	}
	s.Log.Infof("Loaded model %v (%v, %v classes)", s.cfg.Model.Path, cl.Metadata.Architecture, len(cl.Metadata.Classes))
	return nil
}

func (s *Server) getClassifier() *classifier.Classifier {
	s.classifierLock.Lock()
	defer s.classifierLock.Unlock()
	return s.classifier
}

// port example: ":8099"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.Log.Infof("ListenForKillSignals starting")
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig, ok := <-s.signalIn:
			if ok {
				s.Log.Infof("Received OS signal '%v'. ListenForKillSignals will exit after shutdown", sig.String())
				s.Shutdown()
			} else {
				// Shutdown() was called by somebody else, and it closed signalIn
				s.Log.Infof("signalIn closed. ListenForKillSignals will exit now")
			}
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	signal.Stop(s.signalIn)
	close(s.signalIn)
	s.trainer.CancelAll()
	s.progress.closeAll()
	s.Log.Infof("Closing HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	err := s.httpServer.Shutdown(ctx)
	defer cancel()
	if err != nil {
		s.Log.Warnf("Shutdown complete, with error: %v", err)
	} else {
		s.Log.Infof("Shutdown complete")
	}
	if cl := s.getClassifier(); cl != nil {
		cl.Close()
	}
	s.Log.Close()
}
