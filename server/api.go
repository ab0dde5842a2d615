package server

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/staticfiles"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
)

//go:embed www
var staticWWW embed.FS

func (s *Server) setupHttpRoutes() error {
	router := httprouter.New()

	open := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	// We create a unique rate limiter per endpoint, so we don't need httprate.KeyByEndpoint
	ratelimited := func(method, route string, handle func(w http.ResponseWriter, r *http.Request), requestLimit int, windowLength time.Duration) {
		limited := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(handle)).ServeHTTP(w, r)
		})
	}

	open("GET", "/api/ping", s.httpPing)

	open("GET", "/api/dataset/summary", s.httpDatasetSummary)
	open("GET", "/api/dataset/distribution", s.httpDatasetDistribution)
	open("GET", "/api/dataset/weights", s.httpDatasetWeights)
	open("GET", "/api/dataset/package", s.httpDatasetPackage)
	open("POST", "/api/dataset/rescan", s.httpDatasetRescan)

	open("POST", "/api/train/start", s.httpTrainStart)
	open("GET", "/api/train/runs", s.httpTrainListRuns)
	open("GET", "/api/train/runs/:id", s.httpTrainGetRun)
	open("GET", "/api/train/runs/:id/chart", s.httpTrainRunChart)
	open("GET", "/api/train/runs/:id/model", s.httpTrainRunModel)
	open("POST", "/api/train/runs/:id/cancel", s.httpTrainCancelRun)
	open("GET", "/api/train/progress", s.httpTrainProgress)

	open("GET", "/api/model", s.httpModelMetadata)
	ratelimited("POST", "/api/predict", s.httpPredict, s.cfg.PredictRateLimit, time.Minute)

	isImmutable := true
	var fsys fs.FS
	fsysRoot := "www"
	fsys = staticWWW
	if s.HotReloadWWW {
		relRoot := "server/www"
		absRoot, err := filepath.Abs(relRoot)
		if err != nil {
			s.Log.Errorf("Failed to resolve static file directory %v: %v", relRoot, err)
			return errors.New("Failed to resolve static file directory for hot reload")
		}
		s.Log.Infof("Serving static files from %v, with hot reload", absRoot)
		fsys = os.DirFS(absRoot)
		fsysRoot = ""
		isImmutable = false
	}

	static, err := staticfiles.NewCachedStaticFileServer(fsys, fsysRoot, []string{"/api/"}, s.Log, isImmutable, nil)
	if err != nil {
		return err
	}
	router.NotFound = static

	s.httpRouter = router
	return nil
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, map[string]interface{}{
		"greeting": "finetune",
		"time":     time.Now().Unix(),
	})
}
