package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/cyclopcam/finetune/pkg/classifier"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

const maxPredictImageBytes = 16 * 1024 * 1024

// httpPredict classifies an uploaded image. The image arrives either as the
// raw request body, or as a multipart form field named "image".
func (s *Server) httpPredict(w http.ResponseWriter, r *http.Request) {
	cl := s.getClassifier()
	if cl == nil {
		www.SendError(w, "No model deployed", http.StatusServiceUnavailable)
		return
	}

	encoded := readUploadedImage(w, r)

	input, err := classifier.Preprocess(encoded, cl.Metadata)
	www.CheckClient(err)
	pred, err := cl.Predict(input)
	www.Check(err)
	www.SendJSON(w, pred)
}

// httpModelMetadata returns the metadata of the deployed model.
func (s *Server) httpModelMetadata(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cl := s.getClassifier()
	if cl == nil {
		www.SendError(w, "No model deployed", http.StatusServiceUnavailable)
		return
	}
	www.SendJSON(w, cl.Metadata)
}

func readUploadedImage(w http.ResponseWriter, r *http.Request) []byte {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxPredictImageBytes)
		file, _, err := r.FormFile("image")
		www.CheckClient(err)
		defer file.Close()
		encoded, err := io.ReadAll(file)
		www.CheckClient(err)
		return encoded
	}
	return www.ReadLimited(w, r, maxPredictImageBytes)
}
