package classifier

// Package classifier runs an exported ONNX image-classification model.
// Training produces the model; this package only does inference.

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"
	"github.com/cyclopcam/logs"
	ort "github.com/yalue/onnxruntime_go"
)

// Prediction is the result of classifying one image.
type Prediction struct {
	Class         string             `json:"class"`
	Confidence    float32            `json:"confidence"`
	Probabilities map[string]float32 `json:"probabilities"`
}

// Classifier wraps an ONNX Runtime session for an exported classifier model.
// The input/output tensors are reused between calls, so Predict is serialized
// with a mutex.
type Classifier struct {
	Metadata *Metadata

	log          logs.Log
	lock         sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewClassifier loads an ONNX model and its metadata JSON.
// You must call Close when finished, because the session owns C objects.
func NewClassifier(log logs.Log, modelPath, metadataPath string) (*Classifier, error) {
	meta, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("Failed to initialize ONNX runtime: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("Failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("Failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("Failed to load model %v: %w", modelPath, err)
	}

	log.Infof("Loaded model %v (%v, %v classes, input %vx%v)",
		modelPath, meta.Architecture, len(meta.Classes), meta.ImageSize, meta.ImageSize)

	return &Classifier{
		Metadata:     meta,
		log:          log,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Predict runs the model on a preprocessed input (see Preprocess) and
// returns per-class probabilities plus the top class.
func (c *Classifier) Predict(input []float32) (*Prediction, error) {
	if len(input) != c.Metadata.InputSize() {
		return nil, fmt.Errorf("Input has %v values, model expects %v", len(input), c.Metadata.InputSize())
	}
	c.lock.Lock()
	defer c.lock.Unlock()

	copy(c.inputTensor.GetData(), input)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("Inference failed: %w", err)
	}

	scores := make([]float32, len(c.Metadata.Classes))
	copy(scores, c.outputTensor.GetData())
	if c.Metadata.Logits {
		Softmax(scores)
	}
	return FormatPrediction(scores, c.Metadata.Classes)
}

// Close releases the ONNX session. Must be called exactly once.
func (c *Classifier) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	ort.DestroyEnvironment()
}

// Softmax normalizes logits in-place into probabilities.
// Shifts by the max first, so large logits don't overflow.
func Softmax(v []float32) {
	if len(v) == 0 {
		return
	}
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	sum := float32(0)
	for i := range v {
		v[i] = math32.Exp(v[i] - max)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

// FormatPrediction turns a per-class probability vector into a Prediction.
func FormatPrediction(scores []float32, classes []string) (*Prediction, error) {
	if len(scores) != len(classes) {
		return nil, fmt.Errorf("Model produced %v scores for %v classes", len(scores), len(classes))
	}
	best := 0
	probabilities := make(map[string]float32, len(classes))
	for i, class := range classes {
		probabilities[class] = scores[i]
		if scores[i] > scores[best] {
			best = i
		}
	}
	return &Prediction{
		Class:         classes[best],
		Confidence:    scores[best],
		Probabilities: probabilities,
	}, nil
}
