// Package onnx runs YOLOv8 detection models in-process with ONNX Runtime.
package onnx

import (
	"context"
	"log"
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"spacedetect/internal/detection"
)

// Options configures the ONNX backend
type Options struct {
	ModelName      string
	ModelPath      string
	RuntimeLibrary string
	Labels         []string
	InputSize      int
	ConfThreshold  float32
	IoUThreshold   float32
	IntraOpThreads int
}

// Loader brings up the ONNX backend for the capability probe
type Loader struct {
	opts   Options
	logger *log.Logger
}

// NewLoader creates a loader. Zero thresholds and sizes get YOLOv8 defaults.
func NewLoader(opts Options, logger *log.Logger) *Loader {
	if opts.InputSize <= 0 {
		opts.InputSize = defaultInputSize
	}
	if opts.ConfThreshold <= 0 {
		opts.ConfThreshold = defaultConfThreshold
	}
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = defaultIoUThreshold
	}
	return &Loader{opts: opts, logger: logger}
}

func (l *Loader) Name() string {
	return "onnx"
}

// Artifact reports the model file, which must exist before loading
func (l *Loader) Artifact() (string, bool) {
	return l.opts.ModelPath, true
}

// Load initialises ONNX Runtime and opens a session on the model
func (l *Loader) Load(ctx context.Context) (detection.Backend, detection.ModelInfo, error) {
	var info detection.ModelInfo

	if _, err := os.Stat(l.opts.RuntimeLibrary); err != nil {
		return nil, info, errors.Wrapf(err, "ONNX Runtime library not found at %s", l.opts.RuntimeLibrary)
	}

	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(l.opts.RuntimeLibrary)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, info, errors.Wrap(err, "error initializing ORT environment")
		}
	}

	shape, err := l.readShape()
	if err != nil {
		return nil, info, err
	}

	labels := l.readLabels(shape.numClasses)

	d, err := newDetector(l.opts, shape)
	if err != nil {
		return nil, info, err
	}

	info = detection.ModelInfo{
		ModelName:  l.opts.ModelName,
		ModelPath:  l.opts.ModelPath,
		InputShape: []int{1, 3, shape.inputSize, shape.inputSize},
		NumClasses: shape.numClasses,
		Labels:     labels,
	}
	l.logger.Printf("[ONNX] Session ready: input %dx%d, %d classes, %d candidate boxes",
		shape.inputSize, shape.inputSize, shape.numClasses, shape.numBoxes)
	return d, info, nil
}

// readShape derives the tensor layout from the model's declared inputs and
// outputs. Dynamic dimensions fall back to the configured input size.
func (l *Loader) readShape() (modelShape, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(l.opts.ModelPath)
	if err != nil {
		return modelShape{}, errors.Wrap(err, "error reading model inputs and outputs")
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return modelShape{}, errors.Errorf("expected one input and one output, model has %d and %d", len(inputs), len(outputs))
	}

	return resolveShape(
		inputs[0].Name, []int64(inputs[0].Dimensions),
		outputs[0].Name, []int64(outputs[0].Dimensions),
		l.opts.InputSize,
	)
}

// readLabels prefers the class names embedded by the exporter, then the
// configured labels
func (l *Loader) readLabels(numClasses int) []string {
	meta, err := ort.GetModelMetadata(l.opts.ModelPath)
	if err == nil {
		defer meta.Destroy()
		if names, ok, err := meta.LookupCustomMetadataMap("names"); err == nil && ok {
			if labels, err := parseNames(names); err == nil && len(labels) > 0 {
				return labels
			}
			l.logger.Printf("[ONNX] Ignoring unparseable names metadata")
		}
	}

	if len(l.opts.Labels) > 0 {
		if len(l.opts.Labels) != numClasses {
			l.logger.Printf("[ONNX] Configured %d labels for a %d-class model", len(l.opts.Labels), numClasses)
		}
		return l.opts.Labels
	}
	return []string{}
}

// Ensure Loader implements detection.Loader
var _ detection.Loader = (*Loader)(nil)
