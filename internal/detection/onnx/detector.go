package onnx

import (
	"context"
	"image"
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"spacedetect/internal/detection"
)

const (
	defaultInputSize     = 640
	defaultConfThreshold = 0.25
	defaultIoUThreshold  = 0.45
)

// modelShape is the tensor layout of a YOLOv8 detection export:
// input [1, 3, size, size], output [1, 4+classes, boxes]
type modelShape struct {
	inputName  string
	outputName string
	inputSize  int
	numClasses int
	numBoxes   int
}

// Detector runs a single ONNX Runtime session. The session is bound to
// fixed input and output tensors, so Detect must not run concurrently.
type Detector struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	shape   modelShape
	conf    float32
	iou     float32
}

func newDetector(opts Options, shape modelShape) (*Detector, error) {
	size := int64(shape.inputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+shape.numClasses), int64(shape.numBoxes)))
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	threads := opts.IntraOpThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	options.SetIntraOpNumThreads(threads)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{shape.inputName},
		[]string{shape.outputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &Detector{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		shape:   shape,
		conf:    opts.ConfThreshold,
		iou:     opts.IoUThreshold,
	}, nil
}

func (d *Detector) Name() string {
	return "onnx"
}

// ConcurrencySafe is false: callers share the session tensors
func (d *Detector) ConcurrencySafe() bool {
	return false
}

// Detect runs the model on img. Boxes are scaled back to the source image
// size and are not clamped.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]detection.RawDetection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := fillInput(img, d.input.GetData(), d.shape.inputSize); err != nil {
		return nil, errors.Wrap(err, "failed to prepare input")
	}
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "failed to run inference")
	}

	b := img.Bounds()
	candidates := decodeOutput(d.output.GetData(), d.shape, d.conf, float32(b.Dx()), float32(b.Dy()))
	return toRaw(nms(candidates, d.iou)), nil
}

// Close destroys the session and its tensors
func (d *Detector) Close() error {
	var firstErr error
	if err := d.session.Destroy(); err != nil {
		firstErr = errors.Wrap(err, "error destroying session")
	}
	if err := d.input.Destroy(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "error destroying input tensor")
	}
	if err := d.output.Destroy(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "error destroying output tensor")
	}
	return firstErr
}

// Ensure Detector implements detection.Backend
var _ detection.Backend = (*Detector)(nil)
