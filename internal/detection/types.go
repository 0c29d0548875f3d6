package detection

import (
	"context"
	"fmt"
	"image"
)

// Mode is the operating mode chosen once at startup
type Mode string

const (
	// ModeReal - detections come from a loaded model backend
	ModeReal Mode = "real"
	// ModeFallback - detections are synthesized, no backend is touched
	ModeFallback Mode = "fallback"
)

// BoundingBox is an axis-aligned box in source image pixels.
// x+width and y+height may lie outside the image.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one predicted object in canonical box form
type Detection struct {
	ClassID    int         `json:"class_id"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// RawDetection is a backend detection in two-corner form
type RawDetection struct {
	ClassID    int
	Confidence float64
	X1, Y1     float64
	X2, Y2     float64
}

// ModelInfo describes the model serving detections. It is built once at
// startup and shared read-only by all requests.
type ModelInfo struct {
	ModelName  string   `json:"model_name"`
	ModelPath  string   `json:"model_path"`
	InputShape []int    `json:"input_shape"`
	NumClasses int      `json:"num_classes"`
	Labels     []string `json:"labels"`
}

// Label resolves a class id against the model labels
func (m ModelInfo) Label(classID int) string {
	return LabelOf(m.Labels, classID)
}

// LabelOf resolves a class id to its display name. Ids outside the label
// list get a synthesized "Class N" name, so the lookup never fails.
func LabelOf(labels []string, classID int) string {
	if classID >= 0 && classID < len(labels) {
		return labels[classID]
	}
	return fmt.Sprintf("Class %d", classID)
}

// Backend is an opaque detection capability
type Backend interface {
	// Name returns the backend identifier (e.g., "onnx", "http", "grpc")
	Name() string

	// Detect runs the model over img and returns every detection it reports
	Detect(ctx context.Context, img image.Image) ([]RawDetection, error)

	// ConcurrencySafe reports whether Detect may be called from several
	// goroutines at once
	ConcurrencySafe() bool

	// Close releases backend resources
	Close() error
}

// DefaultInputShape is the NCHW input of the stock YOLOv8 export
func DefaultInputShape() []int {
	return []int{1, 3, 640, 640}
}
