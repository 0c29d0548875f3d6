package ws

import (
	"time"

	"spacedetect/internal/detection"
)

// DetectionMessage is broadcast after every successful detection request
type DetectionMessage struct {
	Type        string            `json:"type"` // "detection"
	ArtifactID  string            `json:"artifact_id"`
	Filename    string            `json:"filename,omitempty"`
	Mode        detection.Mode    `json:"mode"`
	Timestamp   time.Time         `json:"timestamp"`
	ImageWidth  int               `json:"image_width"`
	ImageHeight int               `json:"image_height"`
	Objects     []ObjectDetection `json:"objects"`
}

// ObjectDetection is a single detected object
type ObjectDetection struct {
	ClassID    int       `json:"class_id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"` // 0.0-1.0
	BBox       []float64 `json:"bbox"`       // [x, y, w, h] in pixels
}

// NewDetectionMessage creates a new detection message
func NewDetectionMessage(artifactID string, mode detection.Mode, imageWidth, imageHeight int) *DetectionMessage {
	return &DetectionMessage{
		Type:        "detection",
		ArtifactID:  artifactID,
		Mode:        mode,
		Timestamp:   time.Now(),
		ImageWidth:  imageWidth,
		ImageHeight: imageHeight,
		Objects:     make([]ObjectDetection, 0),
	}
}

// AddObject adds a detection, resolving its label
func (m *DetectionMessage) AddObject(d detection.Detection, labels []string) {
	m.Objects = append(m.Objects, ObjectDetection{
		ClassID:    d.ClassID,
		Label:      detection.LabelOf(labels, d.ClassID),
		Confidence: d.Confidence,
		BBox:       []float64{d.BBox.X, d.BBox.Y, d.BBox.Width, d.BBox.Height},
	})
}
