package detection

// FallbackModelName is reported while no real model is loaded
const FallbackModelName = "YOLOv8 Spacecraft Detector (Mock)"

// FallbackLabels is the fixed label set of the synthetic model
var FallbackLabels = []string{"fire extinguisher", "toolbox", "oxygen tank"}

// syntheticBox is a detection expressed as fractions of the image size
type syntheticBox struct {
	classID    int
	confidence float64
	x, y, w, h float64
}

var syntheticBoxes = []syntheticBox{
	{classID: 0, confidence: 0.85, x: 0.10, y: 0.20, w: 0.15, h: 0.20},
	{classID: 1, confidence: 0.92, x: 0.60, y: 0.30, w: 0.20, h: 0.15},
	{classID: 2, confidence: 0.78, x: 0.30, y: 0.60, w: 0.12, h: 0.25},
}

// FallbackModelInfo returns the synthetic model description
func FallbackModelInfo(modelPath string) ModelInfo {
	labels := make([]string, len(FallbackLabels))
	copy(labels, FallbackLabels)
	return ModelInfo{
		ModelName:  FallbackModelName,
		ModelPath:  modelPath,
		InputShape: DefaultInputShape(),
		NumClasses: len(labels),
		Labels:     labels,
	}
}

// Synthesize returns the deterministic fallback detections for an image of
// the given size. Boxes scale linearly with width and height.
func Synthesize(width, height int) []RawDetection {
	w, h := float64(width), float64(height)
	raw := make([]RawDetection, 0, len(syntheticBoxes))
	for _, b := range syntheticBoxes {
		x1 := b.x * w
		y1 := b.y * h
		raw = append(raw, RawDetection{
			ClassID:    b.classID,
			Confidence: b.confidence,
			X1:         x1,
			Y1:         y1,
			X2:         x1 + b.w*w,
			Y2:         y1 + b.h*h,
		})
	}
	return raw
}
