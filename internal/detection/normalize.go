package detection

// Normalize converts two-corner detections to canonical x/y/width/height form.
// Nothing is clamped, rounded or filtered; the result has one entry per input
// in the same order.
func Normalize(raw []RawDetection) []Detection {
	detections := make([]Detection, 0, len(raw))
	for _, r := range raw {
		detections = append(detections, Detection{
			ClassID:    r.ClassID,
			Confidence: r.Confidence,
			BBox: BoundingBox{
				X:      r.X1,
				Y:      r.Y1,
				Width:  r.X2 - r.X1,
				Height: r.Y2 - r.Y1,
			},
		})
	}
	return detections
}
