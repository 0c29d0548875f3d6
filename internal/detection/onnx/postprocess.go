package onnx

import (
	"image"
	"regexp"
	"sort"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"spacedetect/internal/detection"
)

// candidate is a decoded box in source image pixels
type candidate struct {
	classID int
	score   float32
	x1, y1  float32
	x2, y2  float32
}

// resolveShape validates the declared tensor dimensions of a YOLOv8 export.
// Dynamic dimensions (<= 0) use fallbackSize and the box count it implies.
func resolveShape(inputName string, inputDims []int64, outputName string, outputDims []int64, fallbackSize int) (modelShape, error) {
	if len(inputDims) != 4 {
		return modelShape{}, errors.Errorf("input %q has %d dimensions, expected 4", inputName, len(inputDims))
	}
	if len(outputDims) != 3 {
		return modelShape{}, errors.Errorf("output %q has %d dimensions, expected 3", outputName, len(outputDims))
	}

	size := fallbackSize
	if inputDims[2] > 0 {
		size = int(inputDims[2])
	}
	if outputDims[1] <= 4 {
		return modelShape{}, errors.Errorf("output %q has %d rows, expected 4 box rows plus class scores", outputName, outputDims[1])
	}

	boxes := int(outputDims[2])
	if boxes <= 0 {
		boxes = anchorCount(size)
	}

	return modelShape{
		inputName:  inputName,
		outputName: outputName,
		inputSize:  size,
		numClasses: int(outputDims[1]) - 4,
		numBoxes:   boxes,
	}, nil
}

// anchorCount is the number of predictions over the stride 8, 16 and 32 grids
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := size / stride
		n += g * g
	}
	return n
}

// fillInput resizes img to size x size and writes it to dst as planar RGB
// scaled to [0, 1]
func fillInput(img image.Image, dst []float32, size int) error {
	channel := size * size
	if len(dst) < channel*3 {
		return errors.Errorf("destination tensor holds %d floats, needs %d", len(dst), channel*3)
	}
	red := dst[0:channel]
	green := dst[channel : channel*2]
	blue := dst[channel*2 : channel*3]

	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	b := resized.Bounds()

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
			i++
		}
	}
	return nil
}

// decodeOutput reads the [4+classes, boxes] prediction matrix. Each column
// holds cx, cy, w, h in input pixels followed by per-class scores. Columns
// whose best score is below conf are dropped.
func decodeOutput(out []float32, shape modelShape, conf, imgW, imgH float32) []candidate {
	n := shape.numBoxes
	if len(out) < (4+shape.numClasses)*n {
		return nil
	}

	sx := imgW / float32(shape.inputSize)
	sy := imgH / float32(shape.inputSize)

	var candidates []candidate
	for i := 0; i < n; i++ {
		classID, best := 0, float32(-1)
		for c := 0; c < shape.numClasses; c++ {
			if s := out[(4+c)*n+i]; s > best {
				best = s
				classID = c
			}
		}
		if best < conf {
			continue
		}

		cx, cy := out[i], out[n+i]
		w, h := out[2*n+i], out[3*n+i]
		candidates = append(candidates, candidate{
			classID: classID,
			score:   best,
			x1:      (cx - w/2) * sx,
			y1:      (cy - h/2) * sy,
			x2:      (cx + w/2) * sx,
			y2:      (cy + h/2) * sy,
		})
	}
	return candidates
}

// nms keeps the highest scoring box of every overlapping group within a
// class. The result is ordered by descending score.
func nms(candidates []candidate, threshold float32) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	kept := make([]candidate, 0, len(candidates))
	suppressed := make([]bool, len(candidates))
	for i := range candidates {
		if suppressed[i] {
			continue
		}
		kept = append(kept, candidates[i])
		for j := i + 1; j < len(candidates); j++ {
			if suppressed[j] || candidates[j].classID != candidates[i].classID {
				continue
			}
			if iou(candidates[i], candidates[j]) > threshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func iou(a, b candidate) float32 {
	ix := math32.Max(0, math32.Min(a.x2, b.x2)-math32.Max(a.x1, b.x1))
	iy := math32.Max(0, math32.Min(a.y2, b.y2)-math32.Max(a.y1, b.y1))
	inter := ix * iy

	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func toRaw(candidates []candidate) []detection.RawDetection {
	raw := make([]detection.RawDetection, 0, len(candidates))
	for _, c := range candidates {
		raw = append(raw, detection.RawDetection{
			ClassID:    c.classID,
			Confidence: float64(c.score),
			X1:         float64(c.x1),
			Y1:         float64(c.y1),
			X2:         float64(c.x2),
			Y2:         float64(c.y2),
		})
	}
	return raw
}

// nameEntry matches one `0: 'label'` pair of the exporter's names map
var nameEntry = regexp.MustCompile(`(\d+)\s*:\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)

// parseNames decodes the class names map that YOLOv8 exports store in the
// model metadata, e.g. {0: 'fire extinguisher', 1: 'toolbox'}
func parseNames(s string) ([]string, error) {
	matches := nameEntry.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil, errors.New("no class names found")
	}

	names := make(map[int]string, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid class id %q", m[1])
		}
		name := m[2]
		if name == "" {
			name = m[3]
		}
		names[id] = name
	}

	labels := make([]string, len(names))
	for id, name := range names {
		if id < 0 || id >= len(labels) {
			return nil, errors.Errorf("class ids are not contiguous from 0 (found %d in %d names)", id, len(names))
		}
		labels[id] = name
	}
	return labels, nil
}
