package onnx

import (
	"context"
	"go/format"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShape(t *testing.T) {
	tests := []struct {
		name      string
		input     []int64
		output    []int64
		want      modelShape
		wantError bool
	}{
		{
			name:   "static yolov8",
			input:  []int64{1, 3, 640, 640},
			output: []int64{1, 7, 8400},
			want:   modelShape{inputName: "images", outputName: "output0", inputSize: 640, numClasses: 3, numBoxes: 8400},
		},
		{
			name:   "dynamic dims",
			input:  []int64{-1, 3, -1, -1},
			output: []int64{-1, 84, -1},
			want:   modelShape{inputName: "images", outputName: "output0", inputSize: 320, numClasses: 80, numBoxes: 2100},
		},
		{name: "bad input rank", input: []int64{3, 640, 640}, output: []int64{1, 7, 8400}, wantError: true},
		{name: "bad output rank", input: []int64{1, 3, 640, 640}, output: []int64{7, 8400}, wantError: true},
		{name: "no classes", input: []int64{1, 3, 640, 640}, output: []int64{1, 4, 8400}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveShape("images", tt.input, "output0", tt.output, 320)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnchorCount(t *testing.T) {
	assert.Equal(t, 8400, anchorCount(640))
	assert.Equal(t, 2100, anchorCount(320))
}

// output builds a [4+classes, boxes] matrix from per-box columns
func output(numClasses int, columns [][]float32) []float32 {
	n := len(columns)
	out := make([]float32, (4+numClasses)*n)
	for i, col := range columns {
		for row, v := range col {
			out[row*n+i] = v
		}
	}
	return out
}

func TestDecodeOutput(t *testing.T) {
	shape := modelShape{inputSize: 640, numClasses: 2, numBoxes: 3}
	out := output(2, [][]float32{
		{320, 320, 64, 32, 0.1, 0.9}, // class 1
		{100, 100, 10, 10, 0.2, 0.1}, // below threshold
		{10, 20, 40, 80, 0.6, 0.3},   // class 0, spills past the top-left corner
	})

	got := decodeOutput(out, shape, 0.25, 1280, 320)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].classID)
	assert.InDelta(t, 0.9, got[0].score, 1e-6)
	// x scaled by 2, y by 0.5
	assert.InDelta(t, (320-32)*2.0, got[0].x1, 1e-3)
	assert.InDelta(t, (320+32)*2.0, got[0].x2, 1e-3)
	assert.InDelta(t, (320-16)*0.5, got[0].y1, 1e-3)
	assert.InDelta(t, (320+16)*0.5, got[0].y2, 1e-3)

	assert.Equal(t, 0, got[1].classID)
	// negative coordinates are kept
	assert.InDelta(t, (10-20)*2.0, got[1].x1, 1e-3)
	assert.InDelta(t, (20-40)*0.5, got[1].y1, 1e-3)
}

func TestDecodeOutputShortBuffer(t *testing.T) {
	shape := modelShape{inputSize: 640, numClasses: 2, numBoxes: 3}
	assert.Nil(t, decodeOutput(make([]float32, 5), shape, 0.25, 640, 640))
}

func TestNMS(t *testing.T) {
	candidates := []candidate{
		{classID: 0, score: 0.7, x1: 0, y1: 0, x2: 100, y2: 100},
		{classID: 0, score: 0.9, x1: 5, y1: 5, x2: 105, y2: 105},
		{classID: 1, score: 0.8, x1: 0, y1: 0, x2: 100, y2: 100},
		{classID: 0, score: 0.6, x1: 300, y1: 300, x2: 350, y2: 350},
	}

	kept := nms(candidates, 0.45)
	require.Len(t, kept, 3)

	assert.Equal(t, float32(0.9), kept[0].score)
	assert.Equal(t, 1, kept[1].classID, "other classes are not suppressed")
	assert.Equal(t, float32(0.6), kept[2].score)
}

func TestIoU(t *testing.T) {
	a := candidate{x1: 0, y1: 0, x2: 10, y2: 10}

	assert.InDelta(t, 1.0, iou(a, a), 1e-6)
	assert.InDelta(t, 0.0, iou(a, candidate{x1: 20, y1: 20, x2: 30, y2: 30}), 1e-6)
	assert.InDelta(t, 25.0/175.0, iou(a, candidate{x1: 5, y1: 5, x2: 15, y2: 15}), 1e-6)
	assert.Equal(t, float32(0), iou(candidate{}, candidate{}))
}

func TestToRaw(t *testing.T) {
	raw := toRaw([]candidate{{classID: 2, score: 0.5, x1: -1, y1: 2, x2: 3, y2: 4}})
	require.Len(t, raw, 1)

	assert.Equal(t, 2, raw[0].ClassID)
	assert.Equal(t, 0.5, raw[0].Confidence)
	assert.Equal(t, -1.0, raw[0].X1)
	assert.Equal(t, 4.0, raw[0].Y2)
}

func TestFillInput(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 50; x++ {
			src.Set(x, y, color.RGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	size := 8
	dst := make([]float32, 3*size*size)
	require.NoError(t, fillInput(src, dst, size))

	channel := size * size
	assert.InDelta(t, 1.0, dst[0], 1e-6)
	assert.InDelta(t, 0.0, dst[channel], 1e-6)
	assert.InDelta(t, 0.2, dst[2*channel+channel-1], 1e-6)

	assert.Error(t, fillInput(src, make([]float32, 10), size))
}

func TestParseNames(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      []string
		wantError bool
	}{
		{
			name:  "ultralytics dict",
			input: "{0: 'fire extinguisher', 1: 'toolbox', 2: 'oxygen tank'}",
			want:  []string{"fire extinguisher", "toolbox", "oxygen tank"},
		},
		{
			name:  "double quotes, unordered",
			input: `{1: "toolbox", 0: "fire extinguisher"}`,
			want:  []string{"fire extinguisher", "toolbox"},
		},
		{name: "gap in ids", input: "{0: 'a', 2: 'c'}", wantError: true},
		{name: "empty", input: "{}", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNames(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoaderMissingRuntime(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(Options{
		ModelPath:      filepath.Join(dir, "best.onnx"),
		RuntimeLibrary: filepath.Join(dir, "onnxruntime.so"),
	}, log.New(io.Discard, "", 0))

	path, local := loader.Artifact()
	assert.True(t, local)
	assert.Equal(t, filepath.Join(dir, "best.onnx"), path)

	_, _, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ONNX Runtime library not found")
}

func TestPostprocessTestSourceFormatted(t *testing.T) {
	src, err := os.ReadFile("postprocess_test.go")
	require.NoError(t, err)
	formatted, err := format.Source(src)
	require.NoError(t, err)
	assert.Equal(t, string(formatted), string(src))
}
