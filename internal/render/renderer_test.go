package render

import (
	"bytes"
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
	"golang.org/x/image/font/basicfont"

	"spacedetect/internal/detection"
)

var labels = []string{"fire extinguisher", "toolbox", "oxygen tank"}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	return New(Options{}, log.New(io.Discard, "", 0))
}

func grayImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

func det(classID int, conf, x, y, w, h float64) detection.Detection {
	return detection.Detection{
		ClassID:    classID,
		Confidence: conf,
		BBox:       detection.BoundingBox{X: x, Y: y, Width: w, Height: h},
	}
}

func TestLayoutFlipsLabelAtTopEdge(t *testing.T) {
	r := newTestRenderer(t)

	a := r.Layout(det(0, 0.85, 10, 0, 40, 40), labels)

	assert.GreaterOrEqual(t, a.Label.Min.Y, 0)
	assert.Equal(t, labelGap, a.Label.Min.Y)
}

func TestLayoutPlacesLabelAboveBox(t *testing.T) {
	r := newTestRenderer(t)
	_, th := measure(basicfont.Face7x13, "toolbox (0.92)")

	a := r.Layout(det(1, 0.92, 20, 100, 50, 50), labels)

	assert.Equal(t, "toolbox (0.92)", a.Text)
	assert.Equal(t, 100-th-labelGap, a.Label.Min.Y)
	assert.Equal(t, 20, a.Label.Min.X)
	assert.Equal(t, image.Rect(20, 100, 70, 150), a.Box)
}

func TestLayoutNeverNegative(t *testing.T) {
	r := newTestRenderer(t)
	tops := []float64{0, 1, 4, 17, -3, -250}

	for _, y := range tops {
		a := r.Layout(det(2, 0.5, 0, y, 10, 10), labels)
		assert.GreaterOrEqual(t, a.Label.Min.Y, 0, "box top %v", y)
	}
}

func TestLayoutOutOfRangeClass(t *testing.T) {
	r := newTestRenderer(t)

	a := r.Layout(det(42, 0.5, 5, 50, 10, 10), labels)

	assert.Equal(t, "Class 42 (0.50)", a.Text)
	assert.Equal(t, DefaultPalette()[42%8], a.Color)
}

func TestRenderDoesNotMutateSource(t *testing.T) {
	r := newTestRenderer(t)
	src := grayImage(100, 100)
	before := bytes.Clone(src.Pix)

	out := r.Render(src, detection.Normalize(detection.Synthesize(100, 100)), labels)

	assert.Equal(t, before, src.Pix)
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.NotEqual(t, before, out.Pix)
}

func TestRenderDrawsClassColour(t *testing.T) {
	r := newTestRenderer(t)
	src := grayImage(120, 120)

	out := r.Render(src, []detection.Detection{det(1, 0.9, 10, 60, 30, 30)}, labels)

	green := color.NRGBA{G: 255, A: 255}
	assert.Equal(t, green, out.NRGBAAt(40, 90), "bottom right corner")
	assert.Equal(t, green, out.NRGBAAt(10, 75), "left edge")
	assert.Equal(t, green, out.NRGBAAt(12, 75), "left edge inner stroke")
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 128}, out.NRGBAAt(25, 75), "interior untouched")
}

func TestRenderToleratesOutOfBoundsBoxes(t *testing.T) {
	r := newTestRenderer(t)
	src := grayImage(64, 48)
	dets := []detection.Detection{
		det(0, 0.4, -50, -50, 500, 500),
		det(3, 0.99, 60, 40, 1e9, 1e9),
		det(5, 0.1, 0, 0, 0, 0),
		det(99, 1, 63, 47, 1, 1),
	}

	var out *image.NRGBA
	require.NotPanics(t, func() { out = r.Render(src, dets, nil) })
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestRenderEmptyReturnsCopy(t *testing.T) {
	r := newTestRenderer(t)
	src := grayImage(8, 8)

	out := r.Render(src, nil, labels)

	assert.Equal(t, src.Pix, out.Pix)
	out.Pix[0] = 0
	assert.Equal(t, uint8(128), src.Pix[0])
}

func TestColorForWraps(t *testing.T) {
	palette := DefaultPalette()

	assert.Equal(t, palette[0], colorFor(palette, 8))
	assert.Equal(t, palette[1], colorFor(palette, 9))
	assert.Equal(t, palette[7], colorFor(palette, -1))
}

func TestParsePalette(t *testing.T) {
	palette, err := ParsePalette([]string{"#ff0000", "#00ff7f"})
	require.NoError(t, err)
	assert.Equal(t, []color.NRGBA{{R: 255, A: 255}, {G: 255, B: 127, A: 255}}, palette)

	_, err = ParsePalette([]string{"#ff0000", "chartreuse"})
	assert.Error(t, err)

	_, err = ParsePalette(nil)
	assert.Error(t, err)
}

func TestNewFallsBackOnBadOptions(t *testing.T) {
	var buf bytes.Buffer
	r := New(Options{
		FontPath: filepath.Join(t.TempDir(), "missing.ttf"),
		Palette:  []string{"not-a-colour"},
	}, log.New(&buf, "", 0))

	assert.Equal(t, DefaultPalette(), r.palette)
	assert.Nil(t, r.fonts)
	assert.Contains(t, buf.String(), "using built-in font")
	assert.Contains(t, buf.String(), "using default palette")

	// still renders with the bitmap face
	out := r.Render(grayImage(30, 30), []detection.Detection{det(0, 0.5, 2, 2, 10, 10)}, labels)
	assert.NotNil(t, out)
}

func TestPaletteSourceFormatted(t *testing.T) {
	src, err := os.ReadFile("palette.go")
	require.NoError(t, err)
	formatted, err := format.Source(src)
	require.NoError(t, err)
	assert.Equal(t, string(formatted), string(src))
}
