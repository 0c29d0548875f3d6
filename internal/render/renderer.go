// Package render draws detection boxes and labels onto images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"spacedetect/internal/detection"
)

const (
	// StrokeWidth is the box outline width in pixels
	StrokeWidth = 3
	// labelGap separates the label from the box top edge
	labelGap = 5
	// label background padding around the text
	labelPadX  = 10
	labelPadY  = 5
	textInsetX = 5
	textInsetY = 2

	// pixel coordinates are limited to this magnitude before conversion
	maxCoord = 1 << 24
)

var textColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Options configures a Renderer
type Options struct {
	FontPath string
	FontSize float64
	Palette  []string
}

// Renderer annotates images. It holds no per-request state and is safe for
// concurrent use.
type Renderer struct {
	palette []color.NRGBA
	fonts   *fontSource
}

// Annotation is the resolved geometry and text of one detection
type Annotation struct {
	Box   image.Rectangle
	Label image.Rectangle
	Text  string
	Color color.NRGBA
}

// New creates a renderer. A font or palette that cannot be loaded is logged
// and replaced by the built-in default.
func New(opts Options, logger *log.Logger) *Renderer {
	r := &Renderer{palette: DefaultPalette()}

	if len(opts.Palette) > 0 {
		palette, err := ParsePalette(opts.Palette)
		if err != nil {
			logger.Printf("[Render] %v, using default palette", err)
		} else {
			r.palette = palette
		}
	}

	if opts.FontPath != "" {
		fonts, err := loadFont(opts.FontPath, opts.FontSize)
		if err != nil {
			logger.Printf("[Render] %v, using built-in font", err)
		} else {
			r.fonts = fonts
		}
	}
	return r
}

// Render draws every detection onto a copy of img, in order. The source
// image is never modified. Out-of-range class ids get a "Class N" label.
func (r *Renderer) Render(img image.Image, detections []detection.Detection, labels []string) *image.NRGBA {
	dst := imaging.Clone(img)

	face := r.fonts.face()
	defer face.Close()

	for _, d := range detections {
		a := r.layout(face, d, labels)
		r.drawBox(dst, a.Box, a.Color)
		draw.Draw(dst, a.Label, image.NewUniform(a.Color), image.Point{}, draw.Src)
		r.drawText(dst, face, a)
	}
	return dst
}

// Layout resolves where and how a detection would be drawn
func (r *Renderer) Layout(d detection.Detection, labels []string) Annotation {
	face := r.fonts.face()
	defer face.Close()
	return r.layout(face, d, labels)
}

func (r *Renderer) layout(face font.Face, d detection.Detection, labels []string) Annotation {
	x1, y1 := toPixel(d.BBox.X), toPixel(d.BBox.Y)
	x2, y2 := toPixel(d.BBox.X+d.BBox.Width), toPixel(d.BBox.Y+d.BBox.Height)

	text := fmt.Sprintf("%s (%.2f)", detection.LabelOf(labels, d.ClassID), d.Confidence)
	tw, th := measure(face, text)

	tx := x1
	ty := y1 - th - labelGap
	if ty < 0 {
		ty = y1 + labelGap
	}
	// boxes starting above the image would still push the label off canvas
	if ty < 0 {
		ty = 0
	}

	return Annotation{
		Box:   image.Rect(x1, y1, x2, y2),
		Label: image.Rect(tx, ty, tx+tw+labelPadX+1, ty+th+labelPadY+1),
		Text:  text,
		Color: colorFor(r.palette, d.ClassID),
	}
}

// drawBox strokes the rectangle inward from its edges; both corners are
// inclusive. Parts outside dst are clipped.
func (r *Renderer) drawBox(dst draw.Image, box image.Rectangle, c color.NRGBA) {
	src := image.NewUniform(c)
	x1, y1, x2, y2 := box.Min.X, box.Min.Y, box.Max.X, box.Max.Y
	outer := image.Rect(x1, y1, x2+1, y2+1)

	edges := []image.Rectangle{
		image.Rect(x1, y1, x2+1, y1+StrokeWidth),     // top
		image.Rect(x1, y2-StrokeWidth+1, x2+1, y2+1), // bottom
		image.Rect(x1, y1, x1+StrokeWidth, y2+1),     // left
		image.Rect(x2-StrokeWidth+1, y1, x2+1, y2+1), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(outer), src, image.Point{}, draw.Src)
	}
}

func (r *Renderer) drawText(dst draw.Image, face font.Face, a Annotation) {
	bounds, _ := font.BoundString(face, a.Text)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: face,
		// place the glyph tops at the inset, the drawer works from the baseline
		Dot: fixed.Point26_6{
			X: fixed.I(a.Label.Min.X + textInsetX),
			Y: fixed.I(a.Label.Min.Y+textInsetY) - bounds.Min.Y,
		},
	}
	d.DrawString(a.Text)
}

// measure returns the rendered width and height of text in pixels
func measure(face font.Face, text string) (int, int) {
	bounds, advance := font.BoundString(face, text)
	w := advance.Ceil()
	if bw := (bounds.Max.X - bounds.Min.X).Ceil(); bw > w {
		w = bw
	}
	return w, (bounds.Max.Y - bounds.Min.Y).Ceil()
}

func toPixel(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(-maxCoord, math.Min(maxCoord, v))))
}
