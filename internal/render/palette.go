package render

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is the class colour cycle. Class ids beyond its length wrap
// around, so distinct classes can share a colour.
func DefaultPalette() []color.NRGBA {
	return []color.NRGBA{
		{R: 255, G: 0, B: 0, A: 255},   // red
		{R: 0, G: 255, B: 0, A: 255},   // green
		{R: 0, G: 0, B: 255, A: 255},   // blue
		{R: 255, G: 255, B: 0, A: 255}, // yellow
		{R: 255, G: 0, B: 255, A: 255}, // magenta
		{R: 0, G: 255, B: 255, A: 255}, // cyan
		{R: 255, G: 165, B: 0, A: 255}, // orange
		{R: 128, G: 0, B: 128, A: 255}, // purple
	}
}

// ParsePalette parses "#rrggbb" entries into a palette
func ParsePalette(hexes []string) ([]color.NRGBA, error) {
	if len(hexes) == 0 {
		return nil, fmt.Errorf("empty palette")
	}
	palette := make([]color.NRGBA, 0, len(hexes))
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("invalid palette colour %q: %w", h, err)
		}
		r, g, b := c.RGB255()
		palette = append(palette, color.NRGBA{R: r, G: g, B: b, A: 255})
	}
	return palette, nil
}

// colorFor picks the class colour; negative ids wrap like positive ones
func colorFor(palette []color.NRGBA, classID int) color.NRGBA {
	i := classID % len(palette)
	if i < 0 {
		i += len(palette)
	}
	return palette[i]
}
