package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// DefaultFontSize is the label size in points for scalable fonts
const DefaultFontSize = 16

// fontSource yields a face per render. Parsed fonts are shared; faces are
// not safe for concurrent use, so each render gets its own.
type fontSource struct {
	font *opentype.Font
	size float64
}

// loadFont parses a TrueType or OpenType file
func loadFont(path string, size float64) (*fontSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	if size <= 0 {
		size = DefaultFontSize
	}
	// probe once so a broken font is rejected at startup
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("failed to create face for %s: %w", path, err)
	}
	face.Close()
	return &fontSource{font: f, size: size}, nil
}

// face returns a scalable face when a font is loaded and the built-in
// 7x13 bitmap face otherwise. It never fails.
func (s *fontSource) face() font.Face {
	if s == nil || s.font == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(s.font, &opentype.FaceOptions{Size: s.size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
