// Package codec decodes inbound image payloads and encodes annotated results
// as JPEG.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"spacedetect/internal/detection"
)

// DefaultQuality is the JPEG quality used for annotated results
const DefaultQuality = 95

// Codec converts between raw bytes and images
type Codec struct {
	quality    int
	autoOrient bool
}

// Option configures a Codec
type Option func(*Codec)

// WithAutoOrientation makes Decode apply the EXIF orientation tag
func WithAutoOrientation(enabled bool) Option {
	return func(c *Codec) {
		c.autoOrient = enabled
	}
}

// New creates a codec encoding JPEG at the given quality (1..100).
// Out-of-range values use DefaultQuality.
func New(quality int, opts ...Option) *Codec {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	c := &Codec{quality: quality}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quality returns the JPEG quality in use
func (c *Codec) Quality() int {
	return c.quality
}

// Decode parses an image of any registered format and drops its alpha
// channel. EXIF orientation is only applied when the codec was built
// WithAutoOrientation.
func (c *Codec) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", detection.ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(c.autoOrient))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", detection.ErrDecode, err)
	}
	return Flatten(img), nil
}

// Encode renders img as JPEG. Identical pixels always give identical bytes.
func (c *Codec) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Flatten(img), imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Flatten returns img with every pixel made fully opaque, keeping the
// stored colour of transparent pixels instead of blending them to black.
// Opaque images are returned unchanged.
func Flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// DecodeBase64 decodes a base64 payload. A data URL prefix such as
// "data:image/png;base64," is accepted and stripped.
func DecodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some clients strip padding
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: invalid base64 image: %w", detection.ErrDecode, err)
	}
	return data, nil
}

// EncodeBase64 returns the standard base64 form of data
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
