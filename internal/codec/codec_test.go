package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacedetect/internal/detection"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRoundTripKeepsDimensions(t *testing.T) {
	c := New(DefaultQuality)
	sizes := []image.Point{{100, 100}, {641, 37}, {1, 1}}

	for _, size := range sizes {
		src := solidImage(size.X, size.Y, color.RGBA{R: 30, G: 60, B: 200, A: 255})

		data, err := c.Encode(src)
		require.NoError(t, err)

		decoded, err := c.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, size.X, decoded.Bounds().Dx())
		assert.Equal(t, size.Y, decoded.Bounds().Dy())
	}
}

func TestEncodeStable(t *testing.T) {
	c := New(DefaultQuality)
	src := solidImage(64, 48, color.RGBA{R: 200, A: 255})

	a, err := c.Encode(src)
	require.NoError(t, err)
	b, err := c.Encode(src)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodePNG(t *testing.T) {
	c := New(DefaultQuality)

	img, err := c.Decode(pngBytes(t, solidImage(20, 10, color.White)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
}

func TestDecodeErrors(t *testing.T) {
	c := New(DefaultQuality)
	full := pngBytes(t, solidImage(50, 50, color.Black))

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated", data: full[:len(full)/3]},
		{name: "not an image", data: []byte("definitely not pixels")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, detection.ErrDecode)
		})
	}
}

func TestTransparentPixelsKeepTheirColour(t *testing.T) {
	c := New(DefaultQuality)
	src := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:i+4], []uint8{240, 240, 240, 0})
	}

	img, err := c.Decode(pngBytes(t, src))
	require.NoError(t, err)
	assert.True(t, img.(interface{ Opaque() bool }).Opaque())

	data, err := c.Encode(img)
	require.NoError(t, err)
	out, err := c.Decode(data)
	require.NoError(t, err)

	r, g, b, _ := out.At(95, 95).RGBA()
	assert.InDelta(t, 240, r>>8, 4)
	assert.InDelta(t, 240, g>>8, 4)
	assert.InDelta(t, 240, b>>8, 4)
}

func TestEncodeFlattensAlpha(t *testing.T) {
	c := New(DefaultQuality)
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:i+4], []uint8{10, 200, 30, 64})
	}

	data, err := c.Encode(src)
	require.NoError(t, err)
	out, err := c.Decode(data)
	require.NoError(t, err)

	r, g, b, _ := out.At(8, 8).RGBA()
	assert.InDelta(t, 10, r>>8, 6)
	assert.InDelta(t, 200, g>>8, 6)
	assert.InDelta(t, 30, b>>8, 6)
	// the source is left untouched
	assert.Equal(t, uint8(64), src.Pix[3])
}

// withOrientation inserts an APP1 EXIF segment carrying only the
// orientation tag right after the JPEG SOI marker.
func withOrientation(jpg []byte, orientation byte) []byte {
	app1 := []byte{
		0xff, 0xe1, 0x00, 0x22,
		'E', 'x', 'i', 'f', 0x00, 0x00,
		'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, orientation, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	out := append([]byte{}, jpg[:2]...)
	out = append(out, app1...)
	return append(out, jpg[2:]...)
}

func TestDecodeOrientation(t *testing.T) {
	plain, err := New(DefaultQuality).Encode(solidImage(40, 20, color.RGBA{G: 128, A: 255}))
	require.NoError(t, err)
	rotated := withOrientation(plain, 6)

	tests := []struct {
		name  string
		codec *Codec
		want  image.Point
	}{
		{name: "stored pixels by default", codec: New(DefaultQuality), want: image.Pt(40, 20)},
		{name: "auto orientation", codec: New(DefaultQuality, WithAutoOrientation(true)), want: image.Pt(20, 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := tt.codec.Decode(rotated)
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.Bounds().Size())
		})
	}
}

func TestNewClampsQuality(t *testing.T) {
	assert.Equal(t, DefaultQuality, New(0).Quality())
	assert.Equal(t, DefaultQuality, New(101).Quality())
	assert.Equal(t, 80, New(80).Quality())
}

func TestBase64(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	encoded := EncodeBase64(data)

	tests := []struct {
		name  string
		input string
	}{
		{name: "plain", input: encoded},
		{name: "data url", input: "data:image/png;base64," + encoded},
		{name: "surrounding whitespace", input: "\n" + encoded + " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64(tt.input)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}

	unpadded, err := DecodeBase64("aGk")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), unpadded)

	_, err = DecodeBase64("!!!not base64!!!")
	assert.ErrorIs(t, err, detection.ErrDecode)
}
