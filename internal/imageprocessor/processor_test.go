package imageprocessor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnail_DownscalesKeepingAspect(t *testing.T) {
	p := NewProcessor(80)

	out, err := p.Thumbnail(bytes.NewReader(pngBytes(t, 1600, 800)))
	require.NoError(t, err)

	img, err := jpeg.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())
}

func TestThumbnail_DoesNotUpscale(t *testing.T) {
	out, err := NewProcessor(0).Thumbnail(bytes.NewReader(pngBytes(t, 40, 30)))
	require.NoError(t, err)

	w, h, err := GetImageDimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
}

func TestProcessImage_KeepsPNG(t *testing.T) {
	out, err := NewProcessor(85).ProcessImage(bytes.NewReader(pngBytes(t, 2000, 2000)), SizePreview, "")
	require.NoError(t, err)

	img, format, err := image.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 1280, img.Bounds().Dx())
}

func TestProcessImage_RejectsGarbage(t *testing.T) {
	_, err := NewProcessor(85).Thumbnail(strings.NewReader("definitely not an image"))
	assert.Error(t, err)
}

func TestFitInto(t *testing.T) {
	w, h := fitInto(3000, 10, 320, 320)
	assert.Equal(t, 320, w)
	assert.Equal(t, 1, h)
}
