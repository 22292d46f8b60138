package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageSize represents different image sizes
type ImageSize struct {
	Name   string
	Width  int
	Height int
}

var (
	SizeThumbnail = ImageSize{Name: "thumbnail", Width: 320, Height: 320}
	SizePreview   = ImageSize{Name: "preview", Width: 1280, Height: 1280}
)

// maxPixels - защита от "бомб": картинки больше 50 Мп не декодируем
const maxPixels = 50_000_000

var ErrImageTooLarge = errors.New("image dimensions are too large to process")

// Processor handles image processing operations
type Processor struct {
	quality int // JPEG quality (1-100)
}

// NewProcessor creates a new image processor
func NewProcessor(quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{
		quality: quality,
	}
}

// Thumbnail - превью в JPEG, вписанное в SizeThumbnail
func (p *Processor) Thumbnail(reader io.Reader) (*bytes.Buffer, error) {
	return p.ProcessImage(reader, SizeThumbnail, "jpeg")
}

// ProcessImage decodes, downscales to fit size and encodes. format "" keeps
// the source format where it can be encoded (jpeg, png), otherwise JPEG.
func (p *Processor) ProcessImage(reader io.Reader, size ImageSize, format string) (*bytes.Buffer, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, ErrImageTooLarge
	}

	img, imgFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if format == "" {
		format = imgFormat
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, p.resize(img, size.Width, size.Height, nil)); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	default:
		// в JPEG нет прозрачности: подкладываем белый фон
		resized := p.resize(img, size.Width, size.Height, color.White)
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: p.quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
	}

	return &buf, nil
}

// resize fits the image into maxWidth x maxHeight keeping aspect ratio.
// Images that already fit are not upscaled.
func (p *Processor) resize(img image.Image, maxWidth, maxHeight int, background color.Color) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := fitInto(width, height, maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	if background != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	}

	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}

func fitInto(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 1, 1
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	newWidth, newHeight := maxWidth, maxHeight
	if float64(maxWidth)/float64(maxHeight) > ratio {
		newWidth = int(float64(maxHeight) * ratio)
	} else {
		newHeight = int(float64(maxWidth) / ratio)
	}

	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}
	return newWidth, newHeight
}

// GetImageDimensions reads only the image header
func GetImageDimensions(reader io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
