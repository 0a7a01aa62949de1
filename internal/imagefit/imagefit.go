package imagefit

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// Resolution is a target display size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Flipped swaps width and height, for vertically mounted displays.
func (r Resolution) Flipped() Resolution { return Resolution{Width: r.Height, Height: r.Width} }

func (r Resolution) String() string { return fmt.Sprintf("%dx%d", r.Width, r.Height) }

// FitCover scales and center-crops the image so it exactly covers the
// target resolution, preserving aspect ratio.
func FitCover(img image.Image, res Resolution) image.Image {
	return imaging.Fill(img, res.Width, res.Height, imaging.Center, imaging.Lanczos)
}

// PadColor fits the image inside the target resolution and fills the
// remaining area with a solid color.
func PadColor(img image.Image, res Resolution, bg color.Color) image.Image {
	canvas := imaging.New(res.Width, res.Height, bg)
	fitted := imaging.Fit(img, res.Width, res.Height, imaging.Lanczos)
	return imaging.PasteCenter(canvas, fitted)
}

// PadBlur fits the image inside the target resolution over a blurred,
// cover-scaled copy of itself.
func PadBlur(img image.Image, res Resolution) image.Image {
	bg := imaging.Fill(img, res.Width, res.Height, imaging.Center, imaging.Lanczos)
	bg = imaging.Blur(bg, 12)
	fitted := imaging.Fit(img, res.Width, res.Height, imaging.Lanczos)
	return imaging.PasteCenter(bg, fitted)
}

// Decode reads any registered image format from r.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DecodeBytes decodes an in-memory encoded image.
func DecodeBytes(data []byte) (image.Image, error) {
	return Decode(bytes.NewReader(data))
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
