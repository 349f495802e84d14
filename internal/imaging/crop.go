package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
)

// EncodedImage is a PNG image ready to be embedded in a JSON response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Snapshot copies img into a new NRGBA image with the same bounds.
//
// Every pixel is read on the calling goroutine. A source image that panics on
// access is reported as an error here, before it reaches the parallel workers
// of the imaging libraries where a panic cannot be recovered.
func Snapshot(img image.Image) (out *image.NRGBA, err error) {
	if img == nil {
		return nil, errors.New("nil image")
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("failed to read image pixels: %v", r)
		}
	}()

	b := img.Bounds()
	out = image.NewNRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out, nil
}

// CropRegion extracts the rectangle r from img, optionally resizing it by
// scale. The rectangle is in the image's own coordinate space and must lie
// fully inside its bounds.
//
// A scale of 1 (or any value <= 0) returns the crop at its native size.
// Scaling uses Lanczos resampling, which keeps thin strokes such as fraction
// bars and subscripts legible for recognizers.
func CropRegion(img image.Image, r image.Rectangle, scale float64) (image.Image, error) {
	bounds := img.Bounds()

	if r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	cropped := imaging.Crop(img, r)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 {
			newWidth = 1
		}
		if newHeight < 1 {
			newHeight = 1
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return cropped, nil
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 encodes img as a base64 PNG with its dimensions.
func EncodeBase64(img image.Image) (*EncodedImage, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}
