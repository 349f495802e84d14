package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	eqimaging "github.com/ironsheep/eqregions/internal/imaging"
)

// Tesseract recognizes text with the Tesseract OCR engine.
//
// Each call creates its own gosseract client, so a single Tesseract value can
// be shared between goroutines.
//
// # Prerequisites
//
// The Tesseract library and the language data for Language must be
// installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
type Tesseract struct {
	// Language is a Tesseract language code such as "eng" or "eng+equ".
	Language string

	// PageSegMode is Tesseract's page segmentation mode. Mode 6 treats the
	// image as a single uniform block of text, which suits cropped regions.
	PageSegMode int
}

// NewTesseract creates a Tesseract recognizer. An empty language defaults to
// "eng".
func NewTesseract(language string, psm int) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Language: language, PageSegMode: psm}
}

// Recognize runs OCR on img and returns the trimmed text.
//
// The image is passed to Tesseract as in-memory PNG bytes; no temporary files
// are written.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := eqimaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(t.PageSegMode)); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// Info reports the linked Tesseract version.
func (t *Tesseract) Info(context.Context) Info {
	return Info{
		Backend:   BackendTesseract,
		Available: true,
		Version:   gosseract.Version(),
		Detail:    fmt.Sprintf("language=%s psm=%d", t.Language, t.PageSegMode),
	}
}
