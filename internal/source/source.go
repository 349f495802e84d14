// Package source produces page images from documents and image files.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/eqregions/internal/imaging"
)

// ErrUnsupported is returned by Open for paths that are neither a PDF, a
// supported image, nor a directory.
var ErrUnsupported = errors.New("unsupported input")

// Page is one rasterized page. Number is 1-based.
type Page struct {
	Number int
	Image  image.Image
}

// Source yields the pages of one document in order. Pages may be called
// again to re-read the document.
type Source interface {
	Pages(ctx context.Context) ([]Page, error)
}

// Options bounds how many pages are produced and how PDFs are rendered.
// Logger receives recoverable problems; nil discards them.
type Options struct {
	MaxPages    int                `json:"max_pages"`
	DPI         int                `json:"dpi"`
	PopplerPath string             `json:"poppler_path,omitempty"`
	Logger      logrus.FieldLogger `json:"-"`
}

// DefaultOptions returns the default page limit and rendering resolution.
func DefaultOptions() Options {
	return Options{MaxPages: 5, DPI: 200}
}

// Open picks a Source for path: a PDF for ".pdf" files, Images for a
// directory or a single supported image file.
func Open(path string, opts Options) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	switch {
	case info.IsDir():
		return NewImages(path, opts.MaxPages), nil
	case strings.EqualFold(filepath.Ext(path), ".pdf"):
		return NewPDF(path, opts), nil
	case imaging.IsSupported(path):
		return NewImages(path, opts.MaxPages), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}
