package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ironsheep/eqregions/internal/imaging"
)

// Images reads pages from a single image file or from every supported image
// in a directory, sorted by file name. Subdirectories are ignored.
type Images struct {
	Path     string
	MaxPages int
}

// NewImages creates an image-file page source. A maxPages of 0 or less means
// no limit.
func NewImages(path string, maxPages int) *Images {
	return &Images{Path: path, MaxPages: maxPages}
}

// Files returns the image paths that Pages would decode, in page order.
func (s *Images) Files() ([]string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	if !info.IsDir() {
		return []string{s.Path}, nil
	}

	entries, err := os.ReadDir(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", s.Path, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imaging.IsSupported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(s.Path, e.Name()))
	}
	sort.Strings(files)

	if s.MaxPages > 0 && len(files) > s.MaxPages {
		files = files[:s.MaxPages]
	}
	return files, nil
}

// Pages decodes the images. Any unreadable file fails the whole call.
func (s *Images) Pages(ctx context.Context) ([]Page, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := imaging.Open(path)
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: i + 1, Image: img})
	}
	return pages, nil
}
