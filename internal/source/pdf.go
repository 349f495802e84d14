package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/eqregions/internal/imaging"
	"github.com/ironsheep/eqregions/internal/logging"
)

// ErrRasterizerNotFound is returned when the pdftoppm binary is missing.
var ErrRasterizerNotFound = errors.New("pdftoppm not found (install poppler-utils)")

// pageFile matches pdftoppm output names such as page-1.png or page-007.png.
var pageFile = regexp.MustCompile(`^page-(\d+)\.png$`)

// PDF rasterizes the leading pages of a PDF document with poppler's
// pdftoppm.
type PDF struct {
	Path string
	opts Options
}

// NewPDF creates a PDF page source.
func NewPDF(path string, opts Options) *PDF {
	return &PDF{Path: path, opts: opts}
}

// CountPages opens the document and returns its page count.
func CountPages(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
			err = fmt.Errorf("failed to read PDF %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	return reader.NumPage(), nil
}

// Rasterizer returns the pdftoppm executable that will be used.
func (s *PDF) Rasterizer() (string, error) {
	name := "pdftoppm"
	if s.opts.PopplerPath != "" {
		name = filepath.Join(s.opts.PopplerPath, "pdftoppm")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRasterizerNotFound, err)
	}
	return path, nil
}

// Pages renders up to MaxPages pages at DPI into a temporary directory and
// decodes them in page order.
//
// The page count only narrows the requested range. A document the PDF parser
// rejects is still handed to pdftoppm, which repairs many damaged files and
// clamps the range itself; only a pdftoppm failure is fatal.
func (s *PDF) Pages(ctx context.Context) ([]Page, error) {
	last := s.opts.MaxPages

	total, err := CountPages(s.Path)
	switch {
	case err != nil:
		s.logger().WithError(err).WithField("path", s.Path).
			Warn("Could not count PDF pages, rendering anyway")
	case total == 0:
		return []Page{}, nil
	case last <= 0 || total < last:
		last = total
	}

	bin, err := s.Rasterizer()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "eqregions-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dpi := s.opts.DPI
	if dpi <= 0 {
		dpi = DefaultOptions().DPI
	}

	args := []string{"-r", strconv.Itoa(dpi), "-f", "1"}
	if last > 0 {
		args = append(args, "-l", strconv.Itoa(last))
	}
	args = append(args, "-png", s.Path, filepath.Join(dir, "page"))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return readRendered(dir)
}

func (s *PDF) logger() logrus.FieldLogger {
	if s.opts.Logger != nil {
		return s.opts.Logger
	}
	return logging.Discard()
}

// readRendered decodes pdftoppm's output files ordered by page number.
func readRendered(dir string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered pages: %w", err)
	}

	pages := make([]Page, 0, len(entries))
	for _, e := range entries {
		m := pageFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		number, _ := strconv.Atoi(m[1])

		img, err := imaging.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: number, Image: img})
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Number < pages[j].Number
	})
	return pages, nil
}
