package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/eqregions/internal/imaging"
)

// ErrEmptyImage is returned when a page has no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// DefaultMaxRegions caps how many regions a page may contribute.
const DefaultMaxRegions = 20

// Options configures every stage of region detection for one page.
type Options struct {
	Mask         imaging.MaskOptions `json:"mask"`
	Extract      ExtractOptions      `json:"extract"`
	IoUThreshold float64             `json:"iou_threshold"`
	MaxRegions   int                 `json:"max_regions"`
}

// DefaultOptions returns the default detection settings.
func DefaultOptions() Options {
	return Options{
		Mask:         imaging.DefaultMaskOptions(),
		Extract:      DefaultExtractOptions(),
		IoUThreshold: DefaultIoUThreshold,
		MaxRegions:   DefaultMaxRegions,
	}
}

// Analysis holds the intermediate and final products of detecting one page.
// Box coordinates are relative to the page's top-left corner.
type Analysis struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Mask       *image.Gray `json:"-"`
	Candidates []Box       `json:"candidates"`
	Regions    []Box       `json:"regions"`
}

// Detector finds equation regions on page images. It holds no mutable state
// and is safe for concurrent use.
type Detector struct {
	opts Options
}

// NewDetector creates a detector with the given options.
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts}
}

// Options returns the detector's configuration.
func (d *Detector) Options() Options {
	return d.opts
}

// Analyze runs mask building, box extraction, overlap suppression and
// sequencing on img.
//
// The page is copied before any processing, so an image that panics on pixel
// access is returned as an error instead of crashing the process.
func (d *Detector) Analyze(img image.Image) (result *Analysis, err error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("region detection panicked: %v", r)
		}
	}()

	page, err := imaging.Snapshot(img)
	if err != nil {
		return nil, fmt.Errorf("region detection failed: %w", err)
	}

	mask := imaging.BuildMask(page, d.opts.Mask)
	candidates := ExtractBoxes(mask, d.opts.Extract)
	accepted := SuppressOverlaps(candidates, d.opts.IoUThreshold)

	return &Analysis{
		Width:      mask.Bounds().Dx(),
		Height:     mask.Bounds().Dy(),
		Mask:       mask,
		Candidates: candidates,
		Regions:    Sequence(accepted, d.opts.MaxRegions),
	}, nil
}

// Detect returns the final, reading-ordered regions for img.
func (d *Detector) Detect(img image.Image) ([]Box, error) {
	a, err := d.Analyze(img)
	if err != nil {
		return nil, err
	}
	return a.Regions, nil
}

// Candidates returns the padded boxes found before overlap suppression.
func (d *Detector) Candidates(img image.Image) ([]Box, error) {
	a, err := d.Analyze(img)
	if err != nil {
		return nil, err
	}
	return a.Candidates, nil
}
