// Package pipeline runs region detection and recognition over a sequence of
// pages and collects the recognized equations in reading order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/eqregions/internal/detection"
	"github.com/ironsheep/eqregions/internal/imaging"
	"github.com/ironsheep/eqregions/internal/logging"
	"github.com/ironsheep/eqregions/internal/ocr"
	"github.com/ironsheep/eqregions/internal/source"
)

// Detector finds regions on one page. *detection.Detector implements it.
type Detector interface {
	Analyze(img image.Image) (*detection.Analysis, error)
}

// Pipeline turns pages into equations. It is safe to call Run from several
// goroutines if the recognizer is.
type Pipeline struct {
	detector   Detector
	recognizer ocr.Recognizer
	workers    int
	cropScale  float64
	debugDir   string
	log        logrus.FieldLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers recognizes up to n regions of a page concurrently. Pages are
// still processed one after another. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.workers = n
	}
}

// WithCropScale resizes each region crop by scale before recognition.
func WithCropScale(scale float64) Option {
	return func(p *Pipeline) {
		if scale > 0 {
			p.cropScale = scale
		}
	}
}

// WithDebugDir writes each page's mask and a region overlay into dir.
func WithDebugDir(dir string) Option {
	return func(p *Pipeline) { p.debugDir = dir }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a pipeline that finds regions with detector and reads them with
// recognizer.
func New(detector Detector, recognizer ocr.Recognizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector:   detector,
		recognizer: recognizer,
		workers:    1,
		cropScale:  1.0,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes pages in order and returns every non-empty recognition, page
// by page and region by region.
//
// A page with no regions is recognized as a whole. A detection or
// recognition failure is logged and ends that page's contribution; earlier
// regions of the page are kept and the next page proceeds. Only context
// cancellation and an unusable debug directory abort the run.
func (p *Pipeline) Run(ctx context.Context, pages []source.Page) (*Result, error) {
	log := logging.WithRun(p.log)

	if err := p.prepareDebugDir(); err != nil {
		return nil, err
	}

	result := &Result{
		Equations: []string{},
		Pages:     make([]PageReport, 0, len(pages)),
	}

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report, err := p.processPage(ctx, page, log.WithField("page", page.Number))
		if err != nil {
			return nil, err
		}

		result.Pages = append(result.Pages, report)
		result.Equations = append(result.Equations, report.Equations...)
	}

	log.WithFields(logrus.Fields{
		"pages":     len(pages),
		"equations": len(result.Equations),
	}).Info("Run complete")

	return result, nil
}

// Detect finds regions on every page without recognizing them. Debug images
// are written as in Run.
func (p *Pipeline) Detect(ctx context.Context, pages []source.Page) ([]PageReport, error) {
	log := logging.WithRun(p.log)

	if err := p.prepareDebugDir(); err != nil {
		return nil, err
	}

	reports := make([]PageReport, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, _ := p.analyzePage(&page, log.WithField("page", page.Number))
		reports = append(reports, report)
	}
	return reports, nil
}

func (p *Pipeline) prepareDebugDir() error {
	if p.debugDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.debugDir, 0o755); err != nil {
		return fmt.Errorf("failed to create debug dir: %w", err)
	}
	return nil
}

// analyzePage runs detection for one page and fills in the report's
// geometry. A nil analysis means detection failed and report.Error is set.
//
// page.Image is replaced by an in-memory copy, so cropping and recognition
// never touch the source image again.
func (p *Pipeline) analyzePage(page *source.Page, log logrus.FieldLogger) (PageReport, *detection.Analysis) {
	report := PageReport{
		Page:      page.Number,
		Regions:   []detection.Box{},
		Equations: []string{},
	}
	if page.Image != nil {
		report.Width = page.Image.Bounds().Dx()
		report.Height = page.Image.Bounds().Dy()
	}

	img, err := imaging.Snapshot(page.Image)
	if err != nil {
		log.WithError(err).Warn("Failed to read page, skipping")
		report.Error = err.Error()
		return report, nil
	}
	page.Image = img

	analysis, err := p.detector.Analyze(img)
	if err != nil {
		log.WithError(err).Warn("Region detection failed, skipping page")
		report.Error = err.Error()
		return report, nil
	}

	report.Regions = analysis.Regions
	report.Fallback = len(analysis.Regions) == 0
	log.WithFields(logrus.Fields{
		"candidates": len(analysis.Candidates),
		"boxes":      len(analysis.Regions),
	}).Debug("Regions detected")

	if p.debugDir != "" {
		if err := p.writeDebug(page, analysis); err != nil {
			log.WithError(err).Warn("Failed to write debug images")
		}
	}

	return report, analysis
}

// processPage detects and recognizes one page. The returned error is non-nil
// only when the context is done.
func (p *Pipeline) processPage(ctx context.Context, page source.Page, log logrus.FieldLogger) (PageReport, error) {
	report, analysis := p.analyzePage(&page, log)
	if analysis == nil {
		return report, nil
	}

	outcomes := p.recognizePage(ctx, page, analysis.Regions)

	for _, o := range outcomes {
		if o.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && isContextError(o.Err) {
				return report, ctxErr
			}
			entry := log.WithError(o.Err)
			if o.Box != nil {
				entry = entry.WithFields(logrus.Fields{"region": o.Index, "box": o.Box.String()})
			}
			entry.Warn("Recognition failed, skipping rest of page")
			report.Error = o.Err.Error()
			break
		}
		if o.Text != "" {
			report.Equations = append(report.Equations, o.Text)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// recognizePage returns one outcome per region, or a single whole-page
// outcome when there are no regions. Outcomes are in region order.
func (p *Pipeline) recognizePage(ctx context.Context, page source.Page, regions []detection.Box) []Outcome {
	if len(regions) == 0 {
		text, err := p.recognize(ctx, page.Image)
		return []Outcome{{Page: page.Number, Text: text, Err: err}}
	}

	outcomes := make([]Outcome, len(regions))

	if p.workers <= 1 {
		for i := range regions {
			outcomes[i] = p.recognizeRegion(ctx, page, i, regions[i])
			if outcomes[i].Err != nil {
				return outcomes[:i+1]
			}
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range regions {
		g.Go(func() error {
			outcomes[i] = p.recognizeRegion(ctx, page, i, regions[i])
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// recognizeRegion crops one region out of the page and recognizes it.
func (p *Pipeline) recognizeRegion(ctx context.Context, page source.Page, index int, box detection.Box) Outcome {
	o := Outcome{Page: page.Number, Index: index, Box: &box}

	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}

	// Boxes are relative to the page origin; crops use image coordinates.
	rect := box.Rect().Add(page.Image.Bounds().Min)
	crop, err := imaging.CropRegion(page.Image, rect, p.cropScale)
	if err != nil {
		o.Err = err
		return o
	}

	o.Text, o.Err = p.recognize(ctx, crop)
	return o
}

// recognize calls the recognizer, converting a panic into an error and
// treating whitespace-only text as empty.
func (p *Pipeline) recognize(ctx context.Context, img image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("recognizer panicked: %v", r)
		}
	}()

	text, err = p.recognizer.Recognize(ctx, img)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}

// writeDebug saves the page's mask and an overlay of candidates and regions.
func (p *Pipeline) writeDebug(page *source.Page, analysis *detection.Analysis) error {
	offset := page.Image.Bounds().Min
	toRects := func(boxes []detection.Box) []image.Rectangle {
		rects := make([]image.Rectangle, len(boxes))
		for i, b := range boxes {
			rects[i] = b.Rect().Add(offset)
		}
		return rects
	}

	maskPath := filepath.Join(p.debugDir, fmt.Sprintf("page-%03d-mask.png", page.Number))
	if err := imaging.SavePNG(analysis.Mask, maskPath); err != nil {
		return err
	}

	overlay := imaging.DrawOverlay(page.Image, toRects(analysis.Candidates), toRects(analysis.Regions))
	boxesPath := filepath.Join(p.debugDir, fmt.Sprintf("page-%03d-boxes.png", page.Number))
	return imaging.SavePNG(overlay, boxesPath)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
