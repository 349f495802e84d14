package detection

import "image"

// DefaultFullPageRatio is the fraction of both page dimensions at or above
// which a component is treated as a page-sized false detection.
const DefaultFullPageRatio = 0.95

// ExtractOptions controls how mask components become candidate boxes.
type ExtractOptions struct {
	// MinAreaRatio drops components whose bounding rectangle covers less
	// than this fraction of the page area.
	MinAreaRatio float64 `json:"min_area_ratio"`

	// FullPageRatio drops components spanning at least this fraction of
	// both the page width and height. Values <= 0 use DefaultFullPageRatio.
	FullPageRatio float64 `json:"full_page_ratio"`

	// PadPx is the margin added on every side of a surviving rectangle.
	// Negative values are treated as 0.
	PadPx int `json:"pad_px"`
}

// DefaultExtractOptions returns the default extraction settings.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		MinAreaRatio:  0.002,
		FullPageRatio: DefaultFullPageRatio,
		PadPx:         6,
	}
}

// ExtractBoxes turns the outermost foreground components of mask into
// padded candidate boxes clamped to the mask's bounds.
//
// Area and full-page filtering use the unpadded rectangle. The returned
// boxes are in scan order of each component's first pixel, which callers
// must not rely on.
func ExtractBoxes(mask *image.Gray, opts ExtractOptions) []Box {
	bounds := mask.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	minArea := float64(width) * float64(height) * opts.MinAreaRatio

	fullRatio := opts.FullPageRatio
	if fullRatio <= 0 {
		fullRatio = DefaultFullPageRatio
	}
	fullWidth := fullRatio * float64(width)
	fullHeight := fullRatio * float64(height)

	pad := opts.PadPx
	if pad < 0 {
		pad = 0
	}

	components := externalComponents(mask)
	boxes := make([]Box, 0, len(components))

	for _, c := range components {
		bw, bh := c.Width(), c.Height()

		if float64(bw*bh) < minArea {
			continue
		}
		if float64(bw) >= fullWidth && float64(bh) >= fullHeight {
			continue
		}

		boxes = append(boxes, Box{
			X1: maxInt(0, c.X1-pad),
			Y1: maxInt(0, c.Y1-pad),
			X2: minInt(width, c.X2+pad),
			Y2: minInt(height, c.Y2+pad),
		})
	}

	return boxes
}
