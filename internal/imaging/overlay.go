package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// candidateColor outlines boxes that were found but not accepted.
var candidateColor = color.NRGBA{R: 160, G: 160, B: 160, A: 255}

// goldenAngle spreads successive hues around the colour wheel.
const goldenAngle = 137.50776405003785

// RegionColor returns a distinct, deterministic outline colour for the i-th
// accepted region.
func RegionColor(i int) color.NRGBA {
	hue := math.Mod(float64(i)*goldenAngle, 360)
	r, g, b := colorful.Hsv(hue, 0.85, 0.9).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// DrawOverlay returns a copy of img with candidate rectangles outlined in
// gray and accepted rectangles outlined in distinct colours, drawn on top.
// Each accepted rectangle is labelled with its 1-based reading position.
// Rectangles are in img's coordinate space.
func DrawOverlay(img image.Image, candidates, accepted []image.Rectangle) *image.NRGBA {
	offset := img.Bounds().Min
	out := imaging.Clone(img)

	for _, r := range candidates {
		drawOutline(out, r.Sub(offset), 1, candidateColor)
	}
	for i, r := range accepted {
		drawOutline(out, r.Sub(offset), 2, RegionColor(i))
	}
	for i, r := range accepted {
		drawLabel(out, r.Sub(offset), strconv.Itoa(i+1), RegionColor(i))
	}

	return out
}

// drawOutline strokes the inside edge of r with the given thickness.
func drawOutline(img *image.NRGBA, r image.Rectangle, thickness int, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	for t := 0; t < thickness; t++ {
		top, bottom := r.Min.Y+t, r.Max.Y-1-t
		left, right := r.Min.X+t, r.Max.X-1-t
		if top > bottom || left > right {
			return
		}
		for x := left; x <= right; x++ {
			img.SetNRGBA(x, top, c)
			img.SetNRGBA(x, bottom, c)
		}
		for y := top; y <= bottom; y++ {
			img.SetNRGBA(left, y, c)
			img.SetNRGBA(right, y, c)
		}
	}
}

// drawLabel writes text in white on a bg-coloured tab just above r, or just
// inside its top-left corner when there is no room above.
func drawLabel(img *image.NRGBA, r image.Rectangle, text string, bg color.NRGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.White, Face: face}
	width := d.MeasureString(text).Ceil() + 2

	at := image.Pt(r.Min.X, r.Min.Y-face.Height)
	if at.Y < img.Bounds().Min.Y {
		at = r.Min.Add(image.Pt(2, 2))
	}

	tab := image.Rect(at.X, at.Y, at.X+width, at.Y+face.Height).Intersect(img.Bounds())
	draw.Draw(img, tab, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(at.X+1, at.Y+face.Ascent)
	d.DrawString(text)
}

// SavePNG writes img to path in PNG format.
func SavePNG(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
