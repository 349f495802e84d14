package detection

import (
	"fmt"
	"image"
)

// Box is an axis-aligned region in page-pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
//
// A valid box on a w x h page satisfies 0 <= X1 < X2 <= w and
// 0 <= Y1 < Y2 <= h.
type Box struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Width returns the horizontal extent (X2 - X1).
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent (Y2 - Y1).
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Area returns Width * Height, or 0 for an empty box.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Empty reports whether the box contains no pixels.
func (b Box) Empty() bool {
	return b.X1 >= b.X2 || b.Y1 >= b.Y2
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Within reports whether the box is valid for a width x height page.
func (b Box) Within(width, height int) bool {
	return b.X1 >= 0 && b.Y1 >= 0 && b.X1 < b.X2 && b.Y1 < b.Y2 && b.X2 <= width && b.Y2 <= height
}

// Overlaps reports whether the two boxes share at least one pixel.
func (b Box) Overlaps(o Box) bool {
	return b.X1 < o.X2 && b.X2 > o.X1 && b.Y1 < o.Y2 && b.Y2 > o.Y1
}

// Intersect returns the area shared by both boxes, or 0 if they do not
// overlap.
func (b Box) Intersect(o Box) int {
	w := minInt(b.X2, o.X2) - maxInt(b.X1, o.X1)
	h := minInt(b.Y2, o.Y2) - maxInt(b.Y1, o.Y1)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// IoU returns the intersection-over-union of a and b in [0, 1].
//
// Boxes that do not overlap, or whose union is empty, have an IoU of 0.
func IoU(a, b Box) float64 {
	inter := a.Intersect(b)
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
