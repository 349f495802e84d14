package detection

import (
	"math/rand"
	"testing"
)

func TestDefaultExtractOptions(t *testing.T) {
	opts := DefaultExtractOptions()

	if opts.MinAreaRatio != 0.002 {
		t.Errorf("MinAreaRatio: got %v, want 0.002", opts.MinAreaRatio)
	}
	if opts.FullPageRatio != 0.95 {
		t.Errorf("FullPageRatio: got %v, want 0.95", opts.FullPageRatio)
	}
	if opts.PadPx != 6 {
		t.Errorf("PadPx: got %d, want 6", opts.PadPx)
	}
}

func TestExtractBoxes_MinArea(t *testing.T) {
	mask := newMask(100, 100)
	fillMask(mask, 5, 5, 14, 14)   // 81 px
	fillMask(mask, 50, 50, 60, 60) // 100 px

	boxes := ExtractBoxes(mask, ExtractOptions{MinAreaRatio: 0.01, PadPx: 0})

	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1: %v", len(boxes), boxes)
	}
	if want := (Box{50, 50, 60, 60}); boxes[0] != want {
		t.Errorf("box: got %v, want %v", boxes[0], want)
	}
}

func TestExtractBoxes_FullPage(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 int
		want           int
	}{
		{"covers 96% both ways", 0, 0, 96, 96, 0},
		{"exactly 95% both ways", 2, 2, 97, 97, 0},
		{"wide but short", 0, 0, 100, 50, 1},
		{"tall but narrow", 0, 0, 50, 100, 1},
		{"just under 95%", 0, 0, 94, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := newMask(100, 100)
			fillMask(mask, tt.x1, tt.y1, tt.x2, tt.y2)

			boxes := ExtractBoxes(mask, ExtractOptions{MinAreaRatio: 0, FullPageRatio: 0.95})
			if len(boxes) != tt.want {
				t.Errorf("got %d boxes, want %d", len(boxes), tt.want)
			}
		})
	}
}

func TestExtractBoxes_FullPageRatioDefault(t *testing.T) {
	mask := newMask(100, 100)
	fillMask(mask, 0, 0, 96, 96)

	if boxes := ExtractBoxes(mask, ExtractOptions{}); len(boxes) != 0 {
		t.Errorf("zero FullPageRatio should fall back to the default, got %v", boxes)
	}
}

func TestExtractBoxes_Padding(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 int
		pad            int
		want           Box
	}{
		{"interior", 40, 40, 50, 50, 6, Box{34, 34, 56, 56}},
		{"clamped top-left", 2, 3, 10, 10, 6, Box{0, 0, 16, 16}},
		{"clamped bottom-right", 90, 95, 100, 100, 6, Box{84, 89, 100, 100}},
		{"zero pad", 40, 40, 50, 50, 0, Box{40, 40, 50, 50}},
		{"negative pad", 40, 40, 50, 50, -3, Box{40, 40, 50, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := newMask(100, 100)
			fillMask(mask, tt.x1, tt.y1, tt.x2, tt.y2)

			boxes := ExtractBoxes(mask, ExtractOptions{PadPx: tt.pad})
			if len(boxes) != 1 {
				t.Fatalf("got %d boxes, want 1", len(boxes))
			}
			if boxes[0] != tt.want {
				t.Errorf("box: got %v, want %v", boxes[0], tt.want)
			}
		})
	}
}

func TestExtractBoxes_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		width := 20 + rng.Intn(180)
		height := 20 + rng.Intn(180)
		mask := newMask(width, height)
		for n := rng.Intn(8); n >= 0; n-- {
			b := randomBox(rng, width, height)
			fillMask(mask, b.X1, b.Y1, b.X2, b.Y2)
		}

		ratio := rng.Float64() * 0.05
		minArea := ratio * float64(width*height)

		unpadded := ExtractBoxes(mask, ExtractOptions{MinAreaRatio: ratio, PadPx: 0})
		for _, b := range unpadded {
			if float64(b.Area()) < minArea {
				t.Fatalf("box %v area %d below minimum %.1f", b, b.Area(), minArea)
			}
			if float64(b.Width()) >= 0.95*float64(width) && float64(b.Height()) >= 0.95*float64(height) {
				t.Fatalf("full-page box %v on %dx%d page", b, width, height)
			}
		}

		pad := rng.Intn(30)
		padded := ExtractBoxes(mask, ExtractOptions{MinAreaRatio: ratio, PadPx: pad})
		if len(padded) != len(unpadded) {
			t.Fatalf("padding changed the box count: %d vs %d", len(padded), len(unpadded))
		}
		for _, b := range padded {
			if !b.Within(width, height) {
				t.Fatalf("padded box %v outside %dx%d page (pad %d)", b, width, height, pad)
			}
		}
	}
}
