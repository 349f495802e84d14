package detection

import (
	"math/rand"
	"reflect"
	"testing"
)

// suppressLinear is the plain pairwise greedy scan used as a reference.
func suppressLinear(boxes []Box, threshold float64) []Box {
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	SortReadingOrder(sorted)

	accepted := make([]Box, 0, len(sorted))
	for _, c := range sorted {
		keep := true
		for _, a := range accepted {
			if !(IoU(c, a) < threshold) {
				keep = false
				break
			}
		}
		if keep {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

func TestSuppressOverlaps_LowOverlapKeepsBoth(t *testing.T) {
	boxes := []Box{{5, 5, 15, 15}, {0, 0, 10, 10}}

	got := SuppressOverlaps(boxes, 0.4)

	want := []Box{{0, 0, 10, 10}, {5, 5, 15, 15}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSuppressOverlaps_TouchingBoxesKept(t *testing.T) {
	// Edge and corner neighbours share no pixels.
	boxes := []Box{{0, 0, 10, 10}, {10, 0, 20, 10}, {0, 10, 10, 20}, {10, 10, 20, 20}}

	got := SuppressOverlaps(boxes, 1e-9)

	if !reflect.DeepEqual(got, boxes) {
		t.Errorf("got %v, want %v", got, boxes)
	}
}

func TestSuppressOverlaps_HighOverlapKeepsFirst(t *testing.T) {
	boxes := []Box{{1, 1, 10, 10}, {0, 0, 10, 10}}

	got := SuppressOverlaps(boxes, 0.4)

	want := []Box{{0, 0, 10, 10}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSuppressOverlaps_Thresholds(t *testing.T) {
	a := Box{0, 0, 10, 10}
	b := Box{5, 5, 15, 15} // IoU with a is 25/175

	tests := []struct {
		name      string
		threshold float64
		want      int
	}{
		{"above IoU", 0.2, 2},
		{"equal to IoU suppresses", 25.0 / 175.0, 1},
		{"below IoU", 0.1, 1},
		{"zero keeps only first", 0, 1},
		{"negative keeps only first", -1, 1},
		{"one keeps all non-identical", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuppressOverlaps([]Box{a, b, {50, 50, 60, 60}}, tt.threshold)
			// The far box never overlaps, so it survives whenever the
			// threshold is positive.
			want := tt.want
			if tt.threshold > 0 {
				want++
			}
			if len(got) != want {
				t.Errorf("got %d boxes (%v), want %d", len(got), got, want)
			}
			if got[0] != a {
				t.Errorf("first accepted: got %v, want %v", got[0], a)
			}
		})
	}
}

func TestSuppressOverlaps_IdenticalBoxes(t *testing.T) {
	boxes := []Box{{3, 3, 9, 9}, {3, 3, 9, 9}, {3, 3, 9, 9}}

	if got := SuppressOverlaps(boxes, 1.0); len(got) != 1 {
		t.Errorf("identical boxes at threshold 1: got %d, want 1", len(got))
	}
}

func TestSuppressOverlaps_Empty(t *testing.T) {
	got := SuppressOverlaps(nil, 0.4)
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
}

func TestSuppressOverlaps_DoesNotMutateInput(t *testing.T) {
	boxes := []Box{{20, 20, 30, 30}, {0, 0, 10, 10}, {1, 1, 10, 10}}
	original := append([]Box(nil), boxes...)

	SuppressOverlaps(boxes, 0.4)

	if !reflect.DeepEqual(boxes, original) {
		t.Errorf("input modified: got %v, want %v", boxes, original)
	}
}

func TestSuppressOverlaps_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := rng.Intn(60)
		boxes := make([]Box, n)
		for j := range boxes {
			boxes[j] = randomBox(rng, 300, 300)
		}
		threshold := rng.Float64()

		got := SuppressOverlaps(boxes, threshold)

		if len(got) > len(boxes) {
			t.Fatalf("output larger than input: %d > %d", len(got), len(boxes))
		}

		inInput := make(map[Box]int)
		for _, b := range boxes {
			inInput[b]++
		}
		for _, b := range got {
			if inInput[b] == 0 {
				t.Fatalf("output box %v not in input", b)
			}
			inInput[b]--
		}

		for x := 0; x < len(got); x++ {
			for y := x + 1; y < len(got); y++ {
				if IoU(got[x], got[y]) >= threshold {
					t.Fatalf("accepted %v and %v with IoU %.3f >= %.3f",
						got[x], got[y], IoU(got[x], got[y]), threshold)
				}
			}
		}

		if want := suppressLinear(boxes, threshold); !reflect.DeepEqual(got, want) {
			t.Fatalf("indexed and linear scans disagree:\n got %v\nwant %v", got, want)
		}
	}
}

func TestSuppressOverlaps_ClusteredAgreesWithLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	// Many small jittered copies of a few boxes exercise the index heavily.
	for i := 0; i < 100; i++ {
		var boxes []Box
		for c := 0; c < 5; c++ {
			base := randomBox(rng, 400, 400)
			for k := 0; k < 20; k++ {
				dx, dy := rng.Intn(7)-3, rng.Intn(7)-3
				boxes = append(boxes, Box{base.X1 + dx, base.Y1 + dy, base.X2 + dx + 1, base.Y2 + dy + 1})
			}
		}

		for _, threshold := range []float64{0.1, 0.4, 0.8} {
			got := SuppressOverlaps(boxes, threshold)
			want := suppressLinear(boxes, threshold)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("threshold %.1f: indexed and linear scans disagree", threshold)
			}
		}
	}
}
