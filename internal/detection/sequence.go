package detection

import "sort"

// SortReadingOrder stable-sorts boxes in place by Y1, then X1, ascending.
func SortReadingOrder(boxes []Box) {
	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].Y1 != boxes[j].Y1 {
			return boxes[i].Y1 < boxes[j].Y1
		}
		return boxes[i].X1 < boxes[j].X1
	})
}

// Sequence returns the boxes in reading order, truncated to maxRegions.
//
// The sort is applied even when the input is already ordered. A maxRegions
// of 0 or less yields an empty slice. The input slice is not modified.
func Sequence(boxes []Box, maxRegions int) []Box {
	if maxRegions <= 0 {
		return []Box{}
	}

	ordered := make([]Box, len(boxes))
	copy(ordered, boxes)
	SortReadingOrder(ordered)

	if len(ordered) > maxRegions {
		ordered = ordered[:maxRegions]
	}
	return ordered
}
