package detection

import "github.com/tidwall/rtree"

// DefaultIoUThreshold is the overlap at or above which a candidate is
// suppressed by an already-accepted box.
const DefaultIoUThreshold = 0.4

// SuppressOverlaps performs greedy non-maximum suppression in reading order.
//
// Candidates are stable-sorted by (Y1, X1). Each candidate is accepted only
// if its IoU with every previously accepted box is strictly less than
// iouThreshold. Accepted boxes are returned in acceptance order, so the
// result is already sorted by (Y1, X1). The input slice is not modified.
//
// Accepted boxes are kept in an R-tree so a candidate is only compared with
// accepted boxes it overlaps. Boxes that do not overlap have an IoU of 0,
// which can never reach a positive threshold, so the decisions match a full
// pairwise scan. With a threshold <= 0 no IoU is ever below it, and only the
// first candidate survives.
func SuppressOverlaps(boxes []Box, iouThreshold float64) []Box {
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	SortReadingOrder(sorted)

	accepted := make([]Box, 0, len(sorted))
	var index rtree.RTreeG[int]

	for _, candidate := range sorted {
		if len(accepted) > 0 {
			if !(iouThreshold > 0) {
				break
			}
			if suppressed(&index, accepted, candidate, iouThreshold) {
				continue
			}
		}

		index.Insert(boxMin(candidate), boxMax(candidate), len(accepted))
		accepted = append(accepted, candidate)
	}

	return accepted
}

// suppressed reports whether any accepted box overlapping candidate has an
// IoU with it at or above threshold. The index also reports boxes that only
// touch the candidate's edge; those share no pixels and are skipped.
func suppressed(index *rtree.RTreeG[int], accepted []Box, candidate Box, threshold float64) bool {
	hit := false
	index.Search(boxMin(candidate), boxMax(candidate), func(_, _ [2]float64, i int) bool {
		if !candidate.Overlaps(accepted[i]) {
			return true
		}
		if IoU(candidate, accepted[i]) >= threshold {
			hit = true
			return false
		}
		return true
	})
	return hit
}

func boxMin(b Box) [2]float64 {
	return [2]float64{float64(minInt(b.X1, b.X2)), float64(minInt(b.Y1, b.Y2))}
}

func boxMax(b Box) [2]float64 {
	return [2]float64{float64(maxInt(b.X1, b.X2)), float64(maxInt(b.Y1, b.Y2))}
}
