// Package detection locates probable equation regions on document pages.
//
// Detection runs in four fixed stages:
//
//  1. Mask: imaging.BuildMask marks ink that is darker than its surroundings
//     and merges nearby strokes into blobs.
//  2. Extract: ExtractBoxes takes the bounding rectangle of every outermost
//     blob, drops blobs that are too small or that cover the whole page, and
//     pads the rest.
//  3. Suppress: SuppressOverlaps removes boxes that overlap an earlier box in
//     reading order by at least the IoU threshold.
//  4. Sequence: Sequence sorts the survivors top-to-bottom, then
//     left-to-right, and keeps at most MaxRegions of them.
//
// Detector composes the stages and is what callers normally use.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at the page's top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Boxes use inclusive top-left and exclusive bottom-right
//
// # Ordering
//
// Suppression is greedy and depends only on the (Y1, X1) sort; there are no
// confidence scores. Ties keep their input order.
package detection
