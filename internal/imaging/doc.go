// Package imaging provides the pixel-level operations behind equation region
// detection.
//
// This package turns rasterized document pages into binary ink masks, crops
// and rescales regions for recognition, loads page images from disk, and
// renders debug overlays. All operations work with standard Go image.Image
// types and use a coordinate system where (0,0) is at the top-left corner,
// X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Masks
//
// BuildMask always returns an *image.Gray with bounds starting at (0,0) and
// the same width and height as its input. Foreground pixels are 255 and
// background pixels are 0; no other values occur.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Crop regions outside image bounds
//   - Invalid region specifications (x1 >= x2 or y1 >= y2)
//   - File I/O errors during image loading
//   - Encoding errors during image output
package imaging
