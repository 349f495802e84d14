package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// MaskOptions controls how a page image is turned into a binary ink mask.
//
// The zero value is not useful; start from DefaultMaskOptions and adjust.
type MaskOptions struct {
	// BlurKernel is the side length of the smoothing kernel. Values <= 1
	// disable the blur.
	BlurKernel int `json:"blur_kernel"`

	// BlockSize is the side length of the neighbourhood used to compute the
	// local mean for adaptive thresholding.
	BlockSize int `json:"block_size"`

	// Offset is subtracted from the local mean. A pixel is ink when its
	// intensity is at or below mean - Offset.
	Offset float64 `json:"offset"`

	// CloseWidth and CloseHeight size the rectangular closing kernel.
	CloseWidth  int `json:"close_width"`
	CloseHeight int `json:"close_height"`

	// CloseIterations is how many times dilation (then erosion) is applied.
	CloseIterations int `json:"close_iterations"`
}

// DefaultMaskOptions returns the tuned defaults: 5x5 blur, 31px mean block
// with offset 15, and a 5x3 closing kernel applied twice.
func DefaultMaskOptions() MaskOptions {
	return MaskOptions{
		BlurKernel:      5,
		BlockSize:       31,
		Offset:          15,
		CloseWidth:      5,
		CloseHeight:     3,
		CloseIterations: 2,
	}
}

// BuildMask converts a page image into a binary mask where 255 marks pixels
// that are darker than their surroundings (ink) and 0 marks background.
//
// The steps always run in this order:
//
//  1. Grayscale conversion
//  2. Gaussian blur (BlurKernel x BlurKernel)
//  3. Adaptive mean threshold with inverted polarity
//  4. Morphological closing: dilate CloseIterations times, then erode
//     CloseIterations times, with a CloseWidth x CloseHeight rectangle
//
// The returned mask always has the same width and height as img, with its
// origin at (0, 0).
func BuildMask(img image.Image, opts MaskOptions) *image.Gray {
	// Normalize bounds so every later step can index from zero.
	src := imaging.Clone(img)
	gray := effect.Grayscale(src)

	var smoothed image.Image = gray
	if opts.BlurKernel > 1 {
		smoothed = blur.Gaussian(gray, float64(opts.BlurKernel-1)/2)
	}

	mask := adaptiveThreshold(smoothed, opts.BlockSize, opts.Offset)

	for i := 0; i < opts.CloseIterations; i++ {
		mask = dilate(mask, opts.CloseWidth, opts.CloseHeight)
	}
	for i := 0; i < opts.CloseIterations; i++ {
		mask = erode(mask, opts.CloseWidth, opts.CloseHeight)
	}

	return mask
}

// adaptiveThreshold marks a pixel as foreground when it is at least offset
// darker than the mean of its blockSize x blockSize neighbourhood.
// Neighbourhoods extending past the image edge reuse the edge pixels.
func adaptiveThreshold(img image.Image, blockSize int, offset float64) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if blockSize < 1 {
		blockSize = 1
	}

	mean := localMean(img, blockSize)
	src := imaging.Clone(img)
	result := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := float64(src.Pix[y*src.Stride+x*4])
			m := float64(mean.Pix[y*mean.Stride+x*4])
			if v <= m-offset {
				result.Pix[y*result.Stride+x] = 255
			}
		}
	}

	return result
}

// localMean returns the blockSize x blockSize box mean of img.
//
// The mean is separable: one horizontal pass, one vertical pass. Convolve
// stores each pass as uint8, so a bias of one half rounds each pass to the
// nearest level instead of truncating it.
func localMean(img image.Image, blockSize int) *image.RGBA {
	opts := &convolution.Options{Bias: 0.5, Wrap: false}
	mean := convolution.Convolve(img, onesKernel(blockSize, 1).Normalized(), opts)
	return convolution.Convolve(mean, onesKernel(1, blockSize).Normalized(), opts)
}

// dilate grows foreground regions by a w x h rectangle. Any foreground pixel
// under the kernel makes the output pixel foreground.
func dilate(mask *image.Gray, w, h int) *image.Gray {
	if w < 1 || h < 1 {
		return mask
	}
	sum := convolution.Convolve(mask, onesKernel(w, h), &convolution.Options{Bias: 0, Wrap: false})
	return segment.Threshold(sum, 1)
}

// erode shrinks foreground regions by a w x h rectangle, computed as the
// dilation of the background.
func erode(mask *image.Gray, w, h int) *image.Gray {
	if w < 1 || h < 1 {
		return mask
	}
	inverted := segment.Threshold(effect.Invert(mask), 128)
	return segment.Threshold(effect.Invert(dilate(inverted, w, h)), 128)
}

// onesKernel builds a w x h kernel with every weight set to 1.
func onesKernel(w, h int) *convolution.Kernel {
	k := convolution.NewKernel(w, h)
	for i := range k.Matrix {
		k.Matrix[i] = 1
	}
	return k
}

// ForegroundRatio returns the fraction of mask pixels that are foreground.
func ForegroundRatio(mask *image.Gray) float64 {
	bounds := mask.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	count := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if mask.GrayAt(x, y).Y != 0 {
				count++
			}
		}
	}
	return float64(count) / float64(total)
}
