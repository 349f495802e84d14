package detection

import "image"

// point is a pixel coordinate used by the flood fills.
type point struct {
	X, Y int
}

// externalComponents returns the bounding box of every outermost foreground
// component of mask, in mask coordinates relative to its origin.
//
// Foreground pixels (non-zero) are grouped with 8-connectivity. Background is
// 4-connected, and a component is outermost when it touches the image border
// or borders background that is reachable from the border. Components that sit
// entirely inside a hole of another component are skipped, as are any holes
// inside components.
func externalComponents(mask *image.Gray) []Box {
	bounds := mask.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	fg := make([][]bool, height)
	for y := 0; y < height; y++ {
		fg[y] = make([]bool, width)
		row := mask.Pix[y*mask.Stride : y*mask.Stride+width]
		for x, v := range row {
			fg[y][x] = v != 0
		}
	}

	outside := markOutside(fg, width, height)

	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	boxes := make([]Box, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if fg[y][x] && !visited[y][x] {
				box, external := floodComponent(fg, visited, outside, x, y, width, height)
				if external {
					boxes = append(boxes, box)
				}
			}
		}
	}

	return boxes
}

// markOutside flood-fills the background from every border pixel using
// 4-connectivity. Background pixels left unmarked are holes.
func markOutside(fg [][]bool, width, height int) [][]bool {
	outside := make([][]bool, height)
	for y := 0; y < height; y++ {
		outside[y] = make([]bool, width)
	}

	stack := make([]point, 0, 2*(width+height))
	for x := 0; x < width; x++ {
		stack = append(stack, point{X: x, Y: 0}, point{X: x, Y: height - 1})
	}
	for y := 0; y < height; y++ {
		stack = append(stack, point{X: 0, Y: y}, point{X: width - 1, Y: y})
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if outside[p.Y][p.X] || fg[p.Y][p.X] {
			continue
		}

		outside[p.Y][p.X] = true
		stack = append(stack,
			point{X: p.X + 1, Y: p.Y},
			point{X: p.X - 1, Y: p.Y},
			point{X: p.X, Y: p.Y + 1},
			point{X: p.X, Y: p.Y - 1},
		)
	}

	return outside
}

// floodComponent performs an iterative 8-connected flood fill from a
// foreground seed, marking visited pixels. It returns the component's
// bounding box and whether the component is outermost.
func floodComponent(fg, visited, outside [][]bool, startX, startY, width, height int) (Box, bool) {
	box := Box{X1: startX, Y1: startY, X2: startX + 1, Y2: startY + 1}
	external := false
	stack := []point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !fg[p.Y][p.X] {
			continue
		}
		visited[p.Y][p.X] = true

		box.X1 = minInt(box.X1, p.X)
		box.Y1 = minInt(box.Y1, p.Y)
		box.X2 = maxInt(box.X2, p.X+1)
		box.Y2 = maxInt(box.Y2, p.Y+1)

		if !external {
			external = touchesOutside(outside, p, width, height)
		}

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}

	return box, external
}

// touchesOutside reports whether p lies on the image border or is 4-adjacent
// to outside background.
func touchesOutside(outside [][]bool, p point, width, height int) bool {
	if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
		return true
	}
	return outside[p.Y][p.X-1] || outside[p.Y][p.X+1] || outside[p.Y-1][p.X] || outside[p.Y+1][p.X]
}
