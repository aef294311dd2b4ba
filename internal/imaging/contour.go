package imaging

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// dirs8 enumerates the Moore neighborhood clockwise starting East, with Y
// growing downward. Consecutive entries are 8-adjacent to each other, which
// the boundary walk relies on.
var dirs8 = [8]Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

// TraceLargestRegion extracts the outer boundary polygon of the largest
// 8-connected foreground region in the bitmap.
//
// Region selection scans row-major: the region with the greatest pixel area
// wins, ties going to the region encountered first. The boundary is walked
// with Moore-neighbor tracing starting at the region's first row-major
// pixel, and collinear runs are collapsed so straight edges contribute only
// their endpoints. An 8x8 filled square therefore yields 4 vertices.
//
// Returns nil when the bitmap has no foreground pixel. Output is fully
// deterministic for identical bitmap contents.
func TraceLargestRegion(bm *Bitmap) []Point {
	start, ok := largestRegionStart(bm)
	if !ok {
		return nil
	}
	return compressCollinear(traceBoundary(bm, start))
}

// largestRegionStart labels 8-connected foreground regions in row-major
// order and returns the first row-major pixel of the largest one.
func largestRegionStart(bm *Bitmap) (Point, bool) {
	visited := make([]bool, bm.Width*bm.Height)

	var best Point
	bestArea := 0

	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			if !bm.At(x, y) || visited[y*bm.Width+x] {
				continue
			}
			area := floodCount(bm, visited, x, y)
			if area > bestArea {
				bestArea = area
				best = Point{X: x, Y: y}
			}
		}
	}
	return best, bestArea > 0
}

// floodCount marks one 8-connected region as visited starting from (x, y)
// and returns its pixel area. Iterative stack walk, not recursion, so large
// regions cannot overflow the stack.
func floodCount(bm *Bitmap, visited []bool, x, y int) int {
	stack := []Point{{X: x, Y: y}}
	area := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !bm.At(p.X, p.Y) || visited[p.Y*bm.Width+p.X] {
			continue
		}
		visited[p.Y*bm.Width+p.X] = true
		area++

		for _, d := range dirs8 {
			nx, ny := p.X+d.X, p.Y+d.Y
			if bm.At(nx, ny) && !visited[ny*bm.Width+nx] {
				stack = append(stack, Point{X: nx, Y: ny})
			}
		}
	}
	return area
}

// walkState is one step of the boundary walk: the current boundary pixel
// and the background cell the walk backtracked from. The walk is a pure
// function of this state, so the first repeated state closes the contour.
type walkState struct {
	pos       Point
	backtrack Point
}

// traceBoundary walks the outer boundary of the region containing start
// using clockwise Moore-neighbor tracing.
//
// start must be the region's first foreground pixel in row-major order, so
// its west neighbor is guaranteed background and serves as the initial
// backtrack cell. Termination is on the first repeated (pixel, backtrack)
// state, which also handles degenerate one-pixel-wide regions where the
// walk passes through the start pixel in differing directions.
func traceBoundary(bm *Bitmap, start Point) []Point {
	state := walkState{pos: start, backtrack: Point{X: start.X - 1, Y: start.Y}}
	seen := map[walkState]struct{}{state: {}}
	contour := []Point{start}

	for {
		bi := dirIndex(state.pos, state.backtrack)
		advanced := false
		for k := 1; k <= 8; k++ {
			i := (bi + k) % 8
			c := Point{X: state.pos.X + dirs8[i].X, Y: state.pos.Y + dirs8[i].Y}
			if bm.At(c.X, c.Y) {
				// The cell examined just before c becomes the new
				// backtrack; it is background and 8-adjacent to c.
				j := (bi + k + 7) % 8
				state = walkState{
					pos:       c,
					backtrack: Point{X: state.pos.X + dirs8[j].X, Y: state.pos.Y + dirs8[j].Y},
				}
				advanced = true
				break
			}
		}
		if !advanced {
			// Isolated single pixel.
			return contour
		}
		if _, ok := seen[state]; ok {
			return contour
		}
		seen[state] = struct{}{}
		contour = append(contour, state.pos)
	}
}

// dirIndex returns the dirs8 index of the step from one cell to an
// 8-adjacent cell.
func dirIndex(from, to Point) int {
	dx, dy := to.X-from.X, to.Y-from.Y
	for i, d := range dirs8 {
		if d.X == dx && d.Y == dy {
			return i
		}
	}
	return 0
}

// compressCollinear removes vertices that lie on a straight run between
// their neighbors, treating the contour as closed. Consecutive traced
// points are 8-adjacent, so a run is straight exactly when the unit step
// into a vertex equals the unit step out of it.
func compressCollinear(contour []Point) []Point {
	contour = dedupeClosed(contour)
	n := len(contour)
	if n < 3 {
		return contour
	}

	kept := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		prev := contour[(i+n-1)%n]
		cur := contour[i]
		next := contour[(i+1)%n]
		inDX, inDY := cur.X-prev.X, cur.Y-prev.Y
		outDX, outDY := next.X-cur.X, next.Y-cur.Y
		if inDX != outDX || inDY != outDY {
			kept = append(kept, cur)
		}
	}
	if len(kept) == 0 {
		// Fully collinear contour (a straight line segment); keep its ends.
		return []Point{contour[0], contour[n/2]}
	}
	return kept
}

// dedupeClosed drops consecutive duplicate vertices, including a trailing
// vertex equal to the first. Out-and-back walks over one-pixel-wide limbs
// can revisit the start pixel at the end of the trace.
func dedupeClosed(contour []Point) []Point {
	if len(contour) < 2 {
		return contour
	}
	out := contour[:1]
	for _, p := range contour[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	for len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	return out
}
