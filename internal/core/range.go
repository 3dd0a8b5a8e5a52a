package core

import "fmt"

// Coord identifies a tile: X is the horizontal tile index, Y the generation
// tile row (0 holds the seed generation).
type Coord struct {
	X, Y int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// TileRange is an inclusive rectangle of tile coordinates.
type TileRange struct {
	Left, Top, Right, Bottom int
}

// NewTileRange normalises the corners so Left <= Right and Top <= Bottom.
func NewTileRange(left, top, right, bottom int) TileRange {
	if right < left {
		left, right = right, left
	}
	if bottom < top {
		top, bottom = bottom, top
	}
	return TileRange{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Width returns the number of tile columns in the range.
func (r TileRange) Width() int { return r.Right - r.Left + 1 }

// Height returns the number of tile rows in the range.
func (r TileRange) Height() int { return r.Bottom - r.Top + 1 }

// Empty reports whether the range contains no tiles.
func (r TileRange) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Contains reports whether (x, y) lies inside the range.
func (r TileRange) Contains(x, y int) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Grow returns the range expanded by n tiles on every side.
func (r TileRange) Grow(n int) TileRange {
	return TileRange{Left: r.Left - n, Top: r.Top - n, Right: r.Right + n, Bottom: r.Bottom + n}
}

// ContainsWithin reports whether (x, y) lies inside the range grown by buffer.
func (r TileRange) ContainsWithin(x, y, buffer int) bool {
	return r.Grow(buffer).Contains(x, y)
}

// CenterOut returns the column indexes of the range ordered from the middle
// outwards: even steps go right of centre, odd steps go left.
func (r TileRange) CenterOut() []int {
	n := r.Width()
	if n <= 0 {
		return nil
	}
	half := n / 2
	cols := make([]int, 0, n)
	for i := 0; i < n; i++ {
		offset := half - (i/2 + 1)
		if i%2 == 0 {
			offset = half + i/2
		}
		if offset < 0 || offset >= n {
			continue
		}
		cols = append(cols, r.Left+offset)
	}
	return cols
}

func (r TileRange) String() string {
	return fmt.Sprintf("[%d,%d..%d,%d]", r.Left, r.Top, r.Right, r.Bottom)
}

// TileLimits describes which tile indexes a provider can produce. Unset bounds
// are unlimited.
type TileLimits struct {
	MinX, MaxX int
	MinY, MaxY int

	HasMinX, HasMaxX bool
	HasMinY, HasMaxY bool
}

// ClampY restricts y to the vertical limits.
func (l TileLimits) ClampY(y int) int {
	if l.HasMinY && y < l.MinY {
		return l.MinY
	}
	if l.HasMaxY && y > l.MaxY {
		return l.MaxY
	}
	return y
}

// FloorDiv divides rounding towards negative infinity, mapping pixel offsets
// onto tile indexes.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
