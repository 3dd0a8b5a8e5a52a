package app

import "wolfram-tiles/internal/core"

// Camera tracks the world pixel shown at the top-left corner of the view.
// World x=0 is the left edge of tile 0 and world y=0 is generation 0.
type Camera struct {
	X, Y          int
	Width, Height int
}

// NewCamera returns a camera anchored at the top centre of the automaton:
// the seed cell in the middle of tile 0 sits at the horizontal centre of the
// view and generation 0 at its top edge.
func NewCamera(width, height, tileSize int) Camera {
	return Camera{X: tileSize/2 - width/2, Y: 0, Width: width, Height: height}
}

// Pan moves the camera, keeping generation 0 as the topmost visible row.
func (c *Camera) Pan(dx, dy int) {
	c.X += dx
	c.Y += dy
	if c.Y < 0 {
		c.Y = 0
	}
}

// VisibleRange returns the tiles that intersect the view.
func (c Camera) VisibleRange(tileSize int, limits core.TileLimits) core.TileRange {
	r := core.NewTileRange(
		core.FloorDiv(c.X, tileSize),
		core.FloorDiv(c.Y, tileSize),
		core.FloorDiv(c.X+c.Width-1, tileSize),
		core.FloorDiv(c.Y+c.Height-1, tileSize),
	)
	r.Top = limits.ClampY(r.Top)
	r.Bottom = limits.ClampY(r.Bottom)
	return r
}

// TileOrigin returns the view position of tile (x, y)'s top-left pixel.
func (c Camera) TileOrigin(x, y, tileSize int) (int, int) {
	return x*tileSize - c.X, y*tileSize - c.Y
}
