package tiles

import (
	"fmt"
	"image"
	"sync/atomic"

	"wolfram-tiles/internal/core"
)

// TileState is the lifecycle stage of a tile.
type TileState int

const (
	// StateEmpty tiles have never been computed.
	StateEmpty TileState = iota
	// StateOnly tiles know their last cell row but hold no raster, either
	// because they were only needed as ancestors or because the raster was
	// evicted.
	StateOnly
	// StateRendered tiles hold both the last cell row and a raster.
	StateRendered
)

func (s TileState) String() string {
	switch s {
	case StateOnly:
		return "state-only"
	case StateRendered:
		return "rendered"
	default:
		return "empty"
	}
}

// tileData is published as a unit and never mutated afterwards.
type tileData struct {
	boundary []bool
	raster   *image.RGBA
}

// Tile is one square of the generation grid. X is the horizontal tile index,
// Y the generation row of tiles. Its contents are swapped atomically so
// readers see either the previous or the next complete state.
type Tile struct {
	X, Y int
	// Size is the edge length of the raster in pixels.
	Size int

	data atomic.Pointer[tileData]
}

func newTile(x, y, size int) *Tile {
	return &Tile{X: x, Y: y, Size: size}
}

// Coord returns the tile's coordinate.
func (t *Tile) Coord() core.Coord { return core.Coord{X: t.X, Y: t.Y} }

// State reports the current lifecycle stage.
func (t *Tile) State() TileState {
	d := t.data.Load()
	switch {
	case d == nil:
		return StateEmpty
	case d.raster == nil:
		return StateOnly
	default:
		return StateRendered
	}
}

// Boundary returns the states of the tile's last cell row, or nil if the tile
// has not been computed. The slice is shared and must not be modified.
func (t *Tile) Boundary() []bool {
	if d := t.data.Load(); d != nil {
		return d.boundary
	}
	return nil
}

// Raster returns the rendered image, or nil. The image is shared and must not
// be modified.
func (t *Tile) Raster() *image.RGBA {
	if d := t.data.Load(); d != nil {
		return d.raster
	}
	return nil
}

// Snapshot returns a consistent boundary/raster pair.
func (t *Tile) Snapshot() ([]bool, *image.RGBA) {
	if d := t.data.Load(); d != nil {
		return d.boundary, d.raster
	}
	return nil, nil
}

// publish replaces the tile's contents. A raster is only accepted together with
// a boundary.
func (t *Tile) publish(boundary []bool, raster *image.RGBA) {
	if boundary == nil {
		return
	}
	t.data.Store(&tileData{boundary: boundary, raster: raster})
}

// evictRaster drops the raster while keeping the boundary. It reports whether
// a raster was removed.
func (t *Tile) evictRaster() bool {
	for {
		d := t.data.Load()
		if d == nil || d.raster == nil {
			return false
		}
		if t.data.CompareAndSwap(d, &tileData{boundary: d.boundary}) {
			return true
		}
	}
}

func (t *Tile) String() string {
	return fmt.Sprintf("Tile[(%d,%d),%d*%d]", t.X, t.Y, t.Size, t.Size)
}
