package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"wolfram-tiles/internal/core"
	"wolfram-tiles/internal/render"
)

// ErrMissingAncestor is returned when a tile is processed before one of the
// three tiles above it has been computed.
var ErrMissingAncestor = errors.New("ancestor tile not computed")

// processor computes tiles for one rule and resolution. A new processor is
// created for every queue run so settings never change under a worker.
type processor struct {
	cache        *Cache
	lookup       *core.RuleLookup
	tileSize     int
	cellsPerTile int
	palette      render.Palette
	logger       *slog.Logger
	metrics      *Metrics
	fresh        *atomic.Bool
	computed     *atomic.Int64
	aborted      *atomic.Int64
}

// run drains q until it is empty or ctx is cancelled. Tiles inside visible get
// a raster, all others only their boundary row.
func (p *processor) run(ctx context.Context, q *RenderQueue, visible core.TileRange) {
	p.logger.Debug("queue processing started", "queue", q.Len(), "range", visible)
	for {
		if err := ctx.Err(); err != nil {
			p.logger.Debug("queue processing cancelled", "remaining", q.Len())
			return
		}
		t, ok := q.Pop()
		if !ok {
			p.logger.Debug("queue processing finished")
			return
		}

		fill := visible.Contains(t.X, t.Y)
		switch t.State() {
		case StateRendered:
			continue
		case StateOnly:
			if !fill {
				continue
			}
		}

		start := time.Now()
		if err := p.processTile(t, fill); err != nil {
			p.logger.Warn("cannot process tile", "tile", t, "err", err)
			p.aborted.Add(1)
			p.metrics.aborted.Inc()
			continue
		}
		p.computed.Add(1)
		p.metrics.observeTile(fill, time.Since(start))
		p.fresh.Store(true)
	}
}

// processTile computes every cell row of t.
//
// The working row spans the tile and both horizontal neighbours, three tiles
// wide. Each generation can only be derived exactly one cell further in from
// the ends than the previous one, so the computed span shrinks by a cell per
// side per row; after a full tile of rows the middle third is still exact.
// This avoids computing the neighbours themselves.
func (p *processor) processTile(t *Tile, fillRaster bool) error {
	c := p.cellsPerTile
	cur := make([]bool, 3*c)
	next := make([]bool, 3*c)

	var img *render.CellImage
	if fillRaster {
		img = render.NewCellImage(c, p.palette)
	}

	startRow := 0
	if t.Y == 0 {
		// Generation zero is defined, not derived: one on cell in the middle of
		// tile 0, which tiles -1 and 1 see in their right and left thirds.
		if t.X >= -1 && t.X <= 1 {
			cur[len(cur)/2-t.X*c] = true
		}
		if img != nil {
			img.SetRow(0, cur[c:2*c])
		}
		startRow = 1
	} else {
		for i := 0; i < 3; i++ {
			x := t.X - 1 + i
			boundary, err := p.parentBoundary(x, t.Y-1)
			if err != nil {
				return fmt.Errorf("tile %v: %w", t.Coord(), err)
			}
			copy(cur[i*c:(i+1)*c], boundary)
		}
	}

	lo, hi := 1, 3*c-2
	for row := startRow; row < c; row++ {
		for col := lo; col <= hi; col++ {
			next[col] = p.lookup.Next(cur[col-1], cur[col], cur[col+1])
		}
		cur, next = next, cur
		lo++
		hi--
		if img != nil {
			img.SetRow(row, cur[c:2*c])
		}
	}

	boundary := make([]bool, c)
	copy(boundary, cur[c:2*c])

	var raster *image.RGBA
	if img != nil {
		raster = img.Scaled(p.tileSize)
	}
	t.publish(boundary, raster)
	return nil
}

func (p *processor) parentBoundary(x, y int) ([]bool, error) {
	parent, ok := p.cache.Get(x, y)
	if !ok {
		return nil, fmt.Errorf("%w: (%d,%d) not in cache", ErrMissingAncestor, x, y)
	}
	boundary := parent.Boundary()
	if boundary == nil {
		return nil, fmt.Errorf("%w: (%d,%d) not yet processed", ErrMissingAncestor, x, y)
	}
	if len(boundary) != p.cellsPerTile {
		return nil, fmt.Errorf("%w: (%d,%d) has %d cells, want %d", ErrMissingAncestor, x, y, len(boundary), p.cellsPerTile)
	}
	return boundary, nil
}
