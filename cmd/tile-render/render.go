package main

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"wolfram-tiles/internal/core"
	"wolfram-tiles/internal/render"
	"wolfram-tiles/internal/sims/elementary"
	"wolfram-tiles/internal/tiles"
)

var errTileMissing = errors.New("tile has no raster")

// renderRange computes every tile in r and composites the rasters into one
// image, tile (r.Left, r.Top) at the origin.
func renderRange(p *tiles.Provider, r core.TileRange) (*image.RGBA, error) {
	if r.Empty() {
		return nil, fmt.Errorf("empty tile range %v", r)
	}
	for y := r.Top; y <= r.Bottom; y++ {
		for x := r.Left; x <= r.Right; x++ {
			p.GetTile(x, y)
		}
	}
	p.NotifyViewportRangeChange(r)
	p.Wait()

	size := p.TileSize()
	dst := image.NewRGBA(image.Rect(0, 0, r.Width()*size, r.Height()*size))
	for y := r.Top; y <= r.Bottom; y++ {
		for x := r.Left; x <= r.Right; x++ {
			raster := p.GetTile(x, y).Raster()
			if raster == nil {
				return nil, fmt.Errorf("tile (%d,%d): %w", x, y, errTileMissing)
			}
			render.Composite(dst, raster, (x-r.Left)*size, (y-r.Top)*size)
		}
	}
	return dst, nil
}

// verifyRange compares the boundary and every cell of the rendered tiles in r
// with a flat simulation of the same rule. It returns the number of cells that
// differ.
func verifyRange(p *tiles.Provider, r core.TileRange) (int, error) {
	c := p.CellsPerTile()
	size := p.TileSize()
	ref, err := elementary.New(core.NewRuleTable(), elementary.Config{Rule: p.Rule(), SeedColumn: c / 2})
	if err != nil {
		return 0, err
	}
	palette := render.DefaultPalette()

	mismatches := 0
	for y := r.Top; y <= r.Bottom; y++ {
		for row := 0; row < c; row++ {
			ref.StepTo(y*c + row)
			for x := r.Left; x <= r.Right; x++ {
				boundary, raster := p.GetTile(x, y).Snapshot()
				if raster == nil {
					return mismatches, fmt.Errorf("tile (%d,%d): %w", x, y, errTileMissing)
				}
				want := ref.Row(x*c, c)
				for col, on := range want {
					if palette.IsOn(raster, render.CellPixel(col, c, size), render.CellPixel(row, c, size)) != on {
						mismatches++
					}
				}
				if row == c-1 && !slices.Equal(boundary, want) {
					mismatches++
				}
			}
		}
	}
	return mismatches, nil
}
