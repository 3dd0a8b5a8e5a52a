package tiles

import (
	"slices"

	"wolfram-tiles/internal/core"
)

// collectUnresolvedAncestors returns the tiles that must be computed before t,
// highest generation first.
//
// Computing t needs the last rows of the three tiles above it, those need the
// five above them, and so on: an inverted triangle that widens by one tile per
// side per generation. The walk stops at the first row of the triangle in
// which every tile is already computed or already queued, since everything
// above it is then resolved transitively. Tiles are created in the cache as a
// side effect.
func collectUnresolvedAncestors(cache *Cache, t *Tile, enqueued map[core.Coord]struct{}) []*Tile {
	if t.Y <= 0 {
		return nil
	}

	var deps []*Tile
	minX, maxX := t.X-1, t.X+1
	for y := t.Y - 1; y >= 0; y-- {
		missing := false
		for x := minX; x <= maxX; x++ {
			parent := cache.GetOrCreate(x, y)
			if _, queued := enqueued[parent.Coord()]; queued {
				continue
			}
			if parent.Boundary() != nil {
				continue
			}
			missing = true
			deps = append(deps, parent)
		}
		if !missing {
			break
		}
		minX--
		maxX++
	}

	// Discovered bottom-up; parents must be processed first.
	slices.Reverse(deps)
	return deps
}
