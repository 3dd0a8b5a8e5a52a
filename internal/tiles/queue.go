package tiles

import (
	"sync"

	"wolfram-tiles/internal/core"
)

// RenderQueue is an ordered list of tiles waiting to be computed. It is
// written once when built and drained by a single worker, but may be inspected
// from other goroutines.
type RenderQueue struct {
	mu    sync.Mutex
	items []*Tile
	head  int
}

// NewRenderQueue creates a queue holding items in order.
func NewRenderQueue(items []*Tile) *RenderQueue {
	return &RenderQueue{items: items}
}

// Pop removes and returns the next tile.
func (q *RenderQueue) Pop() (*Tile, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.items) {
		return nil, false
	}
	t := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	return t, true
}

// Len returns the number of tiles still waiting.
func (q *RenderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// queueBuilder accumulates tiles for a new queue, remembering which
// coordinates are already scheduled.
type queueBuilder struct {
	cache    *Cache
	items    []*Tile
	enqueued map[core.Coord]struct{}
}

func newQueueBuilder(cache *Cache) *queueBuilder {
	return &queueBuilder{cache: cache, enqueued: make(map[core.Coord]struct{})}
}

func (b *queueBuilder) push(t *Tile) {
	key := t.Coord()
	if _, ok := b.enqueued[key]; ok {
		return
	}
	b.enqueued[key] = struct{}{}
	b.items = append(b.items, t)
}

// addVisible schedules t, preceded by any of its ancestors that still need
// computing. Tiles that already have a raster are skipped.
func (b *queueBuilder) addVisible(t *Tile) {
	if t.Raster() != nil {
		return
	}
	for _, dep := range collectUnresolvedAncestors(b.cache, t, b.enqueued) {
		b.push(dep)
	}
	b.push(t)
}

// buildRenderQueue orders the work for a visible range: rows top to bottom,
// and within each row from the centre column outwards so the middle of the
// view fills in first.
func buildRenderQueue(cache *Cache, visible core.TileRange) []*Tile {
	b := newQueueBuilder(cache)
	cols := visible.CenterOut()
	for y := max(visible.Top, 0); y <= visible.Bottom; y++ {
		for _, x := range cols {
			b.addVisible(cache.GetOrCreate(x, y))
		}
	}
	return b.items
}
