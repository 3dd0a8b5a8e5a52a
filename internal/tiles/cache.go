package tiles

import (
	"hash/fnv"
	"sync"

	"wolfram-tiles/internal/core"
)

// shardCount must be a power of two so shard selection is a mask.
const (
	shardCount = 16
	shardMask  = shardCount - 1
)

// coordHash computes an FNV-1a hash of both coordinate components.
func coordHash(c core.Coord) uint64 {
	h := fnv.New64a()
	var buf [16]byte
	x, y := uint64(c.X), uint64(c.Y)
	for i := 0; i < 8; i++ {
		buf[i] = byte(x >> (8 * i))
		buf[8+i] = byte(y >> (8 * i))
	}
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	return h.Sum64()
}

type cacheShard struct {
	mu    sync.RWMutex
	tiles map[core.Coord]*Tile
}

// Cache maps tile coordinates to tiles. Entries are never evicted; only their
// rasters are. Safe for concurrent use.
type Cache struct {
	tileSize int
	shards   [shardCount]*cacheShard
}

// NewCache creates an empty cache whose tiles are tileSize pixels square.
func NewCache(tileSize int) *Cache {
	c := &Cache{tileSize: tileSize}
	for i := range c.shards {
		c.shards[i] = &cacheShard{tiles: make(map[core.Coord]*Tile)}
	}
	return c
}

func (c *Cache) shard(key core.Coord) *cacheShard {
	return c.shards[coordHash(key)&shardMask]
}

// Get returns the tile at (x, y) if it has been created.
func (c *Cache) Get(x, y int) (*Tile, bool) {
	key := core.Coord{X: x, Y: y}
	s := c.shard(key)
	s.mu.RLock()
	t, ok := s.tiles[key]
	s.mu.RUnlock()
	return t, ok
}

// GetOrCreate returns the tile at (x, y), inserting an empty one on first
// request. Concurrent callers always receive the same instance.
func (c *Cache) GetOrCreate(x, y int) *Tile {
	key := core.Coord{X: x, Y: y}
	s := c.shard(key)

	s.mu.RLock()
	t, ok := s.tiles[key]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check after acquiring the write lock.
	if t, ok := s.tiles[key]; ok {
		return t
	}
	t = newTile(x, y, c.tileSize)
	s.tiles[key] = t
	return t
}

// Clear removes every tile.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.tiles = make(map[core.Coord]*Tile)
		s.mu.Unlock()
	}
}

// Len returns the number of cached tiles.
func (c *Cache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.tiles)
		s.mu.RUnlock()
	}
	return total
}

// Values returns a snapshot of all cached tiles in no particular order.
func (c *Cache) Values() []*Tile {
	out := make([]*Tile, 0, c.Len())
	for _, s := range c.shards {
		s.mu.RLock()
		for _, t := range s.tiles {
			out = append(out, t)
		}
		s.mu.RUnlock()
	}
	return out
}

// TileSize returns the pixel size used for new tiles.
func (c *Cache) TileSize() int { return c.tileSize }
