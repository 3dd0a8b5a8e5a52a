package tiles

import (
	"bytes"
	"context"
	"errors"
	"image"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"wolfram-tiles/internal/core"
	"wolfram-tiles/internal/render"
	"wolfram-tiles/internal/sims/elementary"
)

func newTestProvider(t *testing.T, mutate func(*Config)) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TileSize = 32
	cfg.PixelsPerCell = 2
	if mutate != nil {
		mutate(&cfg)
	}
	p := NewProvider(cfg)
	t.Cleanup(p.Close)
	return p
}

// show requests every tile of r, notifies the provider and waits for the
// worker to finish.
func show(p *Provider, r core.TileRange) {
	for y := r.Top; y <= r.Bottom; y++ {
		for x := r.Left; x <= r.Right; x++ {
			p.GetTile(x, y)
		}
	}
	p.NotifyViewportRangeChange(r)
	p.Wait()
}

// cellAt samples the centre of a cell in a rendered tile.
func cellAt(p *Provider, raster *image.RGBA, col, row int) bool {
	c, size := p.CellsPerTile(), p.TileSize()
	return render.DefaultPalette().IsOn(raster, render.CellPixel(col, c, size), render.CellPixel(row, c, size))
}

func referenceRows(t *testing.T, rule, c, x, y int) [][]bool {
	t.Helper()
	ref, err := elementary.New(core.NewRuleTable(), elementary.Config{Rule: rule, SeedColumn: c / 2})
	if err != nil {
		t.Fatal(err)
	}
	rows := make([][]bool, c)
	for r := 0; r < c; r++ {
		ref.StepTo(y*c + r)
		rows[r] = ref.Row(x*c, c)
	}
	return rows
}

func TestRule110FirstTile(t *testing.T) {
	p := newTestProvider(t, func(cfg *Config) {
		cfg.TileSize = 256
		cfg.PixelsPerCell = 4
		cfg.Rule = 110
	})
	if p.CellsPerTile() != 64 {
		t.Fatalf("cells per tile = %d, want 64", p.CellsPerTile())
	}

	show(p, core.TileRange{})
	tile := p.GetTile(0, 0)
	boundary, raster := tile.Snapshot()
	if raster == nil || boundary == nil {
		t.Fatalf("tile not rendered: %v", tile.State())
	}
	if raster.Bounds() != image.Rect(0, 0, 256, 256) {
		t.Fatalf("raster bounds %v", raster.Bounds())
	}

	palette := render.DefaultPalette()
	for y := 0; y < 4; y++ {
		for x := 0; x < 256; x++ {
			want := x >= 128 && x < 132
			if got := palette.IsOn(raster, x, y); got != want {
				t.Fatalf("first row pixel (%d,%d) on=%v, want %v", x, y, got, want)
			}
		}
	}

	// Second generation: one application of rule 110 to the seed row.
	for col := 0; col < 64; col++ {
		want := col == 31 || col == 32
		if got := cellAt(p, raster, col, 1); got != want {
			t.Fatalf("generation 1 column %d = %v, want %v", col, got, want)
		}
	}

	rows := referenceRows(t, 110, 64, 0, 0)
	if !slices.Equal(boundary, rows[63]) {
		t.Fatalf("boundary does not match generation 63")
	}
}

func TestRowZeroSeeding(t *testing.T) {
	p := newTestProvider(t, nil)
	c := p.CellsPerTile()
	show(p, core.TileRange{Left: -3, Top: 0, Right: 3, Bottom: 0})

	on := 0
	for x := -3; x <= 3; x++ {
		raster := p.GetTile(x, 0).Raster()
		if raster == nil {
			t.Fatalf("tile (%d,0) not rendered", x)
		}
		for col := 0; col < c; col++ {
			if cellAt(p, raster, col, 0) {
				on++
				if x != 0 || col != c/2 {
					t.Fatalf("unexpected seed cell in tile %d column %d", x, col)
				}
			}
		}
	}
	if on != 1 {
		t.Fatalf("found %d seed cells, want 1", on)
	}
}

func TestTilesMatchReference(t *testing.T) {
	for _, rule := range []int{30, 90, 110, 1, 57, 150} {
		p := newTestProvider(t, func(cfg *Config) { cfg.Rule = rule })
		c := p.CellsPerTile()
		visible := core.TileRange{Left: -2, Top: 0, Right: 2, Bottom: 2}
		show(p, visible)

		for y := visible.Top; y <= visible.Bottom; y++ {
			for x := visible.Left; x <= visible.Right; x++ {
				boundary, raster := p.GetTile(x, y).Snapshot()
				if raster == nil {
					t.Fatalf("rule %d: tile (%d,%d) not rendered", rule, x, y)
				}
				rows := referenceRows(t, rule, c, x, y)
				for row := 0; row < c; row++ {
					for col := 0; col < c; col++ {
						if got := cellAt(p, raster, col, row); got != rows[row][col] {
							t.Fatalf("rule %d tile (%d,%d) cell (%d,%d) = %v, want %v", rule, x, y, col, row, got, rows[row][col])
						}
					}
				}
				if !slices.Equal(boundary, rows[c-1]) {
					t.Fatalf("rule %d tile (%d,%d) boundary mismatch", rule, x, y)
				}
			}
		}
	}
}

func TestDeterministicRecompute(t *testing.T) {
	p := newTestProvider(t, func(cfg *Config) { cfg.Rule = 30 })
	visible := core.TileRange{Left: -1, Top: 3, Right: 1, Bottom: 4}

	show(p, visible)
	type result struct {
		boundary []bool
		pix      []byte
	}
	first := map[core.Coord]result{}
	for y := visible.Top; y <= visible.Bottom; y++ {
		for x := visible.Left; x <= visible.Right; x++ {
			b, r := p.GetTile(x, y).Snapshot()
			if r == nil {
				t.Fatalf("tile (%d,%d) not rendered", x, y)
			}
			first[core.Coord{X: x, Y: y}] = result{boundary: b, pix: r.Pix}
		}
	}

	p.SetRule(30)
	if p.CacheLen() != 0 {
		t.Fatalf("cache not cleared, %d tiles", p.CacheLen())
	}
	show(p, visible)

	for key, want := range first {
		b, r := p.GetTile(key.X, key.Y).Snapshot()
		if r == nil {
			t.Fatalf("tile %v not rendered after recompute", key)
		}
		if !slices.Equal(b, want.boundary) || !bytes.Equal(r.Pix, want.pix) {
			t.Fatalf("tile %v differs after recompute", key)
		}
	}
}

func TestEvictAndRestoreWithoutAncestors(t *testing.T) {
	p := newTestProvider(t, func(cfg *Config) { cfg.OffscreenBuffer = 1 })
	visible := core.TileRange{Left: -1, Top: 2, Right: 1, Bottom: 3}
	show(p, visible)

	before := map[core.Coord][]byte{}
	for y := visible.Top; y <= visible.Bottom; y++ {
		for x := visible.Left; x <= visible.Right; x++ {
			before[core.Coord{X: x, Y: y}] = slices.Clone(p.GetTile(x, y).Raster().Pix)
		}
	}

	show(p, core.TileRange{Left: 100, Top: 0, Right: 100, Bottom: 0})
	for key := range before {
		tile := p.GetTile(key.X, key.Y)
		if tile.Raster() != nil || tile.Boundary() == nil {
			t.Fatalf("tile %v should be evicted but known, state %v", key, tile.State())
		}
	}

	computed := p.computed.Load()
	show(p, visible)
	if got := p.computed.Load() - computed; got != int64(len(before)) {
		t.Fatalf("restoring computed %d tiles, want only the %d visible ones", got, len(before))
	}
	for key, pix := range before {
		raster := p.GetTile(key.X, key.Y).Raster()
		if raster == nil || !bytes.Equal(raster.Pix, pix) {
			t.Fatalf("tile %v raster differs after restore", key)
		}
	}
}

func TestShrinkingViewportEvicts(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := newTestProvider(t, func(cfg *Config) {
		cfg.OffscreenBuffer = 0
		cfg.Registerer = reg
	})
	show(p, core.TileRange{Left: -3, Top: 0, Right: 3, Bottom: 1})

	p.NotifyViewportRangeChange(core.TileRange{Left: 0, Top: 0, Right: 0, Bottom: 0})
	p.Wait()

	evicted := 0
	for y := 0; y <= 1; y++ {
		for x := -3; x <= 3; x++ {
			tile := p.GetTile(x, y)
			if x == 0 && y == 0 {
				if tile.Raster() == nil {
					t.Fatal("visible tile lost its raster")
				}
				continue
			}
			if tile.Raster() != nil || tile.Boundary() == nil {
				t.Fatalf("tile (%d,%d) state %v after shrink", x, y, tile.State())
			}
			evicted++
		}
	}
	if got := testutil.ToFloat64(p.metrics.evicted); int(got) != evicted {
		t.Fatalf("evicted metric = %v, want %d", got, evicted)
	}
}

func TestOffscreenBufferKeepsNearbyRasters(t *testing.T) {
	p := newTestProvider(t, func(cfg *Config) { cfg.OffscreenBuffer = 2 })
	show(p, core.TileRange{Left: 0, Top: 0, Right: 4, Bottom: 0})
	p.NotifyViewportRangeChange(core.TileRange{Left: 0, Top: 0, Right: 0, Bottom: 0})
	p.Wait()

	for x := 0; x <= 2; x++ {
		if p.GetTile(x, 0).Raster() == nil {
			t.Fatalf("tile %d is within the buffer and must keep its raster", x)
		}
	}
	for x := 3; x <= 4; x++ {
		if p.GetTile(x, 0).Raster() != nil {
			t.Fatalf("tile %d is beyond the buffer and must be evicted", x)
		}
	}
}

func TestAncestorsAreStateOnly(t *testing.T) {
	p := newTestProvider(t, nil)
	show(p, core.TileRange{Left: 0, Top: 3, Right: 0, Bottom: 3})

	if p.GetTile(0, 3).State() != StateRendered {
		t.Fatal("visible tile not rendered")
	}
	for y := 0; y < 3; y++ {
		for x := -(3 - y); x <= 3-y; x++ {
			if got := p.GetTile(x, y).State(); got != StateOnly {
				t.Fatalf("ancestor (%d,%d) state %v, want state-only", x, y, got)
			}
		}
	}
}

func TestSetRuleClamps(t *testing.T) {
	p := newTestProvider(t, nil)
	show(p, core.TileRange{})

	p.SetRule(999)
	if p.Rule() != 255 {
		t.Fatalf("rule = %d, want 255", p.Rule())
	}
	if p.CacheLen() != 0 || p.QueueLen() != 0 {
		t.Fatal("rule change must clear cache and queue")
	}
	p.SetRule(-7)
	if p.Rule() != 0 {
		t.Fatalf("rule = %d, want 0", p.Rule())
	}

	// Rule 255 turns everything on after the seed row.
	p.SetRule(999)
	show(p, core.TileRange{Left: 3, Top: 1, Right: 3, Bottom: 1})
	raster := p.GetTile(3, 1).Raster()
	if raster == nil || !cellAt(p, raster, 0, 0) {
		t.Fatal("rule 255 should produce on cells")
	}
}

func TestSetPixelsPerCell(t *testing.T) {
	p := newTestProvider(t, nil)
	show(p, core.TileRange{})

	p.SetPixelsPerCell(7)
	if p.PixelsPerCell() != 6 {
		t.Fatalf("pixels per cell = %d, want 6", p.PixelsPerCell())
	}
	if p.CacheLen() != 0 {
		t.Fatal("resolution change must clear the cache")
	}
	p.SetPixelsPerCell(100)
	if p.PixelsPerCell() != core.MaxPixelsPerCell {
		t.Fatalf("pixels per cell = %d, want %d", p.PixelsPerCell(), core.MaxPixelsPerCell)
	}
	if p.CellsPerTile() != 2 {
		t.Fatalf("cells per tile = %d, want 2", p.CellsPerTile())
	}

	show(p, core.TileRange{Left: -1, Top: 0, Right: 1, Bottom: 1})
	if b := p.GetTile(0, 1).Boundary(); len(b) != 2 {
		t.Fatalf("boundary length %d, want 2", len(b))
	}
}

func TestFreshDataCoalesces(t *testing.T) {
	p := newTestProvider(t, nil)
	p.HasFreshData()
	show(p, core.TileRange{Left: -2, Top: 0, Right: 2, Bottom: 1})

	if !p.HasFreshData() {
		t.Fatal("expected fresh data after computing tiles")
	}
	if p.HasFreshData() {
		t.Fatal("fresh data must reset after being read")
	}
}

func TestProcessTileMissingAncestor(t *testing.T) {
	p := newTestProvider(t, nil)
	lookup, err := p.rules.Lookup(110)
	if err != nil {
		t.Fatal(err)
	}
	proc := &processor{
		cache:        p.cache,
		lookup:       lookup,
		tileSize:     p.tileSize,
		cellsPerTile: p.CellsPerTile(),
		palette:      render.DefaultPalette(),
		logger:       newNopLogger(),
		metrics:      p.metrics,
		fresh:        &p.fresh,
		computed:     &p.computed,
		aborted:      &p.aborted,
	}

	tile := p.GetTile(0, 2)
	p.GetTile(-1, 1).publish(make([]bool, p.CellsPerTile()), nil)
	err = proc.processTile(tile, true)
	if !errors.Is(err, ErrMissingAncestor) {
		t.Fatalf("expected ErrMissingAncestor, got %v", err)
	}
	if tile.State() != StateEmpty {
		t.Fatal("failed tile must stay untouched")
	}

	// The worker logs and skips the tile instead of stopping.
	p.GetTile(5, 0)
	q := NewRenderQueue([]*Tile{tile, p.GetTile(5, 0)})
	proc.run(context.Background(), q, core.TileRange{Left: 0, Top: 0, Right: 5, Bottom: 2})
	if p.aborted.Load() != 1 {
		t.Fatalf("aborted = %d, want 1", p.aborted.Load())
	}
	if p.GetTile(5, 0).State() != StateRendered {
		t.Fatal("worker stopped after a failed tile")
	}
}

func TestRestartCancelsPreviousRun(t *testing.T) {
	p := newTestProvider(t, func(cfg *Config) {
		cfg.TileSize = 256
		cfg.PixelsPerCell = 1
	})

	// A deep request builds a large ancestor triangle; replace it immediately.
	p.GetTile(0, 40)
	p.NotifyViewportRangeChange(core.TileRange{Left: 0, Top: 40, Right: 0, Bottom: 40})
	show(p, core.TileRange{Left: 7, Top: 0, Right: 7, Bottom: 0})

	if p.GetTile(7, 0).State() != StateRendered {
		t.Fatal("latest range not rendered")
	}
	if p.QueueLen() != 0 {
		t.Fatalf("queue not drained: %d", p.QueueLen())
	}
	// Rows 0..40 around column 0 hold 41*41 tiles; a cancelled run stops long before.
	if n := p.computed.Load(); n >= 41*41 {
		t.Fatalf("abandoned range was completed: %d tiles computed", n)
	}
}

func TestConcurrentReadersDuringComputation(t *testing.T) {
	p := newTestProvider(t, nil)
	visible := core.TileRange{Left: -3, Top: 0, Right: 3, Bottom: 5}

	var stop atomic.Bool
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				for y := visible.Top; y <= visible.Bottom; y++ {
					for x := visible.Left; x <= visible.Right; x++ {
						b, r := p.GetTile(x, y).Snapshot()
						if r != nil && b == nil {
							t.Error("raster without boundary observed")
							return
						}
					}
				}
				p.HasFreshData()
				_ = p.DebugSummary()
			}
		}()
	}

	for i := 0; i < 5; i++ {
		p.NotifyViewportRangeChange(core.TileRange{Left: -3 + i%2, Top: i, Right: 3, Bottom: 5})
	}
	show(p, visible)
	stop.Store(true)
	wg.Wait()

	for y := visible.Top; y <= visible.Bottom; y++ {
		for x := visible.Left; x <= visible.Right; x++ {
			if p.GetTile(x, y).State() != StateRendered {
				t.Fatalf("tile (%d,%d) not rendered", x, y)
			}
		}
	}
}

func TestTileIndexBounds(t *testing.T) {
	p := newTestProvider(t, nil)
	l := p.TileIndexBounds()
	if !l.HasMinY || l.MinY != 0 {
		t.Fatal("generation axis must be bounded at 0")
	}
	if l.HasMinX || l.HasMaxX || l.HasMaxY {
		t.Fatal("other axes must be unbounded")
	}
}

func TestDebugSummary(t *testing.T) {
	p := newTestProvider(t, func(cfg *Config) { cfg.Rule = 30 })
	show(p, core.TileRange{Left: 0, Top: 0, Right: 1, Bottom: 0})
	if got, want := p.DebugSummary(), "WolframProv[r=30,ppc=2,cache=2,queue=0]"; got != want {
		t.Fatalf("DebugSummary = %q, want %q", got, want)
	}
}

func TestParameterControls(t *testing.T) {
	p := newTestProvider(t, nil)
	if !p.SetIntParameter("rule", 90) || p.Rule() != 90 {
		t.Fatal("rule parameter not applied")
	}
	if !p.SetIntParameter("pixels_per_cell", 4) || p.PixelsPerCell() != 4 {
		t.Fatal("zoom parameter not applied")
	}
	if p.SetIntParameter("unknown", 1) {
		t.Fatal("unknown parameter accepted")
	}

	show(p, core.TileRange{})
	snap := p.Parameters()
	for key, want := range map[string]string{"rule": "90", "pixels_per_cell": "4", "cells_per_tile": "8", "cache_tiles": "1", "rendered_tiles": "1", "computed": "1"} {
		param, ok := snap.Lookup(key)
		if !ok || param.Value != want {
			t.Fatalf("parameter %s = %+v, want %s", key, param, want)
		}
	}
	if n := len(p.ParameterControls()); n != 2 {
		t.Fatalf("expected 2 controls, got %d", n)
	}
}

func TestCloseIgnoresNotifications(t *testing.T) {
	p := NewProvider(DefaultConfig())
	p.Close()
	p.GetTile(0, 0)
	p.NotifyViewportRangeChange(core.TileRange{})
	p.Wait()
	if p.GetTile(0, 0).State() != StateEmpty {
		t.Fatal("closed provider must not compute tiles")
	}
}

func TestNewProviderClampsConfig(t *testing.T) {
	p := NewProvider(Config{TileSize: 4, Rule: 300, PixelsPerCell: 0, OffscreenBuffer: -1})
	defer p.Close()
	if p.TileSize() != MinTileSize || p.Rule() != 255 || p.PixelsPerCell() != 1 || p.buffer != 0 {
		t.Fatalf("config not clamped: size=%d rule=%d ppc=%d buffer=%d", p.TileSize(), p.Rule(), p.PixelsPerCell(), p.buffer)
	}
}
