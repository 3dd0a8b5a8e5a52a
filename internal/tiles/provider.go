package tiles

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"wolfram-tiles/internal/core"
	"wolfram-tiles/internal/render"
)

const (
	// DefaultTileSize is the raster edge length in pixels.
	DefaultTileSize = 256
	// MinTileSize keeps at least one cell per tile at the coarsest zoom.
	MinTileSize = core.MaxPixelsPerCell
	// DefaultOffscreenBuffer is how many tiles beyond the visible range keep
	// their rasters.
	DefaultOffscreenBuffer = 3
)

// Config controls a Provider.
type Config struct {
	TileSize        int
	Rule            int
	PixelsPerCell   int
	OffscreenBuffer int
	Palette         render.Palette

	// Logger receives diagnostics. Nil disables logging.
	Logger *slog.Logger
	// Registerer receives the provider's metrics. Nil uses a private registry.
	Registerer prometheus.Registerer
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		TileSize:        DefaultTileSize,
		Rule:            core.DefaultRule,
		PixelsPerCell:   core.DefaultPixelsPerCell,
		OffscreenBuffer: DefaultOffscreenBuffer,
		Palette:         render.DefaultPalette(),
	}
}

// Provider computes and caches the tiles of an elementary automaton's
// history. GetTile and NotifyViewportRangeChange never wait for computation;
// a single background worker fills tiles in and raises HasFreshData.
type Provider struct {
	tileSize int
	buffer   int
	palette  render.Palette
	logger   *slog.Logger

	rules   *core.RuleTable
	cache   *Cache
	queue   atomic.Pointer[RenderQueue]
	metrics *Metrics

	fresh    atomic.Bool
	computed atomic.Int64
	aborted  atomic.Int64

	mu            sync.Mutex
	rule          int
	pixelsPerCell int
	cancel        context.CancelFunc
	done          chan struct{}
	closed        bool
}

// NewProvider creates a provider. Out of range settings are clamped.
func NewProvider(cfg Config) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = newNopLogger()
	}
	if cfg.TileSize < MinTileSize {
		logger.Warn("tile size too small, clamping", "tile_size", cfg.TileSize, "min", MinTileSize)
		cfg.TileSize = MinTileSize
	}
	if cfg.OffscreenBuffer < 0 {
		cfg.OffscreenBuffer = 0
	}
	if cfg.Palette.On == nil || cfg.Palette.Off == nil {
		cfg.Palette = render.DefaultPalette()
	}
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	p := &Provider{
		tileSize: cfg.TileSize,
		buffer:   cfg.OffscreenBuffer,
		palette:  cfg.Palette,
		logger:   logger,
		rules:    core.NewRuleTable(),
		cache:    NewCache(cfg.TileSize),
	}
	p.queue.Store(NewRenderQueue(nil))
	p.rule = p.sanitizeRule(cfg.Rule)
	p.pixelsPerCell = p.sanitizePixelsPerCell(cfg.PixelsPerCell)
	p.metrics = newMetrics(reg,
		func() float64 { return float64(p.queue.Load().Len()) },
		func() float64 { return float64(p.cache.Len()) },
	)

	logger.Info("tile provider created", "rule", p.rule, "pixels_per_cell", p.pixelsPerCell, "tile_size", p.tileSize)
	return p
}

func (p *Provider) sanitizeRule(rule int) int {
	clamped, adjusted := core.ClampRule(rule)
	if adjusted {
		p.logger.Warn("rule out of range, clamping", "rule", rule, "clamped", clamped)
	}
	return clamped
}

func (p *Provider) sanitizePixelsPerCell(v int) int {
	clamped, adjusted := core.SanitizePixelsPerCell(v)
	if adjusted {
		p.logger.Warn("pixels per cell adjusted", "pixels_per_cell", v, "adjusted", clamped)
	}
	return clamped
}

// GetTile returns the cached tile at (x, y), creating an empty placeholder if
// it has not been requested before.
func (p *Provider) GetTile(x, y int) *Tile {
	return p.cache.GetOrCreate(x, y)
}

// TileSize returns the raster edge length in pixels.
func (p *Provider) TileSize() int { return p.tileSize }

// Rule returns the active rule number.
func (p *Provider) Rule() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rule
}

// PixelsPerCell returns the active zoom.
func (p *Provider) PixelsPerCell() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pixelsPerCell
}

// CellsPerTile returns how many cells span one tile edge at the active zoom.
func (p *Provider) CellsPerTile() int {
	return p.tileSize / p.PixelsPerCell()
}

// TileIndexBounds reports the valid tile indexes: generations start at row 0,
// everything else is unbounded.
func (p *Provider) TileIndexBounds() core.TileLimits {
	return core.TileLimits{MinY: 0, HasMinY: true}
}

// SetRule switches to a new rule, discarding every cached tile.
func (p *Provider) SetRule(rule int) {
	rule = p.sanitizeRule(rule)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rule = rule
	p.resetLocked()
	p.logger.Info("rule changed", "rule", rule)
}

// SetPixelsPerCell switches to a new zoom, discarding every cached tile.
func (p *Provider) SetPixelsPerCell(v int) {
	v = p.sanitizePixelsPerCell(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pixelsPerCell = v
	p.resetLocked()
	p.logger.Info("resolution changed", "pixels_per_cell", v)
}

func (p *Provider) resetLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.queue.Store(NewRenderQueue(nil))
	p.cache.Clear()
	p.computed.Store(0)
	p.aborted.Store(0)
	p.fresh.Store(true)
	p.metrics.resets.Inc()
}

// NotifyViewportRangeChange tells the provider which tiles are visible. It
// evicts rasters far outside the range, rebuilds the render queue, and
// restarts the worker on it. It does not wait for any tile to be computed.
func (p *Provider) NotifyViewportRangeChange(visible core.TileRange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	if n := p.evictOutside(visible); n > 0 {
		p.logger.Debug("evicted rasters", "count", n, "range", visible)
	}

	q := NewRenderQueue(buildRenderQueue(p.cache, visible))
	p.queue.Store(q)

	lookup, err := p.rules.Lookup(p.rule)
	if err != nil {
		// p.rule is always clamped, so this is unreachable.
		p.logger.Error("rule lookup failed", "err", err)
		return
	}
	proc := &processor{
		cache:        p.cache,
		lookup:       lookup,
		tileSize:     p.tileSize,
		cellsPerTile: p.tileSize / p.pixelsPerCell,
		palette:      p.palette,
		logger:       p.logger,
		metrics:      p.metrics,
		fresh:        &p.fresh,
		computed:     &p.computed,
		aborted:      &p.aborted,
	}

	ctx, cancel := context.WithCancel(context.Background())
	prev := p.done
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	p.logger.Debug("starting queue processing", "queue", q.Len(), "range", visible)
	go func() {
		defer close(done)
		// The previous worker may still be finishing its current tile.
		if prev != nil {
			<-prev
		}
		proc.run(ctx, q, visible)
	}()
}

// evictOutside drops the rasters of rendered tiles beyond the offscreen
// buffer around visible. Boundaries are kept.
func (p *Provider) evictOutside(visible core.TileRange) int {
	n := 0
	for _, t := range p.cache.Values() {
		if t.State() != StateRendered || visible.ContainsWithin(t.X, t.Y, p.buffer) {
			continue
		}
		if t.evictRaster() {
			n++
		}
	}
	p.metrics.evicted.Add(float64(n))
	return n
}

// HasFreshData reports whether any tile was computed since the last call.
func (p *Provider) HasFreshData() bool {
	return p.fresh.Swap(false)
}

// Wait blocks until the current worker run has finished or been cancelled.
func (p *Provider) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close stops the worker and waits for it. Later notifications are ignored.
func (p *Provider) Close() {
	p.mu.Lock()
	p.closed = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// QueueLen returns the number of tiles still waiting to be processed.
func (p *Provider) QueueLen() int {
	return p.queue.Load().Len()
}

// CacheLen returns the number of cached tiles.
func (p *Provider) CacheLen() int {
	return p.cache.Len()
}

// DebugSummary returns a one-line description for diagnostics overlays.
func (p *Provider) DebugSummary() string {
	p.mu.Lock()
	rule, ppc := p.rule, p.pixelsPerCell
	p.mu.Unlock()
	return fmt.Sprintf("WolframProv[r=%d,ppc=%d,cache=%d,queue=%d]", rule, ppc, p.cache.Len(), p.QueueLen())
}

// Parameters exposes the current settings and counters for the HUD.
func (p *Provider) Parameters() core.ParameterSnapshot {
	p.mu.Lock()
	rule, ppc := p.rule, p.pixelsPerCell
	p.mu.Unlock()

	rendered := 0
	for _, t := range p.cache.Values() {
		if t.State() == StateRendered {
			rendered++
		}
	}

	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Automaton",
			Params: []core.Parameter{
				{Key: "rule", Label: "Rule", Type: core.ParamTypeInt, Value: strconv.Itoa(rule), Description: "Elementary rule number"},
				{Key: "pixels_per_cell", Label: "Zoom", Type: core.ParamTypeInt, Value: strconv.Itoa(ppc), Description: "Pixels per cell edge"},
				{Key: "cells_per_tile", Label: "Cells/tile", Type: core.ParamTypeString, Value: strconv.Itoa(p.tileSize / ppc)},
			},
		},
		{
			Name: "Cache",
			Params: []core.Parameter{
				{Key: "cache_tiles", Label: "Tiles", Type: core.ParamTypeString, Value: strconv.Itoa(p.cache.Len())},
				{Key: "rendered_tiles", Label: "Rendered", Type: core.ParamTypeString, Value: strconv.Itoa(rendered)},
				{Key: "queue", Label: "Queue", Type: core.ParamTypeString, Value: strconv.Itoa(p.QueueLen())},
				{Key: "computed", Label: "Computed", Type: core.ParamTypeString, Value: strconv.FormatInt(p.computed.Load(), 10)},
				{Key: "aborted", Label: "Aborted", Type: core.ParamTypeString, Value: strconv.FormatInt(p.aborted.Load(), 10)},
			},
		},
	}}
}

// ParameterControls lists the settings the HUD may adjust.
func (p *Provider) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		{Key: "rule", Label: "Rule", Step: 1, Min: core.MinRule, Max: core.MaxRule},
		{Key: "pixels_per_cell", Label: "Zoom", Step: core.PixelsPerCellStep, Min: core.MinPixelsPerCell, Max: core.MaxPixelsPerCell},
	}
}

// SetIntParameter applies a HUD adjustment.
func (p *Provider) SetIntParameter(key string, value int) bool {
	switch key {
	case "rule":
		p.SetRule(value)
	case "pixels_per_cell":
		p.SetPixelsPerCell(value)
	default:
		return false
	}
	return true
}
