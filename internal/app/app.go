//go:build ebiten

package app

import (
	"image"
	"image/color"
	"log/slog"

	"wolfram-tiles/internal/core"
	"wolfram-tiles/internal/tiles"
	"wolfram-tiles/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game adapts a tile provider to the ebiten.Game interface.
type Game struct {
	provider *tiles.Provider
	hud      *ui.HUD
	logger   *slog.Logger

	camera   Camera
	panSpeed int
	hudWidth int
	showHUD  bool

	notified  core.TileRange
	hasRange  bool
	settings  [2]int
	world     *ebiten.Image
	dirty     bool
	images    map[*image.RGBA]*ebiten.Image
	offColour color.Color
}

// New constructs a Game showing provider through a view of the configured size.
func New(provider *tiles.Provider, cfg *Config, logger *slog.Logger) *Game {
	hudWidth := cfg.HUDWidth
	if hudWidth < 0 {
		hudWidth = 0
	}
	return &Game{
		provider:  provider,
		hud:       ui.NewHUD(provider, hudWidth, "Wolfram Tiles"),
		logger:    logger,
		camera:    NewCamera(cfg.Width, cfg.Height, provider.TileSize()),
		panSpeed:  cfg.PanSpeed,
		hudWidth:  hudWidth,
		showHUD:   hudWidth > 0,
		dirty:     true,
		images:    map[*image.RGBA]*ebiten.Image{},
		offColour: color.Black,
	}
}

// Update handles per-frame input and keeps the provider informed of the view.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		g.showHUD = !g.showHUD && g.hudWidth > 0
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.camera = NewCamera(g.camera.Width, g.camera.Height, g.provider.TileSize())
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
		g.provider.SetRule(g.provider.Rule() - 1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
		g.provider.SetRule(g.provider.Rule() + 1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) {
		g.provider.SetPixelsPerCell(g.provider.PixelsPerCell() - core.PixelsPerCellStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		g.provider.SetPixelsPerCell(g.provider.PixelsPerCell() + core.PixelsPerCellStep)
	}

	dx, dy := 0, 0
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		dx -= g.panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		dx += g.panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		dy -= g.panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		dy += g.panSpeed
	}
	if dx != 0 || dy != 0 {
		g.camera.Pan(dx, dy)
		g.dirty = true
	}

	if g.showHUD {
		g.hud.Update(g.camera.Width)
	}

	g.syncViewport()
	if g.provider.HasFreshData() {
		g.dirty = true
	}
	return nil
}

// syncViewport notifies the provider when the visible range changed or the
// provider was reset by a rule or zoom change.
func (g *Game) syncViewport() {
	settings := [2]int{g.provider.Rule(), g.provider.PixelsPerCell()}
	visible := g.camera.VisibleRange(g.provider.TileSize(), g.provider.TileIndexBounds())
	if g.hasRange && visible == g.notified && settings == g.settings {
		return
	}
	if settings != g.settings {
		g.logger.Debug("viewer settings changed", "rule", settings[0], "pixels_per_cell", settings[1])
	}
	for y := visible.Top; y <= visible.Bottom; y++ {
		for x := visible.Left; x <= visible.Right; x++ {
			g.provider.GetTile(x, y)
		}
	}
	g.provider.NotifyViewportRangeChange(visible)
	g.notified, g.hasRange, g.settings = visible, true, settings
	g.dirty = true
}

// Draw renders the visible tiles and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.world == nil {
		g.world = ebiten.NewImage(g.camera.Width, g.camera.Height)
	}
	if g.dirty {
		g.drawWorld()
		g.dirty = false
	}
	screen.DrawImage(g.world, nil)
	if g.showHUD {
		g.hud.Draw(screen, g.camera.Width, g.camera.Height)
	} else {
		ebitenutil.DebugPrint(screen, g.provider.DebugSummary())
	}
}

func (g *Game) drawWorld() {
	g.world.Fill(g.offColour)
	size := g.provider.TileSize()
	used := make(map[*image.RGBA]*ebiten.Image, len(g.images))
	for y := g.notified.Top; y <= g.notified.Bottom; y++ {
		for x := g.notified.Left; x <= g.notified.Right; x++ {
			raster := g.provider.GetTile(x, y).Raster()
			if raster == nil {
				continue
			}
			img, ok := g.images[raster]
			if !ok {
				img = ebiten.NewImageFromImage(raster)
			}
			used[raster] = img
			ox, oy := g.camera.TileOrigin(x, y, size)
			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(float64(ox), float64(oy))
			g.world.DrawImage(img, op)
		}
	}
	for raster, img := range g.images {
		if _, ok := used[raster]; !ok {
			img.Deallocate()
		}
	}
	g.images = used
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w := g.camera.Width
	if g.showHUD {
		w += g.hudWidth
	}
	return w, g.camera.Height
}
