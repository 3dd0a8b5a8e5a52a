package app

import (
	"flag"
	"log/slog"

	"wolfram-tiles/internal/core"
	"wolfram-tiles/internal/tiles"
)

// Config represents the command-line parameters for the viewer.
type Config struct {
	Rule            int
	PixelsPerCell   int
	TileSize        int
	OffscreenBuffer int
	Width           int
	Height          int
	HUDWidth        int
	PanSpeed        int
	MetricsAddr     string
	Verbose         bool
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Rule:            core.DefaultRule,
		PixelsPerCell:   core.DefaultPixelsPerCell,
		TileSize:        tiles.DefaultTileSize,
		OffscreenBuffer: tiles.DefaultOffscreenBuffer,
		Width:           1024,
		Height:          768,
		HUDWidth:        240,
		PanSpeed:        8,
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Rule, "rule", c.Rule, "elementary rule number (0-255)")
	fs.IntVar(&c.PixelsPerCell, "ppc", c.PixelsPerCell, "pixels per cell edge")
	fs.IntVar(&c.TileSize, "tile", c.TileSize, "tile edge in pixels")
	fs.IntVar(&c.OffscreenBuffer, "buffer", c.OffscreenBuffer, "tiles beyond the view that keep their rasters")
	fs.IntVar(&c.Width, "width", c.Width, "view width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "view height in pixels")
	fs.IntVar(&c.HUDWidth, "hud", c.HUDWidth, "HUD panel width in pixels (0 disables)")
	fs.IntVar(&c.PanSpeed, "pan", c.PanSpeed, "pixels panned per tick while an arrow key is held")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "serve prometheus metrics on this address")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "enable debug logging")
}

// LogLevel maps the verbosity flag onto a slog level.
func (c *Config) LogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// ProviderConfig converts the flags into a tile provider configuration.
func (c *Config) ProviderConfig(logger *slog.Logger) tiles.Config {
	cfg := tiles.DefaultConfig()
	cfg.Rule = c.Rule
	cfg.PixelsPerCell = c.PixelsPerCell
	cfg.TileSize = c.TileSize
	cfg.OffscreenBuffer = c.OffscreenBuffer
	cfg.Logger = logger
	return cfg
}
