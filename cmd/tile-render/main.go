package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"wolfram-tiles/internal/core"
	"wolfram-tiles/internal/tiles"
)

func main() {
	rule := flag.Int("rule", core.DefaultRule, "elementary rule number (0-255)")
	ppc := flag.Int("ppc", core.DefaultPixelsPerCell, "pixels per cell edge")
	tileSize := flag.Int("tile", tiles.DefaultTileSize, "tile edge in pixels")
	left := flag.Int("left", -1, "leftmost tile column")
	right := flag.Int("right", 1, "rightmost tile column")
	top := flag.Int("top", 0, "first tile row")
	bottom := flag.Int("bottom", 1, "last tile row")
	out := flag.String("out", "tiles.png", "output PNG path, - for stdout")
	verify := flag.Bool("verify", false, "check every cell against the flat reference simulator")
	metrics := flag.Bool("metrics", false, "print provider metrics to stderr when done")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := tiles.DefaultConfig()
	cfg.Rule = *rule
	cfg.PixelsPerCell = *ppc
	cfg.TileSize = *tileSize
	cfg.Logger = logger

	opts := options{
		Range:   core.NewTileRange(*left, *top, *right, *bottom),
		Out:     *out,
		Verify:  *verify,
		Metrics: *metrics,
	}
	if err := run(cfg, opts, logger, os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	Range   core.TileRange
	Out     string
	Verify  bool
	Metrics bool
}

// run renders opts.Range and writes the PNG to opts.Out, or to stdout when
// Out is "-". Metrics go to metricsOut.
func run(cfg tiles.Config, opts options, logger *slog.Logger, stdout, metricsOut io.Writer) error {
	reg := prometheus.NewRegistry()
	cfg.Registerer = reg
	provider := tiles.NewProvider(cfg)
	defer provider.Close()

	r := opts.Range
	limits := provider.TileIndexBounds()
	r.Top, r.Bottom = limits.ClampY(r.Top), limits.ClampY(r.Bottom)

	img, err := renderRange(provider, r)
	if err != nil {
		return err
	}
	logger.Info("rendered", "range", r, "summary", provider.DebugSummary())

	if opts.Verify {
		mismatches, err := verifyRange(provider, r)
		if err != nil {
			return err
		}
		if mismatches > 0 {
			return fmt.Errorf("%d cells differ from the reference simulator", mismatches)
		}
		logger.Info("verified against reference", "rule", provider.Rule(), "cells_per_tile", provider.CellsPerTile())
	}

	if err := writePNG(opts.Out, stdout, img); err != nil {
		return err
	}

	if opts.Metrics {
		return dumpMetrics(metricsOut, reg)
	}
	return nil
}

func writePNG(path string, stdout io.Writer, img image.Image) error {
	if path == "-" {
		return png.Encode(stdout, img)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	return writeFamilies(w, families)
}

// writeFamilies prints non-empty metric families in the text exposition format.
func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
