package main

import (
	"bytes"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wolfram-tiles/internal/core"
	"wolfram-tiles/internal/tiles"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRunWritesVerifiedPNG(t *testing.T) {
	cfg := tiles.DefaultConfig()
	cfg.PixelsPerCell = 6
	out := filepath.Join(t.TempDir(), "tiles.png")
	opts := options{
		Range:   core.TileRange{Left: -1, Top: 0, Right: 1, Bottom: 1},
		Out:     out,
		Verify:  true,
		Metrics: true,
	}
	var metrics bytes.Buffer
	if err := run(cfg, opts, discardLogger(), &bytes.Buffer{}, &metrics); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 3*256 || img.Bounds().Dy() != 2*256 {
		t.Fatalf("png bounds %v", img.Bounds())
	}
	if !strings.Contains(metrics.String(), "wolfram_tiles_computed_total") {
		t.Fatalf("metrics not written:\n%s", metrics.String())
	}
}

func TestRunStdout(t *testing.T) {
	cfg := tiles.DefaultConfig()
	cfg.TileSize = 32
	var stdout bytes.Buffer
	if err := run(cfg, options{Out: "-"}, discardLogger(), &stdout, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&stdout); err != nil {
		t.Fatalf("stdout is not a png: %v", err)
	}
}

func TestRunReportsWriteFailure(t *testing.T) {
	cfg := tiles.DefaultConfig()
	cfg.TileSize = 32
	out := filepath.Join(t.TempDir(), "missing", "tiles.png")
	if err := run(cfg, options{Out: out}, discardLogger(), &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error writing into a missing directory")
	}
}
