//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"wolfram-tiles/internal/app"
	"wolfram-tiles/internal/tiles"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	pcfg := cfg.ProviderConfig(logger)
	reg := prometheus.NewRegistry()
	pcfg.Registerer = reg
	provider := tiles.NewProvider(pcfg)
	defer provider.Close()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	game := app.New(provider, cfg, logger)
	w, h := game.Layout(0, 0)

	ebiten.SetWindowTitle("wolfram-tiles")
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
