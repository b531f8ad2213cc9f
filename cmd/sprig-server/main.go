// Command sprig-server runs the authoritative map-editor scene behind a
// websocket endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/phanxgames/sprig/mapeditor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sprig-server:", err)
		os.Exit(1)
	}
}

func run() error {
	path := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := mapeditor.LoadServerConfig(*path)
	if err != nil {
		return err
	}
	log, err := mapeditor.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	srv, err := initServer(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("starting", zap.String("listen", cfg.Listen), zap.String("path", cfg.Path), zap.Int("tps", cfg.TPS))
	return srv.Run(ctx)
}
