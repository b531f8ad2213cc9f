// Command sprig-client opens a map-editor window connected to a
// sprig-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phanxgames/sprig/mapeditor"
	"github.com/phanxgames/sprig/mapeditor/client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sprig-client:", err)
		os.Exit(1)
	}
}

func run() error {
	path := flag.String("config", "", "path to a YAML config file")
	url := flag.String("url", "", "server websocket URL, overrides the config")
	name := flag.String("name", "", "username, overrides the config")
	flag.Parse()

	cfg, err := mapeditor.LoadClientConfig(*path)
	if err != nil {
		return err
	}
	if *url != "" {
		cfg.URL = *url
	}
	if *name != "" {
		cfg.Username = *name
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := mapeditor.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app, err := client.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
