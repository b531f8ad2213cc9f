//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/phanxgames/sprig/mapeditor"
	"github.com/phanxgames/sprig/mapeditor/server"
)

func initServer(cfg mapeditor.ServerConfig, log *zap.Logger) (*server.Server, error) {
	wire.Build(server.ProviderSet)
	return nil, nil
}
