package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
	"github.com/phanxgames/sprig/netsync"
)

const shutdownTimeout = 5 * time.Second

// ProviderSet builds a Server from a ServerConfig and a logger.
var ProviderSet = wire.NewSet(
	NewApp,
	NewHub,
	NewResources,
	NewScene,
	NewServer,
	wire.Bind(new(Broadcaster), new(*netsync.Hub)),
)

// NewApp creates the headless physics app the scene runs in.
func NewApp(cfg mapeditor.ServerConfig, log *zap.Logger) *sprig.App {
	return sprig.NewApp(sprig.Options{TPS: cfg.TPS, Logger: log, Physics: true})
}

// NewHub creates a hub that posts to app's loop.
func NewHub(app *sprig.App, cfg mapeditor.ServerConfig, log *zap.Logger) *netsync.Hub {
	return netsync.NewHub(app.Loop, cfg.Net, log)
}

// NewResources opens the configured resource directory.
func NewResources(cfg mapeditor.ServerConfig, log *zap.Logger) (*mapeditor.ResourceStore, error) {
	return mapeditor.OpenResourceStore(cfg.ResourceDir, log)
}

// Server ties the scene, its loop and the websocket endpoint together.
type Server struct {
	App   *sprig.App
	Hub   *netsync.Hub
	Scene *Scene
	HTTP  *http.Server

	log *zap.Logger
}

func NewServer(app *sprig.App, hub *netsync.Hub, scene *Scene, cfg mapeditor.ServerConfig, log *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)
	return &Server{
		App:   app,
		Hub:   hub,
		Scene: scene,
		HTTP:  &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		log:   log.Named("server"),
	}
}

// Run serves until ctx is cancelled or the listener fails, then shuts the
// endpoint down and closes every session.
func (s *Server) Run(ctx context.Context) error {
	if err := s.App.Init(ctx); err != nil {
		return err
	}
	if err := s.Scene.Init(ctx); err != nil {
		return err
	}
	for _, t := range s.Scene.Bind(ctx, s.Hub) {
		defer t.Off()
	}
	defer s.App.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.App.Loop.Run(gctx) })
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", s.HTTP.Addr))
		if err := s.HTTP.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.HTTP.Shutdown(sctx)
		s.Hub.Close()
		s.log.Info("stopped")
		return err
	})
	return g.Wait()
}
