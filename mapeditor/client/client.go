package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/ebitenview"
	"github.com/phanxgames/sprig/mapeditor"
	"github.com/phanxgames/sprig/netsync"
)

const cameraLerp = 0.15

// App is a connected map-editor client window.
type App struct {
	Game     *ebitenview.Game
	Net      *netsync.Client
	World    *World
	Controls *Controls
	Camera   *sprig.Camera2D

	tokens []sprig.Token
	log    *zap.Logger
}

// New opens the window state, connects to cfg.URL and joins the scene.
func New(ctx context.Context, cfg mapeditor.ClientConfig, log *zap.Logger) (*App, error) {
	game, err := ebitenview.NewGame(ebitenview.RunConfig{
		Title:          "sprig map editor",
		Width:          cfg.Width,
		Height:         cfg.Height,
		ShowSystemInfo: cfg.ShowSystemInfo,
	}, sprig.Options{Logger: log, Debug: cfg.Debug})
	if err != nil {
		return nil, err
	}
	net, err := netsync.Dial(ctx, cfg.URL, game.App.Loop, cfg.Net, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Game:   game,
		Net:    net,
		World:  NewWorld(float32(cfg.Interpolation.Seconds()), log),
		Camera: sprig.NewCamera2D("camera", game.View),
		log:    log.Named("client"),
	}
	a.Controls = NewControls(a.World, net, game.View, log)
	a.World.SelfJoined.On(func(p *Player) { a.Camera.Follow(p.Node, sprig.Vec2{}, cameraLerp) }, 0)
	a.World.Vibrate.On(func(pattern []int) { a.log.Debug("vibrate", zap.Ints("pattern", pattern)) }, 0)

	for _, n := range []*sprig.Node{a.World.Node, a.Camera.Node, a.Controls.Node} {
		if err := game.App.Root.AddChild(n); err != nil {
			net.Close()
			return nil, err
		}
	}
	if err := a.Controls.Attach(); err != nil {
		net.Close()
		return nil, err
	}
	a.tokens = a.World.Bind(ctx, net)

	if err := net.Emit(mapeditor.EventSessionInit, mapeditor.SessionInit{Username: cfg.Username, Color: cfg.Color}); err != nil {
		net.Close()
		return nil, err
	}
	return a, nil
}

// Run blocks until the window closes or the connection drops.
func (a *App) Run(ctx context.Context) error {
	defer a.Net.Close()
	defer func() {
		for _, t := range a.tokens {
			t.Off()
		}
	}()
	go func() {
		err := a.Net.Run(ctx)
		if err != nil {
			a.log.Warn("connection lost", zap.Error(err))
		}
		a.Game.App.Loop.Post(a.Game.Quit)
	}()
	return a.Game.Run()
}
