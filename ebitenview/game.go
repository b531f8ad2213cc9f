package ebitenview

import (
	"errors"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/sprig"
)

// ErrQuit is returned from Update to end RunGame cleanly after Quit.
var ErrQuit = errors.New("ebitenview: quit")

// maxFrameDelta caps dt after stalls such as a dragged window.
const maxFrameDelta = 0.25

// RunConfig holds window settings for Run.
type RunConfig struct {
	Title         string
	Width, Height int
	// ShowSystemInfo adds the FPS/TPS readout to the root.
	ShowSystemInfo bool
}

func (c RunConfig) withDefaults() RunConfig {
	if c.Width <= 0 {
		c.Width = 800
	}
	if c.Height <= 0 {
		c.Height = 600
	}
	if c.Title == "" {
		c.Title = "sprig"
	}
	return c
}

// Game adapts a sprig.App to ebiten.Game. Ebiten owns the frame clock: each
// Update polls input and steps the app once with the wall-clock delta, and
// Draw renders the tree into the screen image.
type Game struct {
	App     *sprig.App
	Canvas  *Canvas
	View    *sprig.View
	Tracker *Tracker

	cfg  RunConfig
	now  func() time.Time
	last time.Time
	quit bool
}

// NewGame builds an App whose viewport draws into ebiten. opts.Viewport and
// opts.Touches are replaced by the ebiten-backed ones.
func NewGame(cfg RunConfig, opts sprig.Options) (*Game, error) {
	cfg = cfg.withDefaults()
	canvas, err := NewCanvas()
	if err != nil {
		return nil, err
	}
	view := sprig.NewView(canvas, float64(cfg.Width), float64(cfg.Height))
	touches := sprig.NewTouches()
	opts.Viewport = view
	opts.Touches = touches

	g := &Game{
		App:     sprig.NewApp(opts),
		Canvas:  canvas,
		View:    view,
		Tracker: NewTracker(touches),
		cfg:     cfg,
		now:     time.Now,
	}
	if cfg.ShowSystemInfo {
		if err := g.App.Root.AddChild(NewSystemInfo()); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Quit makes the next Update end the run loop.
func (g *Game) Quit() { g.quit = true }

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if g.quit {
		return ErrQuit
	}
	now := g.now()
	dt := 1.0 / float64(ebiten.TPS())
	if !g.last.IsZero() {
		dt = min(now.Sub(g.last).Seconds(), maxFrameDelta)
	}
	g.last = now

	g.Tracker.Update()
	g.App.Step(dt)
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	g.Canvas.SetTarget(screen)
	g.App.Draw()
}

// Layout implements ebiten.Game. The view follows the window size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	size := g.View.Size()
	if int(size.X) != outsideWidth || int(size.Y) != outsideHeight {
		g.View.Resize(float64(outsideWidth), float64(outsideHeight))
	}
	return outsideWidth, outsideHeight
}

// Run opens the window and blocks until it closes or Quit is called. The
// app is closed on return.
func (g *Game) Run() error {
	defer g.App.Close()
	ebiten.SetWindowTitle(g.cfg.Title)
	ebiten.SetWindowSize(g.cfg.Width, g.cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(g.App.Loop.TPS)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ErrQuit) {
		return err
	}
	return nil
}
