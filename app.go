package sprig

import (
	"context"

	"go.uber.org/zap"
)

// Loop priorities of the built-in systems. Game handlers registered with
// OnUpdate slot in around them.
const (
	PriorityProcess     = 300
	PriorityControllers = 200
	PriorityPhysics     = 100
)

// Options configures an App. The zero value is a headless app at DefaultTPS
// without physics.
type Options struct {
	TPS    int
	Logger *zap.Logger
	Debug  bool

	// Viewport defaults to an 800x600 View over a MatrixCanvas.
	Viewport Viewport
	// Touches defaults to a fresh tracker.
	Touches *Touches

	Physics bool
	Gravity Vec2
}

// App is the application context: it owns the scene root, the main loop and
// the systems watching the root. Everything a scene needs is reached through
// it; there are no package-level singletons.
type App struct {
	Root *Node
	Loop *MainLoop

	Process     *ProcessSystem
	Render      *RenderSystem
	Controllers *ControllersSystem
	// Physics is nil unless Options.Physics was set.
	Physics *PhysicsSystem

	Viewport Viewport
	Touches  *Touches
	Log      *zap.Logger

	tokens []Token
}

// NewApp builds the root, loop and systems and wires the systems into the
// loop: process first, then controllers, then physics.
func NewApp(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	vp := opts.Viewport
	if vp == nil {
		vp = NewView(NewMatrixCanvas(), 800, 600)
	}
	touches := opts.Touches
	if touches == nil {
		touches = NewTouches()
	}

	a := &App{
		Root:        NewBase("root"),
		Loop:        NewMainLoop(opts.TPS, log),
		Process:     NewProcessSystem(log),
		Render:      NewRenderSystem(log),
		Controllers: NewControllersSystem(touches, vp, log),
		Viewport:    vp,
		Touches:     touches,
		Log:         log,
	}
	a.Process.AddRoot(a.Root)
	a.Render.AddRoot(a.Root)
	a.Controllers.AddRoot(a.Root)
	a.tokens = append(a.tokens,
		a.Loop.OnUpdate(a.Process.Update, PriorityProcess),
		a.Loop.OnUpdate(a.Controllers.Update, PriorityControllers),
	)
	if opts.Physics {
		a.Physics = NewPhysicsSystem(opts.Gravity, log)
		a.Physics.AddRoot(a.Root)
		a.tokens = append(a.tokens, a.Loop.OnUpdate(a.Physics.Update, PriorityPhysics))
	}
	a.SetDebug(opts.Debug)
	return a
}

// Init initializes the root and its declared subtree.
func (a *App) Init(ctx context.Context) error {
	return a.Root.Init(ctx)
}

// OnUpdate registers a per-tick handler on the loop.
func (a *App) OnUpdate(fn func(dt float64), priority int) Token {
	return a.Loop.OnUpdate(fn, priority)
}

// Step runs one tick. Renderers that own the frame clock call Step from
// their update callback instead of starting the loop.
func (a *App) Step(dt float64) { a.Loop.Step(dt) }

// Draw renders every visible canvas item into the viewport.
func (a *App) Draw() { a.Render.Update(a.Viewport) }

// SetDebug toggles tree-shape warnings on every system.
func (a *App) SetDebug(on bool) {
	a.Process.SetDebug(on)
	a.Render.SetDebug(on)
	a.Controllers.SetDebug(on)
	if a.Physics != nil {
		a.Physics.SetDebug(on)
	}
}

// Close stops the loop, detaches the systems and destroys the tree.
func (a *App) Close() {
	a.Loop.Stop()
	for _, t := range a.tokens {
		t.Off()
	}
	a.tokens = nil
	a.Controllers.Close()
	a.Root.Destroy()
	_ = a.Log.Sync()
}
