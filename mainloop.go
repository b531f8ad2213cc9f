package sprig

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTPS is the tick rate used when NewMainLoop is given a non-positive rate.
const DefaultTPS = 60

// MainLoop is a fixed-rate scheduler. Each tick runs the tasks posted since
// the previous tick and then every update handler, highest priority first,
// with the wall time elapsed since the previous tick. A slow tick is not
// caught up; the next delta is simply larger.
//
// Update handlers run on the loop goroutine. Register them before Start or
// from a handler. Post is the only method meant for other goroutines.
type MainLoop struct {
	TPS int

	update Event[float64]
	log    *zap.Logger
	now    func() time.Time

	// stepMu serializes ticks with externally driven Step calls.
	stepMu sync.Mutex

	mu      sync.Mutex
	running bool
	gen     uint64
	last    time.Time
	tasks   []func()
	ticks   uint64
}

// NewMainLoop creates a stopped loop ticking tps times per second.
func NewMainLoop(tps int, log *zap.Logger) *MainLoop {
	if tps <= 0 {
		tps = DefaultTPS
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MainLoop{TPS: tps, log: log.Named("loop"), now: time.Now}
}

// OnUpdate registers fn to run every tick.
func (l *MainLoop) OnUpdate(fn func(dt float64), priority int) Token {
	return l.update.On(fn, priority)
}

// Running reports whether the ticker is active.
func (l *MainLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Ticks returns the number of completed ticks, including Step calls.
func (l *MainLoop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Start launches the ticker. Returns false, scheduling nothing, if the loop
// is already running.
func (l *MainLoop) Start() bool {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return false
	}
	l.running = true
	l.gen++
	gen := l.gen
	l.last = l.now()
	interval := time.Second / time.Duration(l.TPS)
	l.mu.Unlock()

	l.log.Debug("loop started", zap.Int("tps", l.TPS))
	go l.run(gen, interval)
	return true
}

// Stop halts the ticker. A tick already past its start check finishes, but
// no tick starts after Stop returns. Stop does not wait for that tick.
func (l *MainLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	l.log.Debug("loop stopped", zap.Uint64("ticks", l.ticks))
}

// Run starts the loop and blocks until ctx is done, then stops it.
func (l *MainLoop) Run(ctx context.Context) error {
	started := l.Start()
	<-ctx.Done()
	if started {
		l.Stop()
	}
	return nil
}

// Post queues fn to run on the loop goroutine at the start of the next tick.
// Safe for concurrent use.
func (l *MainLoop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
}

// Step runs one tick with the given delta, whether or not the ticker is
// running. Frame-driven hosts (a renderer's update callback) use Step
// instead of Start.
func (l *MainLoop) Step(dt float64) {
	l.stepMu.Lock()
	defer l.stepMu.Unlock()
	l.step(dt)
}

func (l *MainLoop) run(gen uint64, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		if !l.tick(gen) {
			return
		}
	}
}

// tick runs one scheduled tick unless the generation that scheduled it was
// stopped. The check and the delta are taken under the same lock Stop uses.
func (l *MainLoop) tick(gen uint64) bool {
	l.stepMu.Lock()
	defer l.stepMu.Unlock()

	l.mu.Lock()
	if !l.running || l.gen != gen {
		l.mu.Unlock()
		return false
	}
	now := l.now()
	dt := now.Sub(l.last).Seconds()
	l.last = now
	l.mu.Unlock()

	l.step(dt)
	return true
}

func (l *MainLoop) step(dt float64) {
	l.mu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	for _, fn := range tasks {
		l.runTask(fn)
	}
	l.update.emitIsolated(dt, func(r any) {
		l.log.Error("update handler panicked", zap.Any("panic", r), zap.Stack("stack"))
	})

	l.mu.Lock()
	l.ticks++
	l.mu.Unlock()
}

func (l *MainLoop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("posted task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}
