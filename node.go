package sprig

import (
	"context"
	"fmt"
	"math/bits"
	"sync/atomic"
)

// Capability is a bit set of the layered behaviours a Node takes part in.
// Each capability has its own relative attributes and its own System.
type Capability uint8

const (
	CapProcess Capability = 1 << iota // ticked by ProcessSystem
	CapCanvas                         // visibility, alpha, z-index; drawn by RenderSystem
	Cap2D                             // position, rotation, scale
	CapControl                        // receives input from ControllersSystem
	CapPhysics                        // owns a rigid body in PhysicsSystem
)

const capCount = 5

func (c Capability) index() int {
	return bits.TrailingZeros8(uint8(c))
}

// Lifecycle is the init state of a Node.
type Lifecycle uint8

const (
	StateUninitialized Lifecycle = iota
	StateInitializing
	StateReady
	StateDestroyed
)

func (l Lifecycle) String() string {
	switch l {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("Lifecycle(%d)", uint8(l))
}

// --- ID counter ---

// nodeIDCounter is shared by every App in the process. Atomic because server
// tests build scenes from several goroutines.
var nodeIDCounter atomic.Uint32

func nextNodeID() uint32 {
	return nodeIDCounter.Add(1)
}

// treeWatcher is notified when nodes enter or leave a subtree it watches.
type treeWatcher interface {
	nodeEntered(n *Node)
	nodeExiting(n *Node)
}

// --- Node ---

// Node is the fundamental scene graph element. A single flat struct carries
// every capability; Caps reports which ones a node takes part in. Fields of a
// capability the node lacks are ignored by the systems.
type Node struct {
	// Identity
	ID   uint32
	Name string
	Kind *Kind
	// Owner is the value that wraps this node (a *Player embedding *Node, for
	// example). ChildAs uses it for typed lookup. Defaults to the node itself.
	Owner any

	caps     Capability
	state    Lifecycle
	parent   *Node
	children []*Node
	chains   [capCount][]*Node
	watchers []treeWatcher

	// Process (CapProcess)
	processPriority        int
	processAsRelative      bool
	ProcessPriorityChanged Event[*Node]
	PreProcess             Event[float64]
	PostProcess            Event[float64]

	// Canvas (CapCanvas)
	Visible           bool
	VisibleAsRelative bool
	Alpha             float64
	AlphaAsRelative   bool
	zIndex            int
	zAsRelative       bool
	ZIndexChanged     Event[*Node]
	PreRender         Event[Viewport]
	PostRender        Event[Viewport]

	// 2D (Cap2D)
	Position           Vec2
	PivotOffset        Vec2
	Scale              Vec2
	rotation           float64
	PositionAsRelative bool
	RotationAsRelative bool
	ScaleAsRelative    bool
	// DrawDistance is the culling radius around the global position.
	DrawDistance float64
	// ScreenSpace nodes are drawn in viewport space (origin at the viewport
	// centre) instead of through the camera. They are never culled.
	ScreenSpace bool

	// Control (CapControl)
	HitShape      HitShape
	InputPress    Event[InputEvent]
	InputMove     Event[InputEvent]
	InputUp       Event[InputEvent]
	InputClick    Event[InputEvent]
	InputDblClick Event[InputEvent]

	// Physics (CapPhysics)
	Physics      *PhysicsBody
	PhysicsReady Event[*Node]
	BeginContact Event[Contact]
	EndContact   Event[Contact]
	PreSolve     Event[PreSolveContact]
	PostSolve    Event[PostSolveContact]

	// Lifecycle
	TreeEntered Event[*Node]
	TreeExiting Event[*Node]
	BecameReady Event[*Node]
	Destroyed   Event[*Node]

	// Per-node hooks (nil by default)
	OnInit    func(ctx context.Context) error
	OnReady   func()
	OnProcess func(dt float64)
	OnDraw    func(vp Viewport)
	OnInput   func(t *Touches, vp Viewport, dt float64)
	OnDestroy func()
}

func newNode(name string, caps Capability) *Node {
	n := &Node{ID: nextNodeID(), Name: name, caps: caps}
	n.Owner = n
	n.processAsRelative = true
	n.Visible = true
	n.VisibleAsRelative = true
	n.Alpha = 1
	n.AlphaAsRelative = true
	n.zAsRelative = true
	n.Scale = Vec2{1, 1}
	n.PositionAsRelative = true
	n.RotationAsRelative = true
	n.ScaleAsRelative = true
	return n
}

// NewBase creates a plain tree node with no capabilities. Scene roots and
// grouping nodes are usually base nodes.
func NewBase(name string) *Node {
	return newNode(name, 0)
}

// NewNode creates a process-capable node.
func NewNode(name string) *Node {
	return newNode(name, CapProcess)
}

// NewCanvasItem creates a process- and render-capable node without a 2D transform.
func NewCanvasItem(name string) *Node {
	return newNode(name, CapProcess|CapCanvas)
}

// NewNode2D creates a renderable node with a 2D transform.
func NewNode2D(name string) *Node {
	return newNode(name, CapProcess|CapCanvas|Cap2D)
}

// NewControl creates a 2D node that receives input from ControllersSystem.
func NewControl(name string) *Node {
	return newNode(name, CapProcess|CapCanvas|Cap2D|CapControl)
}

// NewPhysicsItem creates a process-capable node that owns a rigid body once
// added to a PhysicsSystem. Set Physics.FixtureDef.Shape before adding it.
func NewPhysicsItem(name string) *Node {
	n := newNode(name, CapProcess|CapPhysics)
	n.Physics = newPhysicsBody()
	return n
}

// Caps returns the node's capability set.
func (n *Node) Caps() Capability { return n.caps }

// Has reports whether the node has every capability in c.
func (n *Node) Has(c Capability) bool { return n.caps&c == c }

// State returns the lifecycle state.
func (n *Node) State() Lifecycle { return n.state }

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node { return n.children }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// Get returns the child with the given name, or nil.
func (n *Node) Get(name string) *Node {
	for _, c := range n.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildAs returns the named child's Owner as T.
func ChildAs[T any](n *Node, name string) (T, error) {
	var zero T
	c := n.Get(name)
	if c == nil {
		return zero, fmt.Errorf("%w: %q under %q", ErrChildNotFound, name, n.Name)
	}
	v, ok := c.Owner.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T", ErrChildType, name, c.Owner)
	}
	return v, nil
}

// --- Tree manipulation ---

// AddChild appends child to this node's children. If child already has a
// parent it is removed from that parent first. The tree is unchanged when an
// error is returned.
func (n *Node) AddChild(child *Node) error {
	if child == nil {
		return ErrNilNode
	}
	if n.state == StateDestroyed || child.state == StateDestroyed {
		return ErrDestroyed
	}
	if isAncestor(child, n) {
		return ErrCycle
	}
	if child.parent == n {
		return nil
	}
	if n.Get(child.Name) != nil {
		return fmt.Errorf("%w: %q under %q", ErrDuplicateName, child.Name, n.Name)
	}
	if child.parent != nil {
		child.parent.detach(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	child.refreshChains()
	child.enterTree()
	return nil
}

// RemoveChild detaches and returns the named child.
func (n *Node) RemoveChild(name string) (*Node, error) {
	child := n.Get(name)
	if child == nil {
		return nil, fmt.Errorf("%w: %q under %q", ErrChildNotFound, name, n.Name)
	}
	n.detach(child)
	return child, nil
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.parent != nil {
		n.parent.detach(n)
	}
}

// detach fires TreeExiting over the child's subtree, then unlinks it.
func (n *Node) detach(child *Node) {
	child.exitTree()
	n.removeChildByPtr(child)
	child.parent = nil
	child.refreshChains()
}

// enterTree fires TreeEntered on n and its subtree in pre-order and hands
// every node to the watchers of n's ancestors.
func (n *Node) enterTree() {
	ws := n.parent.ancestorWatchers()
	n.walk(func(d *Node) {
		d.TreeEntered.Emit(d)
		for _, w := range ws {
			w.nodeEntered(d)
		}
	})
}

func (n *Node) exitTree() {
	ws := n.parent.ancestorWatchers()
	n.walk(func(d *Node) {
		d.TreeExiting.Emit(d)
		for _, w := range ws {
			w.nodeExiting(d)
		}
	})
}

// ancestorWatchers collects the watchers of n and every ancestor of n.
func (n *Node) ancestorWatchers() []treeWatcher {
	var ws []treeWatcher
	for p := n; p != nil; p = p.parent {
		ws = append(ws, p.watchers...)
	}
	return ws
}

func (n *Node) addWatcher(w treeWatcher) {
	n.watchers = append(n.watchers, w)
}

func (n *Node) removeWatcher(w treeWatcher) {
	for i, x := range n.watchers {
		if x == w {
			n.watchers = append(n.watchers[:i:i], n.watchers[i+1:]...)
			return
		}
	}
}

// walk visits n and its descendants in pre-order.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

// --- Ancestor chains ---

// ChainParents walks the live parent chain and returns the ancestors that
// have capability c, nearest first.
func (n *Node) ChainParents(c Capability) []*Node {
	var out []*Node
	for p := n.parent; p != nil; p = p.parent {
		if p.Has(c) {
			out = append(out, p)
		}
	}
	return out
}

// chain returns the cached ancestor list for c. The cache is rebuilt for the
// whole subtree on every attach and detach.
func (n *Node) chain(c Capability) []*Node {
	return n.chains[c.index()]
}

func (n *Node) refreshChains() {
	for i := range n.chains {
		n.chains[i] = n.ChainParents(Capability(1) << i)
	}
	for _, c := range n.children {
		c.refreshChains()
	}
}

// --- Lifecycle ---

// Init builds the node's declared child tree, initializes the children, runs
// OnInit and then OnReady. It must run exactly once; a second call returns
// ErrAlreadyInitialized.
func (n *Node) Init(ctx context.Context) error {
	if n.state != StateUninitialized {
		return fmt.Errorf("%w: %q is %s", ErrAlreadyInitialized, n.Name, n.state)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n.state = StateInitializing
	if n.Kind != nil {
		for _, decl := range n.Kind.Tree {
			child, err := decl.Kind.Instance()
			if err != nil {
				return fmt.Errorf("init %q: %w", n.Name, err)
			}
			if decl.Name != "" {
				child.Name = decl.Name
			}
			if err := n.AddChild(child); err != nil {
				return fmt.Errorf("init %q: %w", n.Name, err)
			}
			if err := child.Init(ctx); err != nil {
				return fmt.Errorf("init %q: %w", n.Name, err)
			}
		}
	}
	if n.OnInit != nil {
		if err := n.OnInit(ctx); err != nil {
			return fmt.Errorf("init %q: %w", n.Name, err)
		}
	}
	n.state = StateReady
	if n.OnReady != nil {
		n.OnReady()
	}
	n.BecameReady.Emit(n)
	return nil
}

// Destroy tears down the children first, then detaches the node and emits
// Destroyed. Destroying twice is a no-op.
func (n *Node) Destroy() {
	if n.state == StateDestroyed {
		return
	}
	for len(n.children) > 0 {
		n.children[0].Destroy()
	}
	n.RemoveFromParent()
	n.state = StateDestroyed
	if n.OnDestroy != nil {
		n.OnDestroy()
	}
	n.Destroyed.Emit(n)
	n.watchers = nil
}

// IsDestroyed returns true if this node has been destroyed.
func (n *Node) IsDestroyed() bool {
	return n.state == StateDestroyed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node (or node itself).
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}
