package sprig

import (
	"cmp"
	"slices"

	"go.uber.org/zap"
)

type membership struct {
	seq    uint64
	tokens []Token
}

// System is a flat registry of the live nodes that share one capability.
// Nodes join when they enter a watched root's subtree or through Add, and
// leave on tree exit, Remove or Destroy.
//
// The item list is copy-on-write: an iteration in progress keeps the list it
// started with, so adds and removes take effect on the next pass.
type System struct {
	Name string

	cap      Capability
	items    []*Node
	members  map[*Node]*membership
	nextSeq  uint64
	roots    []*Node
	compare  func(a, b *Node) int
	unsorted bool
	log      *zap.Logger
	debug    bool

	// Added fires after a node joins; Removing fires while it is still a member.
	Added    Event[*Node]
	Removing Event[*Node]
}

func newSystem(name string, c Capability, log *zap.Logger) System {
	if log == nil {
		log = zap.NewNop()
	}
	return System{
		Name:    name,
		cap:     c,
		members: make(map[*Node]*membership),
		log:     log.Named(name),
	}
}

// SetDebug enables tree-shape warnings for nodes joining the system.
func (s *System) SetDebug(on bool) { s.debug = on }

// Len returns the number of members.
func (s *System) Len() int { return len(s.items) }

// Has reports whether n is a member.
func (s *System) Has(n *Node) bool { return s.members[n] != nil }

// Items returns the members in the system's current order. The returned
// slice MUST NOT be mutated by the caller.
func (s *System) Items() []*Node { return s.sorted() }

// Add registers n directly. Returns false if n lacks the capability, is
// destroyed or is already a member.
func (s *System) Add(n *Node) bool {
	if n == nil || !n.Has(s.cap) || n.IsDestroyed() || s.members[n] != nil {
		return false
	}
	s.nextSeq++
	m := &membership{seq: s.nextSeq}
	m.tokens = append(m.tokens, n.Destroyed.On(func(*Node) { s.Remove(n) }, 0))
	s.members[n] = m
	items := make([]*Node, len(s.items), len(s.items)+1)
	copy(items, s.items)
	s.items = append(items, n)
	s.unsorted = true
	s.Added.Emit(n)
	return true
}

// Remove unregisters n. Returns false if n was not a member.
func (s *System) Remove(n *Node) bool {
	m := s.members[n]
	if m == nil {
		return false
	}
	s.Removing.Emit(n)
	for _, t := range m.tokens {
		t.Off()
	}
	delete(s.members, n)
	i := slices.Index(s.items, n)
	items := make([]*Node, 0, len(s.items)-1)
	items = append(items, s.items[:i]...)
	s.items = append(items, s.items[i+1:]...)
	return true
}

// AddRoot watches root: every node with the capability in its subtree joins
// now, and later arrivals join as they enter the tree.
func (s *System) AddRoot(root *Node) {
	if slices.Contains(s.roots, root) {
		return
	}
	s.roots = append(s.roots, root)
	root.addWatcher(s)
	root.walk(s.nodeEntered)
}

// RemoveRoot stops watching root and removes its subtree's nodes.
func (s *System) RemoveRoot(root *Node) {
	i := slices.Index(s.roots, root)
	if i < 0 {
		return
	}
	s.roots = slices.Delete(s.roots, i, i+1)
	root.removeWatcher(s)
	root.walk(s.nodeExiting)
}

// track ties t to n's membership so it is detached when n leaves.
func (s *System) track(n *Node, t Token) {
	if m := s.members[n]; m != nil {
		m.tokens = append(m.tokens, t)
		return
	}
	t.Off()
}

// markUnsorted forces a re-sort before the next pass.
func (s *System) markUnsorted(*Node) { s.unsorted = true }

func (s *System) nodeEntered(n *Node) {
	if !n.Has(s.cap) {
		return
	}
	if s.debug {
		s.debugCheck(n)
	}
	s.Add(n)
}

func (s *System) nodeExiting(n *Node) {
	s.Remove(n)
}

// sorted returns the item list, re-sorting it first if any member reported a
// change. Ties keep registration order.
func (s *System) sorted() []*Node {
	if !s.unsorted || s.compare == nil {
		return s.items
	}
	items := slices.Clone(s.items)
	slices.SortStableFunc(items, func(a, b *Node) int {
		if c := s.compare(a, b); c != 0 {
			return c
		}
		return cmp.Compare(s.members[a].seq, s.members[b].seq)
	})
	s.items = items
	s.unsorted = false
	return items
}

// isolate runs fn for one item; a panic is logged and swallowed so the
// remaining items still get their turn.
func (s *System) isolate(n *Node, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("item panicked",
				zap.String("stage", stage),
				zap.String("node", n.Name),
				zap.Uint32("id", n.ID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	fn()
}
