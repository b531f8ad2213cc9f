package sprig

import (
	"cmp"

	"go.uber.org/zap"
)

// --- Process attributes ---

// ProcessPriority returns the node's local process priority.
func (n *Node) ProcessPriority() int { return n.processPriority }

// SetProcessPriority sets the local process priority. Higher priorities are
// processed first.
func (n *Node) SetProcessPriority(p int) {
	if n.processPriority == p {
		return
	}
	n.processPriority = p
	n.processChanged()
}

// ProcessPriorityAsRelative reports whether the priority composes with the
// ancestors' priorities.
func (n *Node) ProcessPriorityAsRelative() bool { return n.processAsRelative }

// SetProcessPriorityAsRelative sets whether the priority composes with ancestors.
func (n *Node) SetProcessPriorityAsRelative(rel bool) {
	if n.processAsRelative == rel {
		return
	}
	n.processAsRelative = rel
	n.processChanged()
}

// GlobalProcessPriority is the local priority plus the priorities of the
// process-capable ancestors, nearest first, up to and including the first
// ancestor that is not relative.
func (n *Node) GlobalProcessPriority() int {
	acc := n.processPriority
	if !n.processAsRelative {
		return acc
	}
	for _, a := range n.chain(CapProcess) {
		acc += a.processPriority
		if !a.processAsRelative {
			break
		}
	}
	return acc
}

// processChanged notifies n and every process-capable descendant, since
// their global priority depends on n.
func (n *Node) processChanged() {
	n.walk(func(d *Node) {
		if d.Has(CapProcess) {
			d.ProcessPriorityChanged.Emit(d)
		}
	})
}

func (n *Node) process(dt float64) {
	n.PreProcess.Emit(dt)
	if n.OnProcess != nil {
		n.OnProcess(dt)
	}
	n.PostProcess.Emit(dt)
}

// --- ProcessSystem ---

// ProcessSystem ticks every process-capable member once per Update, in
// descending global process priority.
type ProcessSystem struct {
	System
}

// NewProcessSystem creates an empty ProcessSystem. A nil logger discards.
func NewProcessSystem(log *zap.Logger) *ProcessSystem {
	s := &ProcessSystem{System: newSystem("process", CapProcess, log)}
	s.compare = func(a, b *Node) int {
		return cmp.Compare(b.GlobalProcessPriority(), a.GlobalProcessPriority())
	}
	s.Added.On(func(n *Node) {
		s.track(n, n.ProcessPriorityChanged.On(s.markUnsorted, 0))
	}, 0)
	return s
}

// Update runs PreProcess, OnProcess and PostProcess for every member. A
// member that panics is logged and skipped for the rest of this tick.
func (s *ProcessSystem) Update(dt float64) {
	for _, n := range s.sorted() {
		s.isolate(n, "process", func() { n.process(dt) })
	}
}
