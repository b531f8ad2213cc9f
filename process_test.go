package sprig

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// --- Priority composition ---

func TestGlobalProcessPriority(t *testing.T) {
	grand := NewNode("grand")
	parent := NewNode("parent")
	child := NewNode("child")
	_ = grand.AddChild(parent)
	_ = parent.AddChild(child)

	grand.SetProcessPriority(100)
	grand.SetProcessPriorityAsRelative(false)
	parent.SetProcessPriority(10)
	child.SetProcessPriority(1)

	if got := child.GlobalProcessPriority(); got != 111 {
		t.Errorf("GlobalProcessPriority = %d, want 111", got)
	}
	parent.SetProcessPriorityAsRelative(false)
	if got := child.GlobalProcessPriority(); got != 11 {
		t.Errorf("after truncation = %d, want 11", got)
	}
	child.SetProcessPriorityAsRelative(false)
	if got := child.GlobalProcessPriority(); got != 1 {
		t.Errorf("non-relative child = %d, want 1", got)
	}
}

func TestProcessPrioritySkipsNonProcessAncestors(t *testing.T) {
	root := NewBase("root")
	root.processPriority = 1000
	child := NewNode("child")
	_ = root.AddChild(child)
	if got := child.GlobalProcessPriority(); got != 0 {
		t.Errorf("GlobalProcessPriority = %d, want 0", got)
	}
}

// --- ProcessSystem ---

func TestProcessSystemOrder(t *testing.T) {
	s := NewProcessSystem(nil)
	root := NewBase("root")
	s.AddRoot(root)

	var order []string
	for _, spec := range []struct {
		name string
		prio int
	}{{"low", 1}, {"high", 10}, {"mid", 5}, {"mid2", 5}} {
		n := NewNode(spec.name)
		n.SetProcessPriority(spec.prio)
		name := spec.name
		n.OnProcess = func(float64) { order = append(order, name) }
		_ = root.AddChild(n)
	}
	s.Update(0.016)

	want := []string{"high", "mid", "mid2", "low"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestProcessSystemResortsOnPriorityChange(t *testing.T) {
	s := NewProcessSystem(nil)
	a := NewNode("a")
	b := NewNode("b")
	s.Add(a)
	s.Add(b)
	if s.Items()[0] != a {
		t.Fatal("equal priorities should keep registration order")
	}
	b.SetProcessPriority(1)
	if s.Items()[0] != b {
		t.Error("raising b's priority should move it first")
	}
}

func TestProcessSystemParentPriorityChangeResortsChildren(t *testing.T) {
	s := NewProcessSystem(nil)
	root := NewBase("root")
	s.AddRoot(root)
	group := NewNode("group")
	leaf := NewNode("leaf")
	other := NewNode("other")
	other.SetProcessPriority(5)
	_ = group.AddChild(leaf)
	_ = root.AddChild(group)
	_ = root.AddChild(other)

	group.SetProcessPriority(10)
	items := s.Items()
	if items[0] != group || items[1] != leaf {
		t.Errorf("items = %v, want group and leaf ahead of other", names(items))
	}
}

func TestProcessSystemPreAndPostEvents(t *testing.T) {
	s := NewProcessSystem(nil)
	n := NewNode("n")
	var got []string
	n.PreProcess.On(func(float64) { got = append(got, "pre") }, 0)
	n.OnProcess = func(float64) { got = append(got, "process") }
	n.PostProcess.On(func(float64) { got = append(got, "post") }, 0)
	s.Add(n)
	s.Update(1)
	if len(got) != 3 || got[0] != "pre" || got[1] != "process" || got[2] != "post" {
		t.Errorf("got %v", got)
	}
}

func TestProcessSystemIsolatesPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := NewProcessSystem(zap.New(core))
	bad := NewNode("bad")
	bad.SetProcessPriority(1)
	bad.OnProcess = func(float64) { panic("boom") }
	good := NewNode("good")
	ran := false
	good.OnProcess = func(float64) { ran = true }
	s.Add(bad)
	s.Add(good)

	s.Update(1)
	if !ran {
		t.Error("a panicking item should not stop the others")
	}
	if logs.FilterMessage("item panicked").Len() != 1 {
		t.Errorf("expected one panic log, got %d entries", logs.Len())
	}
}

// --- System membership ---

func TestSystemTracksRootSubtree(t *testing.T) {
	s := NewProcessSystem(nil)
	root := NewBase("root")
	pre := NewNode("pre")
	_ = root.AddChild(pre)
	s.AddRoot(root)
	if !s.Has(pre) {
		t.Fatal("existing subtree should join on AddRoot")
	}
	late := NewNode("late")
	_ = root.AddChild(late)
	if !s.Has(late) {
		t.Error("nodes entering the tree should join")
	}
	if s.Has(root) {
		t.Error("base root lacks CapProcess and must not join")
	}
	late.RemoveFromParent()
	if s.Has(late) {
		t.Error("nodes leaving the tree should leave the system")
	}
	pre.Destroy()
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
	s.RemoveRoot(root)
}

func TestSystemAddRejects(t *testing.T) {
	s := NewProcessSystem(nil)
	if s.Add(NewBase("plain")) {
		t.Error("node without the capability should be rejected")
	}
	n := NewNode("n")
	if !s.Add(n) || s.Add(n) {
		t.Error("second Add of the same node should be rejected")
	}
	d := NewNode("d")
	d.Destroy()
	if s.Add(d) {
		t.Error("destroyed node should be rejected")
	}
}

func TestSystemDestroyRemovesDirectMember(t *testing.T) {
	s := NewProcessSystem(nil)
	n := NewNode("n")
	removing := 0
	s.Removing.On(func(*Node) { removing++ }, 0)
	s.Add(n)
	n.Destroy()
	if s.Has(n) || removing != 1 {
		t.Errorf("Has = %v removing = %d", s.Has(n), removing)
	}
}

func TestSystemRemoveDuringUpdateDefersToNextPass(t *testing.T) {
	s := NewProcessSystem(nil)
	a := NewNode("a")
	b := NewNode("b")
	a.SetProcessPriority(1)
	ranB := 0
	a.OnProcess = func(float64) { s.Remove(b) }
	b.OnProcess = func(float64) { ranB++ }
	s.Add(a)
	s.Add(b)
	s.Update(1)
	s.Update(1)
	if ranB != 1 {
		t.Errorf("b ran %d times, want 1 (the pass in progress keeps its snapshot)", ranB)
	}
}

func names(ns []*Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Name
	}
	return out
}
