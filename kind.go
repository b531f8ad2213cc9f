package sprig

import (
	"context"
	"fmt"
)

// Kind is the static declaration of a node type: how to construct one, the
// child tree every instance gets, and the assets the type needs before any
// instance may exist.
//
//	var PlayerKind = &sprig.Kind{
//		Name: "Player",
//		New:  func() *sprig.Node { return NewPlayer().Node },
//		Tree: []sprig.Child{{Name: "label", Kind: LabelKind}},
//	}
//
// Load must complete before Instance is called. Kinds are not safe for
// concurrent loading; load them from one goroutine during startup.
type Kind struct {
	Name    string
	New     func() *Node
	Tree    []Child
	Preload func(ctx context.Context) error

	loaded bool
}

// Child declares one child of a Kind's tree.
type Child struct {
	Name string
	Kind *Kind
}

// Loaded reports whether Load has completed.
func (k *Kind) Loaded() bool { return k.loaded }

// Load preloads the kinds of the declared tree, recursively, then runs the
// kind's own Preload. Kinds shared by several trees load once.
func (k *Kind) Load(ctx context.Context) error {
	return k.load(ctx, make(map[*Kind]bool))
}

func (k *Kind) load(ctx context.Context, visiting map[*Kind]bool) error {
	if k.loaded || visiting[k] {
		return nil
	}
	visiting[k] = true
	for _, c := range k.Tree {
		if c.Kind == nil {
			return fmt.Errorf("load %s: child %q has no kind", k.Name, c.Name)
		}
		if err := c.Kind.load(ctx, visiting); err != nil {
			return fmt.Errorf("load %s: %w", k.Name, err)
		}
	}
	if k.Preload != nil {
		if err := k.Preload(ctx); err != nil {
			return fmt.Errorf("load %s: %w", k.Name, err)
		}
	}
	k.loaded = true
	return nil
}

// Instance constructs an uninitialized node of this kind.
func (k *Kind) Instance() (*Node, error) {
	if !k.loaded {
		return nil, fmt.Errorf("%w: %s", ErrKindNotLoaded, k.Name)
	}
	n := k.New()
	n.Kind = k
	return n, nil
}
