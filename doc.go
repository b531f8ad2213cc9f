// Package sprig is a node-based 2D runtime shared by a game server and its
// clients.
//
// A scene is a tree of [Node] values. Every node is the same struct; its
// [Capability] set decides which systems it takes part in:
//
//   - [CapProcess]: ticked by [ProcessSystem] in descending priority
//   - [CapCanvas]: drawn by [RenderSystem] in ascending z-index
//   - [Cap2D]: position, rotation and scale composed through the tree
//   - [CapControl]: receives pointer events from [ControllersSystem]
//   - [CapPhysics]: owns a Box2D body in [PhysicsSystem]
//
// Capability attributes are relative by default: a node's global z-index,
// alpha, priority and transform compose with its ancestors until an ancestor
// opts out with an AsRelative flag.
//
// # Quick start
//
// [App] wires a root, a [MainLoop] and the systems together:
//
//	app := sprig.NewApp(sprig.Options{TPS: 30, Physics: true})
//	defer app.Close()
//
//	hero := sprig.NewNode2D("hero")
//	hero.OnProcess = func(dt float64) { hero.Position.X += 60 * dt }
//	if err := app.Root.AddChild(hero); err != nil {
//		return err
//	}
//	app.Loop.Start()
//
// Servers start the loop; clients whose renderer owns the frame clock call
// [App.Step] and [App.Draw] from their update and draw callbacks instead.
//
// # Events
//
// [Event] is a typed, priority-ordered publish/subscribe channel and
// [Dispatcher] its name-keyed counterpart. Handlers with equal priority run
// in registration order.
//
// # Replication
//
// [Container] keeps a bounded pool of live entities reconciled by identity
// against snapshots. When full, creating a new identity recycles the oldest
// slot instead of allocating.
//
// Rendering backends implement [Canvas]; package sprig/ebitenview is the
// Ebitengine one and [MatrixCanvas] a headless one for servers and tests.
package sprig
