package sprig

import (
	"math"

	"github.com/ByteArena/box2d"
	"go.uber.org/zap"
)

// PhysicsBody holds a physics item's body and fixture templates and, while
// the item is registered with a PhysicsSystem, the live body and fixture.
type PhysicsBody struct {
	BodyDef    box2d.B2BodyDef
	FixtureDef box2d.B2FixtureDef

	Body    *box2d.B2Body
	Fixture *box2d.B2Fixture
}

func newPhysicsBody() *PhysicsBody {
	p := &PhysicsBody{
		BodyDef:    box2d.MakeB2BodyDef(),
		FixtureDef: box2d.MakeB2FixtureDef(),
	}
	p.BodyDef.Type = box2d.B2BodyType.B2_dynamicBody
	p.FixtureDef.Density = 1
	p.FixtureDef.Friction = 0.2
	p.FixtureDef.Restitution = 0.2
	return p
}

// Live reports whether the body exists.
func (p *PhysicsBody) Live() bool { return p != nil && p.Body != nil }

// Position returns the body position, or the template position before the
// body exists.
func (p *PhysicsBody) Position() Vec2 {
	if p.Body != nil {
		v := p.Body.GetPosition()
		return Vec2{v.X, v.Y}
	}
	return Vec2{p.BodyDef.Position.X, p.BodyDef.Position.Y}
}

// SetPosition teleports the body, or sets the template position before the
// body exists.
func (p *PhysicsBody) SetPosition(pos Vec2) {
	v := box2d.MakeB2Vec2(pos.X, pos.Y)
	if p.Body != nil {
		p.Body.SetTransform(v, p.Body.GetAngle())
		return
	}
	p.BodyDef.Position = v
}

// Velocity returns the linear velocity.
func (p *PhysicsBody) Velocity() Vec2 {
	if p.Body != nil {
		v := p.Body.GetLinearVelocity()
		return Vec2{v.X, v.Y}
	}
	return Vec2{p.BodyDef.LinearVelocity.X, p.BodyDef.LinearVelocity.Y}
}

// SetVelocity sets the linear velocity.
func (p *PhysicsBody) SetVelocity(vel Vec2) {
	v := box2d.MakeB2Vec2(vel.X, vel.Y)
	if p.Body != nil {
		p.Body.SetLinearVelocity(v)
		return
	}
	p.BodyDef.LinearVelocity = v
}

// Angle returns the body angle in radians.
func (p *PhysicsBody) Angle() float64 {
	if p.Body != nil {
		return p.Body.GetAngle()
	}
	return p.BodyDef.Angle
}

// SetAngle rotates the body in place.
func (p *PhysicsBody) SetAngle(a float64) {
	if p.Body != nil {
		p.Body.SetTransform(p.Body.GetPosition(), a)
		return
	}
	p.BodyDef.Angle = a
}

// SetActive enables or disables the body in the simulation. Recycled items
// deactivate on eviction and reactivate in setup.
func (p *PhysicsBody) SetActive(active bool) {
	if p.Body != nil {
		p.Body.SetActive(active)
		return
	}
	p.BodyDef.Active = active
}

// --- Contacts ---

// Contact is a contact reported by the physics world.
type Contact struct {
	box2d.B2ContactInterface
}

// PreSolveContact is a contact about to be solved. Disable it with SetEnabled(false).
type PreSolveContact struct {
	Contact
	OldManifold box2d.B2Manifold
}

// PostSolveContact is a solved contact with its impulses.
type PostSolveContact struct {
	Contact
	Impulse *box2d.B2ContactImpulse
}

func fixtureNode(f *box2d.B2Fixture) *Node {
	if f == nil || f.GetBody() == nil {
		return nil
	}
	n, _ := f.GetBody().GetUserData().(*Node)
	return n
}

// NodeA returns the node owning the first fixture.
func (c Contact) NodeA() *Node { return fixtureNode(c.GetFixtureA()) }

// NodeB returns the node owning the second fixture.
func (c Contact) NodeB() *Node { return fixtureNode(c.GetFixtureB()) }

// Involves reports whether n owns one of the two fixtures.
func (c Contact) Involves(n *Node) bool {
	return n != nil && (c.NodeA() == n || c.NodeB() == n)
}

// Other returns the node touching n, or nil if n is not in the contact.
func (c Contact) Other(n *Node) *Node {
	switch a, b := c.NodeA(), c.NodeB(); n {
	case a:
		return b
	case b:
		return a
	}
	return nil
}

// --- PhysicsSystem ---

// PhysicsSystem owns a Box2D world. Members get a body and fixture built from
// their templates when they join and lose them when they leave. Contact
// callbacks are fanned out to every member; each item filters for itself.
type PhysicsSystem struct {
	System

	World              *box2d.B2World
	VelocityIterations int
	PositionIterations int

	// StepEnd fires after each step, once the world is unlocked. Body
	// creation and destruction requested from contact handlers belongs here.
	StepEnd Event[*PhysicsSystem]

	stepping bool
	doomed   []*box2d.B2Body
}

// NewPhysicsSystem creates a world with the given gravity.
func NewPhysicsSystem(gravity Vec2, log *zap.Logger) *PhysicsSystem {
	world := box2d.MakeB2World(box2d.MakeB2Vec2(gravity.X, gravity.Y))
	s := &PhysicsSystem{
		System:             newSystem("physics", CapPhysics, log),
		World:              &world,
		VelocityIterations: 8,
		PositionIterations: 3,
	}
	s.World.SetContactListener(contactFanout{s})
	s.Added.On(s.createBody, math.MaxInt)
	s.Removing.On(s.destroyBody, math.MinInt)
	return s
}

func (s *PhysicsSystem) createBody(n *Node) {
	p := n.Physics
	if p == nil {
		p = newPhysicsBody()
		n.Physics = p
	}
	def := p.BodyDef
	def.UserData = n
	p.Body = s.World.CreateBody(&def)
	if p.FixtureDef.Shape != nil {
		fd := p.FixtureDef
		p.Fixture = p.Body.CreateFixtureFromDef(&fd)
	} else {
		s.log.Warn("physics item has no shape", zap.String("node", n.Name))
	}
	n.PhysicsReady.Emit(n)
}

func (s *PhysicsSystem) destroyBody(n *Node) {
	p := n.Physics
	if p == nil || p.Body == nil {
		return
	}
	if s.stepping {
		p.Body.SetUserData(nil)
		s.doomed = append(s.doomed, p.Body)
	} else {
		s.World.DestroyBody(p.Body)
	}
	p.Body, p.Fixture = nil, nil
}

// Update steps the world by dt, clears accumulated forces and fires StepEnd.
func (s *PhysicsSystem) Update(dt float64) {
	s.stepping = true
	func() {
		defer func() { s.stepping = false }()
		s.World.Step(dt, s.VelocityIterations, s.PositionIterations)
	}()
	s.World.ClearForces()
	for _, b := range s.doomed {
		s.World.DestroyBody(b)
	}
	s.doomed = s.doomed[:0]
	s.StepEnd.emitIsolated(s, func(r any) {
		s.log.Error("step-end handler panicked", zap.Any("panic", r), zap.Stack("stack"))
	})
}

func (s *PhysicsSystem) fanout(stage string, fn func(n *Node)) {
	for _, n := range s.items {
		s.isolate(n, stage, func() { fn(n) })
	}
}

// contactFanout adapts the system to box2d's contact listener interface.
type contactFanout struct {
	s *PhysicsSystem
}

func (f contactFanout) BeginContact(c box2d.B2ContactInterface) {
	ct := Contact{c}
	f.s.fanout("begin-contact", func(n *Node) { n.BeginContact.Emit(ct) })
}

func (f contactFanout) EndContact(c box2d.B2ContactInterface) {
	ct := Contact{c}
	f.s.fanout("end-contact", func(n *Node) { n.EndContact.Emit(ct) })
}

func (f contactFanout) PreSolve(c box2d.B2ContactInterface, old box2d.B2Manifold) {
	ct := PreSolveContact{Contact: Contact{c}, OldManifold: old}
	f.s.fanout("pre-solve", func(n *Node) { n.PreSolve.Emit(ct) })
}

func (f contactFanout) PostSolve(c box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {
	ct := PostSolveContact{Contact: Contact{c}, Impulse: impulse}
	f.s.fanout("post-solve", func(n *Node) { n.PostSolve.Emit(ct) })
}
