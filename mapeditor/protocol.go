// Package mapeditor holds what the map-editor server and client share: the
// event names and payloads of the wire protocol, configuration, logging
// setup and the resource metadata store.
package mapeditor

import "github.com/phanxgames/sprig"

// Server to client events.
const (
	EventPlayersInit   = "players:init"
	EventPlayerCreate  = "player:create"
	EventPlayerDelete  = "player:delete"
	EventPlayersUpdate = "players:update"

	EventTextsInit  = "texts:init"
	EventTextCreate = "text:create"
	EventTextDelete = "text:delete"

	EventBulletsInit   = "bullets:init"
	EventBulletCreate  = "bullet:create"
	EventBulletDelete  = "bullet:delete"
	EventBulletsUpdate = "bullets:update"

	EventMapInit      = "map:init"
	EventResourceList = "resources:init"
	EventResourceData = "resource:data"
	EventVibrate      = "api:vibrate"
)

// Client to server events.
const (
	EventSessionInit   = "session:init"
	EventPlayerEdit    = "player:edit"
	EventActionText    = "action:text"
	EventControlMove   = "control:move"
	EventControlShoot  = "control:shoot"
	EventResourcesList = "resources:list"
	EventResourceLoad  = "resource:load"
)

// PixelDensity is the number of world pixels per physics metre.
const PixelDensity = 30

// PlayerData is the replicated state of a player. Positions are in pixels.
type PlayerData struct {
	ID       string     `msgpack:"id"`
	Username string     `msgpack:"username"`
	Color    string     `msgpack:"color"`
	Team     int        `msgpack:"team"`
	HP       float64    `msgpack:"hp"`
	Rotation float64    `msgpack:"rotation"`
	Position sprig.Vec2 `msgpack:"position"`
	Velocity sprig.Vec2 `msgpack:"velocity"`
	Size     sprig.Vec2 `msgpack:"size"`
}

func (d PlayerData) Identity() string { return d.ID }

// TextData is a floating chat message.
type TextData struct {
	ID       string     `msgpack:"id"`
	Author   string     `msgpack:"author"`
	Text     string     `msgpack:"text"`
	Rotation float64    `msgpack:"rotation"`
	Position sprig.Vec2 `msgpack:"position"`
}

func (d TextData) Identity() string { return d.ID }

// BulletData is the replicated state of a bullet.
type BulletData struct {
	ID        string     `msgpack:"id"`
	ShooterID string     `msgpack:"shooter_id"`
	Radius    float64    `msgpack:"radius"`
	Damage    float64    `msgpack:"damage"`
	Rotation  float64    `msgpack:"rotation"`
	Position  sprig.Vec2 `msgpack:"position"`
	Velocity  sprig.Vec2 `msgpack:"velocity"`
}

func (d BulletData) Identity() string { return d.ID }

// ResourceMetadata describes a file the server can hand out.
type ResourceMetadata struct {
	ID       string `msgpack:"id" yaml:"id"`
	MimeType string `msgpack:"type" yaml:"type"`
	Name     string `msgpack:"name" yaml:"name"`
	Size     int64  `msgpack:"size" yaml:"size"`
}

// MapData is sent once per session after the entity snapshots.
type MapData struct {
	Version   string             `msgpack:"version"`
	Resources []ResourceMetadata `msgpack:"resources"`
}

// ResourcePayload answers resource:load.
type ResourcePayload struct {
	Metadata ResourceMetadata `msgpack:"metadata"`
	Data     []byte           `msgpack:"data"`
}

// SessionInit is the client handshake. The server places the player.
type SessionInit struct {
	Username string `msgpack:"username"`
	Color    string `msgpack:"color"`
}

// PlayerEdit is a partial update of a player; nil fields are left alone.
type PlayerEdit struct {
	ID       string      `msgpack:"id"`
	Color    *string     `msgpack:"color,omitempty"`
	Rotation *float64    `msgpack:"rotation,omitempty"`
	Position *sprig.Vec2 `msgpack:"position,omitempty"`
	Size     *sprig.Vec2 `msgpack:"size,omitempty"`
}

// ActionText asks the server to place a message at the sender.
type ActionText struct {
	Text string `msgpack:"text"`
}

// ControlMove is the movement input: a direction in radians and a strength
// in [0, 1].
type ControlMove struct {
	Angle float64 `msgpack:"angle"`
	Value float64 `msgpack:"value"`
}

// Shoot fires a bullet from the sender in the given direction.
type Shoot struct {
	Angle float64 `msgpack:"angle"`
}

// ResourceLoad requests a resource by id.
type ResourceLoad struct {
	ID string `msgpack:"id"`
}
