package mapeditor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/netsync"
)

// LogConfig selects the logger built by NewLogger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ServerConfig configures the map-editor server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// Path is the websocket endpoint.
	Path string `yaml:"path"`
	TPS  int    `yaml:"tps"`

	MaxPlayers int `yaml:"max_players"`
	MaxBullets int `yaml:"max_bullets"`
	MaxTexts   int `yaml:"max_texts"`

	// TextLifetime and BulletLifetime bound how long those entities live.
	TextLifetime   time.Duration `yaml:"text_lifetime"`
	BulletLifetime time.Duration `yaml:"bullet_lifetime"`
	BulletSpeed    float64       `yaml:"bullet_speed"`
	BulletDamage   float64       `yaml:"bullet_damage"`
	// SpawnRadius is the half-size, in pixels, of the square players spawn in.
	SpawnRadius float64 `yaml:"spawn_radius"`

	// ResourceDir holds the resource files; metadata lives in its metadata/
	// subdirectory.
	ResourceDir string `yaml:"resource_dir"`
	MapVersion  string `yaml:"map_version"`

	Net netsync.Config `yaml:"net"`
	Log LogConfig      `yaml:"log"`
}

// DefaultServerConfig returns the values a config file overrides.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen:         ":5000",
		Path:           "/ws",
		TPS:            sprig.DefaultTPS,
		MaxPlayers:     10,
		MaxBullets:     30,
		MaxTexts:       20,
		TextLifetime:   3 * time.Second,
		BulletLifetime: 30 * time.Second,
		BulletSpeed:    15,
		BulletDamage:   10,
		SpawnRadius:    500,
		ResourceDir:    "assets/img",
		MapVersion:     "v1.0.0",
		Log:            LogConfig{Level: "info"},
	}
}

// Validate reports the first invalid setting.
func (c ServerConfig) Validate() error {
	switch {
	case c.Listen == "":
		return errors.New("listen address is required")
	case c.Path == "" || c.Path[0] != '/':
		return fmt.Errorf("path %q must start with /", c.Path)
	case c.TPS <= 0:
		return fmt.Errorf("tps must be positive, got %d", c.TPS)
	case c.MaxPlayers <= 0:
		return fmt.Errorf("max_players must be positive, got %d", c.MaxPlayers)
	case c.TextLifetime <= 0 || c.BulletLifetime <= 0:
		return errors.New("lifetimes must be positive")
	}
	return validateLevel(c.Log.Level)
}

// ClientConfig configures the map-editor client.
type ClientConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Color    string `yaml:"color"`

	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	Debug  bool `yaml:"debug"`
	// ShowSystemInfo draws the FPS/TPS overlay.
	ShowSystemInfo bool `yaml:"show_system_info"`
	// Interpolation is how long remote entities take to glide to a new
	// snapshot position.
	Interpolation time.Duration `yaml:"interpolation"`

	Net netsync.Config `yaml:"net"`
	Log LogConfig      `yaml:"log"`
}

// DefaultClientConfig returns the values a config file overrides.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URL:            "ws://localhost:5000/ws",
		Username:       "player",
		Color:          "#88ccff",
		Width:          800,
		Height:         600,
		ShowSystemInfo: true,
		Interpolation:  100 * time.Millisecond,
		Log:            LogConfig{Level: "info", Development: true},
	}
}

// Validate reports the first invalid setting.
func (c ClientConfig) Validate() error {
	switch {
	case c.URL == "":
		return errors.New("url is required")
	case c.Username == "":
		return errors.New("username is required")
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("window size %dx%d is invalid", c.Width, c.Height)
	case c.Interpolation < 0:
		return errors.New("interpolation cannot be negative")
	}
	return validateLevel(c.Log.Level)
}

// LoadServerConfig reads a YAML file over the defaults. An empty path
// returns the defaults.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadClientConfig reads a YAML file over the defaults. An empty path
// returns the defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func loadYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return decodeYAML(b, out)
}

func decodeYAML(b []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
