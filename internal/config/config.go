// Package config loads settings for both roles of the binary.
//
// Values are resolved with the following priority:
//  1. CLI flags (passed via Options) - highest priority
//  2. Environment variables (LIGHTCYCLES_*)
//  3. The YAML file named by --config or LIGHTCYCLES_CONFIG
//  4. Built-in defaults - lowest priority
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"gopkg.in/yaml.v3"

	"github.com/1ureka/lightcycles/internal/game"
)

// Role is the binary's mode of operation.
type Role string

const (
	RoleRelay Role = "relay"
	RolePlay  Role = "play"
)

const envPrefix = "LIGHTCYCLES_"

// Defaults.
const (
	DefaultListen        = ":8080"
	DefaultURL           = "ws://localhost:8080/ws"
	DefaultFrameInterval = time.Second / 30
	DefaultInputHold     = 150 * time.Millisecond
	DefaultStatsInterval = 10 * time.Second
)

// Config is the complete configuration.
type Config struct {
	Role Role `yaml:"-"`

	Relay  RelayConfig  `yaml:"relay"`
	Player PlayerConfig `yaml:"player"`
	ICE    ICEConfig    `yaml:"ice"`
	Game   game.Tuning  `yaml:"game"`

	Debug bool `yaml:"debug"`
}

// RelayConfig configures the relay server.
type RelayConfig struct {
	// Listen is the TCP address for HTTP and WebSocket traffic.
	Listen string `yaml:"listen"`
	// StatsInterval is the period of the traffic log line; 0 disables it.
	StatsInterval time.Duration `yaml:"statsInterval"`
}

// PlayerConfig configures the game client.
type PlayerConfig struct {
	URL  string `yaml:"url"`
	Room string `yaml:"room"`
	Name string `yaml:"name"`
	// AutoReady sends ready as soon as the room is joined.
	AutoReady bool `yaml:"autoReady"`
	// FrameInterval is the simulation and redraw period.
	FrameInterval time.Duration `yaml:"frameInterval"`
	// InputHold is how long a key press counts as held. Terminals report
	// presses, not releases.
	InputHold time.Duration `yaml:"inputHold"`
}

// ICEConfig lists the servers used to find a peer path.
type ICEConfig struct {
	STUN     []string `yaml:"stun"`
	TURN     []string `yaml:"turn"`
	TURNUser string   `yaml:"turnUser"`
	TURNPass string   `yaml:"turnPass"`
	// Loopback allows two clients on the same host to connect.
	Loopback bool `yaml:"loopback"`
}

// Options carries CLI flag values. Nil pointers and empty strings mean the
// flag was not given.
type Options struct {
	ConfigPath string
	Listen     string
	URL        string
	Room       string
	Name       string
	Ready      *bool
	Loopback   *bool
	Debug      *bool

	// Ask, if set, is used to fill a missing room or player name before
	// validation.
	Ask func(label string) string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Relay: RelayConfig{
			Listen:        DefaultListen,
			StatsInterval: DefaultStatsInterval,
		},
		Player: PlayerConfig{
			URL:           DefaultURL,
			FrameInterval: DefaultFrameInterval,
			InputHold:     DefaultInputHold,
		},
		Game: game.DefaultTuning(),
	}
}

// Load resolves the configuration for role.
func Load(role Role, opts Options) (*Config, error) {
	cfg := Default()
	cfg.Role = role

	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyOptions(opts)

	if role == RolePlay {
		if opts.Ask != nil {
			if cfg.Player.Room == "" {
				cfg.Player.Room = opts.Ask("Room ID")
			}
			if cfg.Player.Name == "" {
				cfg.Player.Name = opts.Ask("Player name")
			}
		}

		u, err := NormalizeWSURL(cfg.Player.URL)
		if err != nil {
			return nil, err
		}
		cfg.Player.URL = u
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Relay.Listen, "LISTEN")
	setString(&c.Player.URL, "URL")
	setString(&c.Player.Room, "ROOM")
	setString(&c.Player.Name, "NAME")
	setString(&c.ICE.TURNUser, "TURN_USER")
	setString(&c.ICE.TURNPass, "TURN_PASS")

	if v, ok := lookup("STUN"); ok {
		c.ICE.STUN = splitList(v)
	}
	if v, ok := lookup("TURN"); ok {
		c.ICE.TURN = splitList(v)
	}

	for name, dst := range map[string]*bool{
		"READY":    &c.Player.AutoReady,
		"LOOPBACK": &c.ICE.Loopback,
		"DEBUG":    &c.Debug,
	} {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", envPrefix, name, v, err)
		}
		*dst = b
	}
	return nil
}

func (c *Config) applyOptions(opts Options) {
	if opts.Listen != "" {
		c.Relay.Listen = opts.Listen
	}
	if opts.URL != "" {
		c.Player.URL = opts.URL
	}
	if opts.Room != "" {
		c.Player.Room = opts.Room
	}
	if opts.Name != "" {
		c.Player.Name = opts.Name
	}
	if opts.Ready != nil {
		c.Player.AutoReady = *opts.Ready
	}
	if opts.Loopback != nil {
		c.ICE.Loopback = *opts.Loopback
	}
	if opts.Debug != nil {
		c.Debug = *opts.Debug
	}
}

// Validate reports the first invalid setting for the configured role.
func (c *Config) Validate() error {
	switch c.Role {
	case RoleRelay:
		if c.Relay.Listen == "" {
			return errors.New("relay listen address is required")
		}
		if c.Relay.StatsInterval < 0 {
			return errors.New("relay statsInterval must not be negative")
		}
	case RolePlay:
		if c.Player.URL == "" {
			return errors.New("relay URL is required")
		}
		if c.Player.FrameInterval <= 0 {
			return errors.New("player frameInterval must be positive")
		}
		if c.Player.InputHold <= 0 {
			return errors.New("player inputHold must be positive")
		}
		if err := c.Game.Validate(); err != nil {
			return fmt.Errorf("game: %w", err)
		}
		if err := c.Game.CheckFrameInterval(c.Player.FrameInterval); err != nil {
			return fmt.Errorf("player: %w", err)
		}
	default:
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// ICEServers converts the ICE settings for pion. Nil means none were
// configured and the transport defaults apply.
func (c *Config) ICEServers() []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if len(c.ICE.STUN) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.ICE.STUN})
	}
	if len(c.ICE.TURN) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       c.ICE.TURN,
			Username:   c.ICE.TURNUser,
			Credential: c.ICE.TURNPass,
		})
	}
	return servers
}

// NormalizeWSURL turns a relay address into a WebSocket URL. Bare hosts and
// http(s) schemes are mapped to ws(s), and an empty path becomes /ws.
func NormalizeWSURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("relay URL is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid relay URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid relay URL %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid relay URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
