package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/lightcycles/internal/game"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lightcycles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Load(RolePlay, Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, cfg.Player.URL)
	assert.Equal(t, game.DefaultTuning(), cfg.Game)
	assert.False(t, cfg.Player.AutoReady)
	assert.Nil(t, cfg.ICEServers())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
relay:
  listen: ":9000"
player:
  url: "https://arena.example.com"
  room: grid
  frameInterval: 20ms
ice:
  stun: ["stun:stun.example.com:3478"]
  turn: ["turn:turn.example.com:3478"]
  turnUser: flynn
  turnPass: encom
game:
  trailMax: 800
  updateInterval: 100ms
`)

	cfg, err := Load(RolePlay, Options{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Relay.Listen)
	assert.Equal(t, "wss://arena.example.com/ws", cfg.Player.URL)
	assert.Equal(t, "grid", cfg.Player.Room)
	assert.Equal(t, 20*time.Millisecond, cfg.Player.FrameInterval)
	assert.Equal(t, DefaultInputHold, cfg.Player.InputHold)

	// Unset tuning keys keep their defaults.
	assert.Equal(t, 800, cfg.Game.TrailMax)
	assert.Equal(t, 100*time.Millisecond, cfg.Game.UpdateInterval)
	assert.Equal(t, 50.0, cfg.Game.MaxSpeed)

	servers := cfg.ICEServers()
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, servers[0].URLs)
	assert.Equal(t, "flynn", servers[1].Username)
	assert.Equal(t, "encom", servers[1].Credential)
}

func TestPriority(t *testing.T) {
	path := writeConfig(t, `
player:
  room: from-file
  name: from-file
  url: file.example.com
`)
	t.Setenv("LIGHTCYCLES_CONFIG", path)
	t.Setenv("LIGHTCYCLES_NAME", "from-env")
	t.Setenv("LIGHTCYCLES_URL", "env.example.com:7000")
	t.Setenv("LIGHTCYCLES_READY", "true")
	t.Setenv("LIGHTCYCLES_STUN", "stun:a:1, stun:b:2")

	notReady := false
	cfg, err := Load(RolePlay, Options{URL: "ws://flag.example.com/play", Ready: &notReady})
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Player.Room)
	assert.Equal(t, "from-env", cfg.Player.Name)
	assert.Equal(t, "ws://flag.example.com/play", cfg.Player.URL)
	assert.False(t, cfg.Player.AutoReady)
	assert.Equal(t, []string{"stun:a:1", "stun:b:2"}, cfg.ICE.STUN)
}

func TestAskFillsMissingIdentity(t *testing.T) {
	t.Setenv("LIGHTCYCLES_NAME", "from-env")

	var asked []string
	cfg, err := Load(RolePlay, Options{Ask: func(label string) string {
		asked = append(asked, label)
		return "typed"
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Room ID"}, asked)
	assert.Equal(t, "typed", cfg.Player.Room)
	assert.Equal(t, "from-env", cfg.Player.Name)
}

func TestInvalidEnvBool(t *testing.T) {
	t.Setenv("LIGHTCYCLES_DEBUG", "sometimes")
	_, err := Load(RoleRelay, Options{})
	assert.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(RoleRelay, Options{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no listen", func(c *Config) { c.Role = RoleRelay; c.Relay.Listen = "" }},
		{"unknown role", func(c *Config) { c.Role = "spectate" }},
		{"zero frame interval", func(c *Config) { c.Role = RolePlay; c.Player.FrameInterval = 0 }},
		{"bad tuning", func(c *Config) { c.Role = RolePlay; c.Game.MaxSpeed = 0 }},
		{"frame interval packs own trail", func(c *Config) { c.Role = RolePlay; c.Player.FrameInterval = 10 * time.Millisecond }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNormalizeWSURL(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"localhost:8080", "ws://localhost:8080/ws"},
		{"ws://localhost:8080/ws", "ws://localhost:8080/ws"},
		{"http://relay.local", "ws://relay.local/ws"},
		{"https://relay.example.com/", "wss://relay.example.com/ws"},
		{"wss://relay.example.com/custom", "wss://relay.example.com/custom"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeWSURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "ftp://relay", "ws://"} {
		_, err := NormalizeWSURL(bad)
		assert.Error(t, err, bad)
	}
}
