package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-shahab/pong-authority/game"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, game.DefaultConfig(), cfg.Game)
	assert.Equal(t, 16*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, "json", cfg.Server.Codec)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "pong.yaml", `
game:
  field_width: 640
  win_score: 11
  serve:
    random_vertical: true
    seed: 7
server:
  addr: ":9000"
  tick_interval: 20ms
  codec: proto
input:
  impulse_ticks: 4
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 640.0, cfg.Game.FieldWidth)
	assert.Equal(t, 400.0, cfg.Game.FieldHeight, "unset keys keep defaults")
	assert.Equal(t, 11, cfg.Game.WinScore)
	assert.Equal(t, game.ServeConfig{RandomVertical: true, Seed: 7}, cfg.Game.Serve)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 20*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, "proto", cfg.Server.Codec)
	assert.Equal(t, 4, cfg.Input.ImpulseTicks)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "pong.toml", `
[game]
ball_speed = 8.0

[server]
max_rooms = 3
waiting_room_timeout = "30s"
codec = "msgpack"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8.0, cfg.Game.BallSpeed)
	assert.Equal(t, 3, cfg.Server.MaxRooms)
	assert.Equal(t, 30*time.Second, cfg.Server.WaitingRoomTimeout)
	assert.Equal(t, "msgpack", cfg.Server.Codec)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "pong.yaml", "server:\n  adress: \":1\"\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeFile(t, "pong.toml", "[server]\nadress = \":1\"\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(writeFile(t, "pong.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PONG_ADDR", "127.0.0.1:7000")
	t.Setenv("PONG_CODEC", "msgpack")
	t.Setenv("PONG_TICK", "33ms")
	t.Setenv("PONG_LOG_LEVEL", "warn")
	t.Setenv("PONG_LOG_FORMAT", "console")

	cfg, err := Load(writeFile(t, "pong.yaml", "server:\n  addr: \":9000\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, "msgpack", cfg.Server.Codec)
	assert.Equal(t, 33*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestEnvOverrideBadTick(t *testing.T) {
	t.Setenv("PONG_TICK", "fast")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Codec = "xml"
	cfg.Server.TickInterval = 0
	cfg.Input.ImpulseTicks = 0
	cfg.Game.BallSpeed = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, game.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "server.codec")
	assert.Contains(t, err.Error(), "server.tick_interval")
	assert.Contains(t, err.Error(), "input.impulse_ticks")
}

func TestLoadRejectsNonFiniteGeometry(t *testing.T) {
	_, err := Load(writeFile(t, "pong.yaml", "game:\n  paddle_height: .nan\n"))
	assert.ErrorIs(t, err, game.ErrInvalidConfig)

	_, err = Load(writeFile(t, "pong.yaml", "game:\n  ball_speed: .inf\n"))
	assert.ErrorIs(t, err, game.ErrInvalidConfig)
}
