// Package config loads server settings from YAML or TOML files and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/logger"
	"github.com/mo-shahab/pong-authority/wire"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalid           = errors.New("invalid config")
)

type Config struct {
	Game   game.Config   `yaml:"game" toml:"game"`
	Server ServerConfig  `yaml:"server" toml:"server"`
	Input  InputConfig   `yaml:"input" toml:"input"`
	Log    logger.Config `yaml:"log" toml:"log"`
}

type ServerConfig struct {
	Addr               string        `yaml:"addr" toml:"addr"`
	TickInterval       time.Duration `yaml:"tick_interval" toml:"tick_interval"`
	MaxRooms           int           `yaml:"max_rooms" toml:"max_rooms"`
	WaitingRoomTimeout time.Duration `yaml:"waiting_room_timeout" toml:"waiting_room_timeout"`
	SendQueueSize      int           `yaml:"send_queue_size" toml:"send_queue_size"`
	Codec              string        `yaml:"codec" toml:"codec"`
	// StaticDir holds the browser client. Empty disables static files.
	StaticDir string `yaml:"static_dir" toml:"static_dir"`
}

type InputConfig struct {
	// ImpulseTicks is how long a press without a release is held.
	ImpulseTicks int `yaml:"impulse_ticks" toml:"impulse_ticks"`
}

func Default() Config {
	return Config{
		Game: game.DefaultConfig(),
		Server: ServerConfig{
			Addr:               ":8080",
			TickInterval:       16 * time.Millisecond,
			MaxRooms:           64,
			WaitingRoomTimeout: 2 * time.Minute,
			SendQueueSize:      32,
			Codec:              wire.JSON.Name(),
		},
		Input: InputConfig{ImpulseTicks: 6},
		Log:   logger.DefaultConfig(),
	}
}

// Load reads path (if not empty) over the defaults, applies PONG_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("%w: %s: unknown keys %v", ErrInvalid, path, undecoded)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PONG_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := lookup("PONG_STATIC_DIR"); ok {
		c.Server.StaticDir = v
	}
	if v, ok := lookup("PONG_CODEC"); ok {
		c.Server.Codec = v
	}
	if v, ok := lookup("PONG_TICK"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: PONG_TICK: %v", ErrInvalid, err)
		}
		c.Server.TickInterval = d
	}
	if v, ok := lookup("PONG_MAX_ROOMS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PONG_MAX_ROOMS: %v", ErrInvalid, err)
		}
		c.Server.MaxRooms = n
	}
	if v, ok := lookup("PONG_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("PONG_LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	if err := c.Game.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("%w: server.addr is empty", ErrInvalid))
	}
	if c.Server.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: server.tick_interval must be positive", ErrInvalid))
	}
	if c.Server.MaxRooms < 1 {
		errs = append(errs, fmt.Errorf("%w: server.max_rooms must be at least 1", ErrInvalid))
	}
	if c.Server.WaitingRoomTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: server.waiting_room_timeout must be positive", ErrInvalid))
	}
	if c.Server.SendQueueSize < 1 {
		errs = append(errs, fmt.Errorf("%w: server.send_queue_size must be at least 1", ErrInvalid))
	}
	if _, err := wire.ByName(c.Server.Codec); err != nil {
		errs = append(errs, fmt.Errorf("%w: server.codec: %v", ErrInvalid, err))
	}
	if c.Input.ImpulseTicks < 1 {
		errs = append(errs, fmt.Errorf("%w: input.impulse_ticks must be at least 1", ErrInvalid))
	}

	return errors.Join(errs...)
}
