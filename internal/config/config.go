// Package config loads arena settings from defaults, an optional config file
// and ARENA_* environment variables, and reads roster files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"kaiju-arena/internal/combat"
)

// EnvPrefix is prepended to every environment override, e.g.
// ARENA_SERVER_PORT or ARENA_ARENA_MINROUNDSECONDS.
const EnvPrefix = "ARENA"

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig controls the round scheduler.
type ArenaConfig struct {
	MinRoundSeconds float64 `mapstructure:"minRoundSeconds"`
	TickSeconds     float64 `mapstructure:"tickSeconds"` // retry interval while empty
	Seed            int64   `mapstructure:"seed"`        // 0 picks one from the clock
	DefaultDamage   float64 `mapstructure:"defaultDamage"`
	RosterPath      string  `mapstructure:"rosterPath"` // empty spawns DefaultRoster
}

// TimingsConfig holds default action durations in seconds.
type TimingsConfig struct {
	Idle   float64 `mapstructure:"idle"`
	Walk   float64 `mapstructure:"walk"`
	Attack float64 `mapstructure:"attack"`
	Dodge  float64 `mapstructure:"dodge"`
	Hit    float64 `mapstructure:"hit"`
	Death  float64 `mapstructure:"death"`
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"corsOrigins"`
	FrameWidth  int      `mapstructure:"frameWidth"`
	FrameHeight int      `mapstructure:"frameHeight"`

	// Per-client limits. Reads are GET/HEAD; writes are the host operations
	// that mutate the arena (spawn, heal, revive, equip, remove).
	ReadRate   float64 `mapstructure:"readRate"`
	ReadBurst  int     `mapstructure:"readBurst"`
	WriteRate  float64 `mapstructure:"writeRate"`
	WriteBurst int     `mapstructure:"writeBurst"`
	TrustProxy bool    `mapstructure:"trustProxy"` // honour X-Forwarded-For
}

// DebugConfig controls the localhost metrics/pprof server.
type DebugConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listenAddr"`
}

// EventLogConfig controls the JSONL combat event recorder.
type EventLogConfig struct {
	Path            string `mapstructure:"path"` // empty keeps events in memory only
	EventsPerSecond int    `mapstructure:"eventsPerSecond"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Arena    ArenaConfig    `mapstructure:"arena"`
	Timings  TimingsConfig  `mapstructure:"timings"`
	Server   ServerConfig   `mapstructure:"server"`
	Debug    DebugConfig    `mapstructure:"debug"`
	EventLog EventLogConfig `mapstructure:"eventLog"`
	Log      LogConfig      `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	t := combat.DefaultTimings()

	v.SetDefault("arena.minRoundSeconds", 0.5)
	v.SetDefault("arena.tickSeconds", 0.1)
	v.SetDefault("arena.seed", 0)
	v.SetDefault("arena.defaultDamage", 10.0)
	v.SetDefault("arena.rosterPath", "")

	v.SetDefault("timings.idle", t.Idle.Seconds())
	v.SetDefault("timings.walk", t.Walk.Seconds())
	v.SetDefault("timings.attack", t.Attack.Seconds())
	v.SetDefault("timings.dodge", t.Dodge.Seconds())
	v.SetDefault("timings.hit", t.Hit.Seconds())
	v.SetDefault("timings.death", t.Death.Seconds())

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.corsOrigins", []string{"http://localhost:*", "http://127.0.0.1:*"})
	v.SetDefault("server.readRate", 20.0)
	v.SetDefault("server.readBurst", 40)
	v.SetDefault("server.writeRate", 2.0)
	v.SetDefault("server.writeBurst", 5)
	v.SetDefault("server.trustProxy", false)
	v.SetDefault("server.frameWidth", 640)
	v.SetDefault("server.frameHeight", 640)

	v.SetDefault("debug.enabled", true)
	v.SetDefault("debug.listenAddr", "127.0.0.1:6060")

	v.SetDefault("eventLog.path", "")
	v.SetDefault("eventLog.eventsPerSecond", 1000)

	v.SetDefault("log.level", "info")
}

// Default returns the configuration with no file and no environment.
func Default() AppConfig {
	v := viper.New()
	setDefaults(v)
	var cfg AppConfig
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Load reads defaults, then path (yaml, json or toml by extension) when it is
// not empty, then ARENA_* environment variables.
func Load(path string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c AppConfig) Validate() error {
	switch {
	case c.Arena.MinRoundSeconds < 0:
		return fmt.Errorf("config: arena.minRoundSeconds must not be negative")
	case c.Arena.TickSeconds < 0:
		return fmt.Errorf("config: arena.tickSeconds must not be negative")
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	case c.Server.ReadRate < 0 || c.Server.WriteRate < 0:
		return fmt.Errorf("config: server rate limits must not be negative")
	}
	return nil
}

// Timings converts the configured seconds to combat timings.
func (t TimingsConfig) Timings() combat.Timings {
	return combat.Timings{
		Idle:   seconds(t.Idle),
		Walk:   seconds(t.Walk),
		Attack: seconds(t.Attack),
		Dodge:  seconds(t.Dodge),
		Hit:    seconds(t.Hit),
		Death:  seconds(t.Death),
	}
}

// CombatConfig builds the scheduler configuration. Callers add the clock,
// sinks and logger.
func (c AppConfig) CombatConfig() combat.Config {
	seed := c.Arena.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return combat.Config{
		MinRound:      seconds(c.Arena.MinRoundSeconds),
		Tick:          seconds(c.Arena.TickSeconds),
		Timings:       c.Timings.Timings(),
		DefaultDamage: c.Arena.DefaultDamage,
		Seed:          seed,
	}
}

// Addr returns the listen address of the HTTP server.
func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
