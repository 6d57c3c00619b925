package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Player PlayerConfig `mapstructure:"player"`
	UI     UIConfig     `mapstructure:"ui"`
	Remote RemoteConfig `mapstructure:"remote"`
	Device DeviceConfig `mapstructure:"device"`
	Book   BookConfig   `mapstructure:"book"`
	Log    LogConfig    `mapstructure:"log"`
}

// PlayerConfig contains playback engine settings
type PlayerConfig struct {
	Engine       string    `mapstructure:"engine"` // mpv or beep
	Mode         string    `mapstructure:"mode"`   // local or remote
	AssetsDir    string    `mapstructure:"assets_dir"`
	Rates        []float64 `mapstructure:"rates"`
	SkipForward  float64   `mapstructure:"skip_forward"`  // in seconds
	SkipBackward float64   `mapstructure:"skip_backward"` // in seconds
	TickInterval int       `mapstructure:"tick_interval"` // in milliseconds
	EndTolerance float64   `mapstructure:"end_tolerance"` // in seconds
}

// UIConfig contains user interface settings
type UIConfig struct {
	ProgressBarWidth int `mapstructure:"progress_bar_width"`
}

// RemoteConfig contains MPRIS remote control settings
type RemoteConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`
}

// DeviceConfig contains audio output session settings
type DeviceConfig struct {
	Monitor       bool `mapstructure:"monitor"`
	CheckInterval int  `mapstructure:"check_interval"` // in milliseconds
}

// BookConfig points at the book to play; empty means the bundled mock book
type BookConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig controls where log output goes
type LogConfig struct {
	File string `mapstructure:"file"`
}

const (
	EngineMPV  = "mpv"
	EngineBeep = "beep"

	ModeLocal  = "local"
	ModeRemote = "remote"
)

// GetTickInterval returns the time notification interval as a time.Duration
func (p *PlayerConfig) GetTickInterval() time.Duration {
	return time.Duration(p.TickInterval) * time.Millisecond
}

// GetCheckInterval returns the device polling interval as a time.Duration
func (d *DeviceConfig) GetCheckInterval() time.Duration {
	return time.Duration(d.CheckInterval) * time.Millisecond
}

// Validate checks that enumerated settings hold known values
func (c *Config) Validate() error {
	switch c.Player.Engine {
	case EngineMPV, EngineBeep:
	default:
		return fmt.Errorf("unknown player.engine %q", c.Player.Engine)
	}
	switch c.Player.Mode {
	case ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("unknown player.mode %q", c.Player.Mode)
	}
	if len(c.Player.Rates) == 0 {
		return fmt.Errorf("player.rates must not be empty")
	}
	for _, r := range c.Player.Rates {
		if r <= 0 {
			return fmt.Errorf("player.rates contains non-positive rate %v", r)
		}
	}
	if c.Player.TickInterval <= 0 {
		return fmt.Errorf("player.tick_interval must be positive")
	}
	if c.Player.EndTolerance < 0 {
		return fmt.Errorf("player.end_tolerance must not be negative")
	}
	return nil
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Engine:       EngineMPV,
			Mode:         ModeLocal,
			AssetsDir:    "assets",
			Rates:        []float64{0.5, 1, 1.25, 1.5, 2},
			SkipForward:  10,
			SkipBackward: 5,
			TickInterval: 1000,
			EndTolerance: 0.5,
		},
		UI: UIConfig{
			ProgressBarWidth: 30,
		},
		Remote: RemoteConfig{
			Enabled: true,
			Name:    "nibble",
		},
		Device: DeviceConfig{
			Monitor:       true,
			CheckInterval: 500,
		},
	}
}
