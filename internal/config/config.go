// Package config provides the configuration structure for piper-web.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Defaults applied after loading for values the file leaves unset.
const (
	DefaultPort            = 5000
	DefaultBaseAdjustment  = 1.1
	DefaultTimeoutSeconds  = 60
	DefaultWorkers         = 2
	DefaultMaxAgeSeconds   = 3600
	DefaultSweepSeconds    = 600
	DefaultWhisperModel    = "whisper-1"
	DefaultVoicesDir       = "voices"
	DefaultAudioDir        = "static/audio"
	DefaultEngineBinary    = "piper"
	DefaultTranscodeBinary = "ffmpeg"
)

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PathsConfig holds the filesystem layout and collaborator binaries.
type PathsConfig struct {
	VoicesDir    string `toml:"voices_dir"`
	AudioDir     string `toml:"audio_dir"`
	BaseLogsDir  string `toml:"base_logs_dir"`
	EngineBinary string `toml:"engine_binary"`
	FFmpegBinary string `toml:"ffmpeg_binary"`
}

// SynthesisConfig holds the engine invocation parameters.
type SynthesisConfig struct {
	// BaseAdjustment is folded into every length scale to compensate
	// for the engine's perceived default pace.
	BaseAdjustment float64 `toml:"base_adjustment"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Workers        int     `toml:"workers"`
}

// CleanupConfig holds the janitor parameters.
type CleanupConfig struct {
	MaxAgeSeconds        int `toml:"max_age_seconds"`
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// STTConfig holds the optional transcription configuration. The API key
// comes from the environment, never from the file.
type STTConfig struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Paths     PathsConfig     `toml:"paths"`
	Synthesis SynthesisConfig `toml:"synthesis"`
	Cleanup   CleanupConfig   `toml:"cleanup"`
	STT       STTConfig       `toml:"stt"`
}

// Load loads the configuration for piper-web and applies defaults.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills in every zero value with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Paths.VoicesDir == "" {
		c.Paths.VoicesDir = DefaultVoicesDir
	}

	if c.Paths.AudioDir == "" {
		c.Paths.AudioDir = DefaultAudioDir
	}

	if c.Paths.EngineBinary == "" {
		c.Paths.EngineBinary = DefaultEngineBinary
	}

	if c.Paths.FFmpegBinary == "" {
		c.Paths.FFmpegBinary = DefaultTranscodeBinary
	}

	if c.Synthesis.BaseAdjustment == 0 {
		c.Synthesis.BaseAdjustment = DefaultBaseAdjustment
	}

	if c.Synthesis.TimeoutSeconds == 0 {
		c.Synthesis.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Synthesis.Workers == 0 {
		c.Synthesis.Workers = DefaultWorkers
	}

	if c.Cleanup.MaxAgeSeconds == 0 {
		c.Cleanup.MaxAgeSeconds = DefaultMaxAgeSeconds
	}

	if c.Cleanup.SweepIntervalSeconds == 0 {
		c.Cleanup.SweepIntervalSeconds = DefaultSweepSeconds
	}

	if c.STT.Model == "" {
		c.STT.Model = DefaultWhisperModel
	}
}
