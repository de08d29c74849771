// Package config_test tests the configuration loading for piper-web.
package config_test

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/piper-web/internal/config"
)

func TestConfigUnmarshal(t *testing.T) {
	t.Parallel()

	tomlData := `
[server]
host = "127.0.0.1"
port = 5000

[paths]
voices_dir = "voices"
audio_dir = "static/audio"
base_logs_dir = "/var/log/piper-web"
engine_binary = "/usr/local/bin/piper"
ffmpeg_binary = "/usr/bin/ffmpeg"

[synthesis]
base_adjustment = 1.1
timeout_seconds = 60
workers = 2

[cleanup]
max_age_seconds = 3600
sweep_interval_seconds = 600

[stt]
enabled = true
model = "whisper-1"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "voices", cfg.Paths.VoicesDir)
	assert.Equal(t, "static/audio", cfg.Paths.AudioDir)
	assert.Equal(t, "/usr/local/bin/piper", cfg.Paths.EngineBinary)
	assert.Equal(t, "/usr/bin/ffmpeg", cfg.Paths.FFmpegBinary)
	assert.InEpsilon(t, 1.1, cfg.Synthesis.BaseAdjustment, 0.001)
	assert.Equal(t, 60, cfg.Synthesis.TimeoutSeconds)
	assert.Equal(t, 2, cfg.Synthesis.Workers)
	assert.Equal(t, 3600, cfg.Cleanup.MaxAgeSeconds)
	assert.Equal(t, 600, cfg.Cleanup.SweepIntervalSeconds)
	assert.True(t, cfg.STT.Enabled)
	assert.Equal(t, "whisper-1", cfg.STT.Model)
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	cfg.ApplyDefaults()

	assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	assert.Equal(t, config.DefaultVoicesDir, cfg.Paths.VoicesDir)
	assert.Equal(t, config.DefaultAudioDir, cfg.Paths.AudioDir)
	assert.Equal(t, config.DefaultEngineBinary, cfg.Paths.EngineBinary)
	assert.InEpsilon(t, config.DefaultBaseAdjustment, cfg.Synthesis.BaseAdjustment, 0.001)
	assert.Equal(t, config.DefaultWorkers, cfg.Synthesis.Workers)
	assert.Equal(t, config.DefaultMaxAgeSeconds, cfg.Cleanup.MaxAgeSeconds)
	assert.Equal(t, config.DefaultWhisperModel, cfg.STT.Model)
	assert.False(t, cfg.STT.Enabled)
}
