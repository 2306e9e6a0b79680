// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediacapture/internal/validate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cache := t.TempDir()
	t.Setenv("MEDIACAPTURE_CACHE_DIR", cache)

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, ":8088", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "ffmpeg", cfg.FFmpeg.Bin)
	assert.Equal(t, "ffprobe", cfg.FFmpeg.FFprobeBin)
	assert.Equal(t, 10*time.Second, cfg.FFmpeg.ProbeTimeout)
	assert.Equal(t, 5*time.Second, cfg.FFmpeg.StopGrace)
	assert.Equal(t, 2*time.Minute, cfg.Permissions.PromptTimeout)
	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.False(t, cfg.Telemetry.Enabled)

	assert.Equal(t, filepath.Join(cache, "mediacapture-spool"), cfg.FFmpeg.SpoolDir)
	assert.Equal(t, filepath.Join(cache, "mediacapture", "grants.yaml"), cfg.Permissions.File)
	assert.Equal(t, filepath.Join(cache, "mediacapture", "history.sqlite"), cfg.History.Path)
	assert.DirExists(t, cfg.FFmpeg.SpoolDir)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	cache := t.TempDir()
	path := writeConfig(t, `
logLevel: debug
listenAddr: "127.0.0.1:9100"
cacheDir: `+cache+`
contentRoots:
  media: /srv/media
ffmpeg:
  bin: /opt/ffmpeg/bin/ffmpeg
  ffprobeBin: /opt/ffmpeg/bin/ffprobe
  stopGrace: 2s
devices:
  camera: /dev/video2
permissions:
  promptTimeout: 30s
  defaults:
    camera: granted
rateLimit:
  requests: 5
  window: 10s
`)
	t.Setenv("MEDIACAPTURE_LISTEN", ":9200")
	t.Setenv("MEDIACAPTURE_MICROPHONE", "hw:1")

	l := NewLoader(path, "test")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9200", cfg.ListenAddr, "environment beats file")
	assert.Equal(t, "/srv/media", cfg.ContentRoots["media"])
	assert.Equal(t, "/opt/ffmpeg/bin/ffprobe", cfg.FFmpeg.FFprobeBin)
	assert.Equal(t, 2*time.Second, cfg.FFmpeg.StopGrace)
	assert.Equal(t, 10*time.Second, cfg.FFmpeg.ProbeTimeout, "absent keys keep defaults")
	assert.Equal(t, "/dev/video2", cfg.Devices.Camera)
	assert.Equal(t, "hw:1", cfg.Devices.Microphone)
	assert.Equal(t, "granted", cfg.Permissions.Defaults["camera"])
	assert.Equal(t, 5, cfg.RateLimit.Requests)

	assert.Contains(t, l.ConsumedEnvKeys, "MEDIACAPTURE_LISTEN")
	assert.Contains(t, l.ConsumedEnvKeys, "MEDIACAPTURE_MICROPHONE")
	assert.NotContains(t, l.ConsumedEnvKeys, "MEDIACAPTURE_CAMERA")
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	t.Setenv("MEDIACAPTURE_CACHE_DIR", t.TempDir())
	cfg, err := NewLoader(writeConfig(t, ""), "test").Load()
	require.NoError(t, err)
	assert.Equal(t, ":8088", cfg.ListenAddr)
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	_, err := NewLoader(filepath.Join("testdata", "invalid-unknown-key.yaml"), "test").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
	assert.Contains(t, err.Error(), "unexpectedRootKey")
}

func TestLoad_InvalidTypeFails(t *testing.T) {
	_, err := NewLoader(filepath.Join("testdata", "invalid-type.yaml"), "test").Load()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownConfigField))
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_ValidationFails(t *testing.T) {
	t.Setenv("MEDIACAPTURE_CACHE_DIR", t.TempDir())
	_, err := NewLoader(filepath.Join("testdata", "invalid-validation.yaml"), "test").Load()
	require.Error(t, err)

	var verr validate.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]bool{}
	for _, e := range verr.Errors() {
		fields[e.Field] = true
	}
	for _, want := range []string{
		"logLevel",
		"listenAddr",
		"permissions.defaults",
		"permissions.defaults.camera",
		"telemetry.exporter",
		"telemetry.samplingRate",
	} {
		assert.True(t, fields[want], "missing validation error for %s", want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), "test").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_ContentRootsMustBeAbsolute(t *testing.T) {
	cfg := NewLoader("", "test").defaults()
	cfg.CacheDir = t.TempDir()
	deriveDefaults(&cfg)
	cfg.FFmpeg.FFprobeBin = "ffprobe"
	cfg.ContentRoots = map[string]string{"media": "relative/dir"}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contentRoots.media")
}

func TestValidate_RateLimitDisabled(t *testing.T) {
	cfg := NewLoader("", "test").defaults()
	cfg.CacheDir = t.TempDir()
	deriveDefaults(&cfg)
	cfg.FFmpeg.FFprobeBin = "ffprobe"
	cfg.RateLimit = RateLimitConfig{}

	assert.NoError(t, Validate(cfg))
}
