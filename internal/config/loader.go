// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/mediacapture/internal/log"
)

const (
	defaultListenAddr      = ":8088"
	defaultLogLevel        = "info"
	defaultLogService      = "mediacaptured"
	defaultShutdownTimeout = 15 * time.Second
	defaultProbeTimeout    = 10 * time.Second
	defaultStopGrace       = 5 * time.Second
	defaultSpoolRetention  = time.Hour
	defaultPromptTimeout   = 2 * time.Minute
	defaultRateRequests    = 30
	defaultRateWindow      = time.Minute
	defaultOTLPEndpoint    = "localhost:4317"

	stateDirName = "mediacapture"
)

// Loader builds an AppConfig from defaults, an optional YAML file and the
// environment.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every MEDIACAPTURE_ variable read while
	// loading, for startup diagnostics.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty path skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: map[string]struct{}{},
	}
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := l.defaults()

	if l.configPath != "" {
		if err := l.mergeFile(&cfg); err != nil {
			return AppConfig{}, err
		}
	}

	l.mergeEnv(&cfg)
	deriveDefaults(&cfg)
	cfg.FFmpeg.FFprobeBin = ResolveFFprobeBin(cfg.FFmpeg.FFprobeBin, cfg.FFmpeg.Bin)

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}

	logger := log.WithComponent("config")
	logger.Info().
		Str("listen", cfg.ListenAddr).
		Str("cache_dir", cfg.CacheDir).
		Str("ffmpeg", cfg.FFmpeg.Bin).
		Str("ffprobe", cfg.FFmpeg.FFprobeBin).
		Int("env_overrides", len(l.ConsumedEnvKeys)).
		Msg("configuration loaded")
	return cfg, nil
}

func (l *Loader) defaults() AppConfig {
	return AppConfig{
		Version:         l.version,
		LogLevel:        defaultLogLevel,
		LogService:      defaultLogService,
		ListenAddr:      defaultListenAddr,
		CacheDir:        os.TempDir(),
		ContentRoots:    map[string]string{},
		ShutdownTimeout: defaultShutdownTimeout,
		FFmpeg: FFmpegConfig{
			Bin:            "ffmpeg",
			ProbeTimeout:   defaultProbeTimeout,
			StopGrace:      defaultStopGrace,
			SpoolRetention: defaultSpoolRetention,
		},
		Permissions: PermissionsConfig{
			PromptTimeout: defaultPromptTimeout,
			Defaults:      map[string]string{},
		},
		RateLimit: RateLimitConfig{
			Requests: defaultRateRequests,
			Window:   defaultRateWindow,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     defaultOTLPEndpoint,
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}

// mergeFile decodes the YAML file over cfg. Keys absent from the file keep
// their default.
func (l *Loader) mergeFile(cfg *AppConfig) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return fmt.Errorf("read config %s: %w", l.configPath, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %s: %v", ErrUnknownConfigField, l.configPath, err)
		}
		return fmt.Errorf("parse config %s: %w", l.configPath, err)
	}
	return nil
}

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	if _, ok := os.LookupEnv(k); ok {
		l.ConsumedEnvKeys[k] = struct{}{}
	}
	return k
}

func (l *Loader) envString(name, cur string) string {
	return ParseString(l.key(name), cur)
}

func (l *Loader) envInt(name string, cur int) int {
	return ParseInt(l.key(name), cur)
}

func (l *Loader) envBool(name string, cur bool) bool {
	return ParseBool(l.key(name), cur)
}

func (l *Loader) envFloat(name string, cur float64) float64 {
	return ParseFloat(l.key(name), cur)
}

func (l *Loader) envDuration(name string, cur time.Duration) time.Duration {
	return ParseDuration(l.key(name), cur)
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("LOG_SERVICE", cfg.LogService)
	cfg.ListenAddr = l.envString("LISTEN", cfg.ListenAddr)
	cfg.CacheDir = l.envString("CACHE_DIR", cfg.CacheDir)
	cfg.ShutdownTimeout = l.envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.FFmpeg.Bin = l.envString("FFMPEG_BIN", cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFprobeBin = l.envString("FFPROBE_BIN", cfg.FFmpeg.FFprobeBin)
	cfg.FFmpeg.ProbeTimeout = l.envDuration("PROBE_TIMEOUT", cfg.FFmpeg.ProbeTimeout)
	cfg.FFmpeg.StopGrace = l.envDuration("STOP_GRACE", cfg.FFmpeg.StopGrace)
	cfg.FFmpeg.SpoolDir = l.envString("SPOOL_DIR", cfg.FFmpeg.SpoolDir)
	cfg.FFmpeg.SpoolRetention = l.envDuration("SPOOL_RETENTION", cfg.FFmpeg.SpoolRetention)

	cfg.Devices.Camera = l.envString("CAMERA", cfg.Devices.Camera)
	cfg.Devices.Microphone = l.envString("MICROPHONE", cfg.Devices.Microphone)
	cfg.Devices.VideoInputFormat = l.envString("VIDEO_INPUT_FORMAT", cfg.Devices.VideoInputFormat)
	cfg.Devices.AudioInputFormat = l.envString("AUDIO_INPUT_FORMAT", cfg.Devices.AudioInputFormat)

	cfg.Permissions.File = l.envString("PERMISSIONS_FILE", cfg.Permissions.File)
	cfg.Permissions.PromptTimeout = l.envDuration("PROMPT_TIMEOUT", cfg.Permissions.PromptTimeout)

	cfg.History.Path = l.envString("HISTORY_PATH", cfg.History.Path)

	cfg.RateLimit.Requests = l.envInt("RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = l.envDuration("RATE_LIMIT_WINDOW", cfg.RateLimit.Window)

	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString("TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
}

// deriveDefaults fills paths that default relative to CacheDir.
func deriveDefaults(cfg *AppConfig) {
	state := filepath.Join(cfg.CacheDir, stateDirName)
	if cfg.FFmpeg.SpoolDir == "" {
		cfg.FFmpeg.SpoolDir = filepath.Join(cfg.CacheDir, stateDirName+"-spool")
	}
	if cfg.Permissions.File == "" {
		cfg.Permissions.File = filepath.Join(state, "grants.yaml")
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(state, "history.sqlite")
	}
	if cfg.ContentRoots == nil {
		cfg.ContentRoots = map[string]string{}
	}
	if cfg.Permissions.Defaults == nil {
		cfg.Permissions.Defaults = map[string]string{}
	}
}
