// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/ManuGH/mediacapture/internal/validate"
)

var (
	logLevels      = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	exporters      = []string{"grpc", "http"}
	permissionKeys = []string{"camera", "microphone"}
	grantValues    = []string{"undetermined", "granted", "denied"}
)

// Validate checks cfg and returns a *validate.ValidationError listing every
// problem. Directory fields are created when missing.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("logLevel", cfg.LogLevel, logLevels)
	v.ListenAddr("listenAddr", cfg.ListenAddr)
	v.NotEmpty("cacheDir", cfg.CacheDir)
	if cfg.CacheDir != "" {
		v.Directory("cacheDir", cfg.CacheDir)
	}
	v.PositiveDuration("shutdownTimeout", cfg.ShutdownTimeout)

	for _, a := range slices.Sorted(maps.Keys(cfg.ContentRoots)) {
		root := cfg.ContentRoots[a]
		field := fmt.Sprintf("contentRoots.%s", a)
		if a == "" {
			v.AddError("contentRoots", "authority must not be empty", root)
			continue
		}
		if !filepath.IsAbs(root) {
			v.AddError(field, "must be an absolute path", root)
		}
	}

	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
	v.NotEmpty("ffmpeg.ffprobeBin", cfg.FFmpeg.FFprobeBin)
	v.PositiveDuration("ffmpeg.probeTimeout", cfg.FFmpeg.ProbeTimeout)
	v.PositiveDuration("ffmpeg.stopGrace", cfg.FFmpeg.StopGrace)
	v.PositiveDuration("ffmpeg.spoolRetention", cfg.FFmpeg.SpoolRetention)
	if cfg.FFmpeg.SpoolDir != "" {
		v.Directory("ffmpeg.spoolDir", cfg.FFmpeg.SpoolDir)
	}

	v.NotEmpty("permissions.file", cfg.Permissions.File)
	v.PositiveDuration("permissions.promptTimeout", cfg.Permissions.PromptTimeout)
	for _, p := range slices.Sorted(maps.Keys(cfg.Permissions.Defaults)) {
		v.OneOf("permissions.defaults", p, permissionKeys)
		v.OneOf("permissions.defaults."+p, cfg.Permissions.Defaults[p], grantValues)
	}

	v.NotEmpty("history.path", cfg.History.Path)

	if cfg.RateLimit.Requests < 0 {
		v.AddError("rateLimit.requests", "must not be negative", cfg.RateLimit.Requests)
	}
	if cfg.RateLimit.Requests > 0 {
		v.PositiveDuration("rateLimit.window", cfg.RateLimit.Window)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, exporters)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.samplingRate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}
