// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`
	ListenAddr string `yaml:"listenAddr"`
	// CacheDir is the parent of the namespaced capture directory.
	CacheDir string `yaml:"cacheDir"`
	// ContentRoots maps content:// authorities to local directories.
	ContentRoots    map[string]string `yaml:"contentRoots"`
	ShutdownTimeout time.Duration     `yaml:"shutdownTimeout"`

	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Devices     DevicesConfig     `yaml:"devices"`
	Permissions PermissionsConfig `yaml:"permissions"`
	History     HistoryConfig     `yaml:"history"`
	RateLimit   RateLimitConfig   `yaml:"rateLimit"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// FFmpegConfig configures the capture and probe binaries.
type FFmpegConfig struct {
	Bin            string        `yaml:"bin"`
	FFprobeBin     string        `yaml:"ffprobeBin"`
	ProbeTimeout   time.Duration `yaml:"probeTimeout"`
	StopGrace      time.Duration `yaml:"stopGrace"`
	SpoolDir       string        `yaml:"spoolDir"`
	SpoolRetention time.Duration `yaml:"spoolRetention"`
}

// DevicesConfig names the capture inputs.
type DevicesConfig struct {
	Camera           string `yaml:"camera"`
	Microphone       string `yaml:"microphone"`
	VideoInputFormat string `yaml:"videoInputFormat"`
	AudioInputFormat string `yaml:"audioInputFormat"`
}

// PermissionsConfig configures the grant store and prompts.
type PermissionsConfig struct {
	File          string            `yaml:"file"`
	PromptTimeout time.Duration     `yaml:"promptTimeout"`
	Defaults      map[string]string `yaml:"defaults"`
}

// HistoryConfig configures the session ledger.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// RateLimitConfig bounds capture requests per client. Zero requests
// disables limiting.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}
