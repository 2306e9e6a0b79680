// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"fmt"
	"os/exec"

	"github.com/ManuGH/mediacapture/internal/config"
	"github.com/ManuGH/mediacapture/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
// A missing ffmpeg or an unwritable directory is fatal; a missing ffprobe
// only disables geometry probing and is logged.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	for _, dir := range []struct{ name, path string }{
		{"cache directory", cfg.CacheDir},
		{"spool directory", cfg.FFmpeg.SpoolDir},
	} {
		if err := writable(dir.path); err != nil {
			return fmt.Errorf("%s check failed: %w", dir.name, err)
		}
		logger.Debug().Str("path", dir.path).Msg(dir.name + " is writable")
	}

	if _, err := exec.LookPath(cfg.FFmpeg.Bin); err != nil {
		return fmt.Errorf("ffmpeg binary %q not found: %w", cfg.FFmpeg.Bin, err)
	}
	if _, err := exec.LookPath(cfg.FFmpeg.FFprobeBin); err != nil {
		logger.Warn().
			Str("event", "startup.ffprobe_missing").
			Str("bin", cfg.FFmpeg.FFprobeBin).
			Msg("ffprobe not found, media format data will fall back to defaults")
	}

	logger.Info().Str("event", "startup.checks_passed").Msg("startup checks passed")
	return nil
}
