// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveFFprobeBin picks the ffprobe binary: an explicit setting wins,
// then a sibling of a concrete ffmpeg path, then "ffprobe" on PATH.
func ResolveFFprobeBin(ffprobeBin, ffmpegBin string) string {
	return resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin, os.Stat)
}

func resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin string, stat func(string) (os.FileInfo, error)) string {
	if ffprobeBin = strings.TrimSpace(ffprobeBin); ffprobeBin != "" {
		return ffprobeBin
	}
	ffmpegBin = strings.TrimSpace(ffmpegBin)
	// A bare "ffmpeg" is resolved through PATH; do not guess a sibling.
	if !strings.ContainsRune(ffmpegBin, '/') || filepath.Base(ffmpegBin) != "ffmpeg" {
		return "ffprobe"
	}
	candidate := filepath.Join(filepath.Dir(ffmpegBin), "ffprobe")
	if fi, err := stat(candidate); err == nil && !fi.IsDir() {
		return candidate
	}
	return "ffprobe"
}
