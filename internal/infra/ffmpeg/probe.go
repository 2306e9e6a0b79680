// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/media"
)

const defaultProbeTimeout = 10 * time.Second

// Prober implements media.MediaProber using ffprobe.
type Prober struct {
	bin     string
	timeout time.Duration
	logger  zerolog.Logger
}

var _ media.MediaProber = (*Prober)(nil)

// NewProber creates a Prober. An empty bin means "ffprobe" on PATH.
func NewProber(bin string, timeout time.Duration) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Prober{bin: bin, timeout: timeout, logger: xglog.WithComponent("ffprobe")}
}

// Open runs ffprobe against path and returns a handle on the result.
// The probe context lives until the handle is closed.
func (p *Prober) Open(ctx context.Context, path string) (media.MediaHandle, error) {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	// #nosec G204 -- ffprobe is configured; path is passed as a single argument
	cmd := exec.CommandContext(pctx, p.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	info, parseErr := parseProbe(out)
	switch {
	case parseErr == nil && err != nil:
		// Usable JSON despite a non-zero exit (trailing garbage, partial file).
		logger := xglog.WithContext(ctx, p.logger)
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "ffprobe.nonzero_exit").
			Str(xglog.FieldPath, path).
			Str("stderr", truncate(stderr.String(), maxStderrInError)).
			Msg("ffprobe non-zero exit but JSON accepted")
	case err != nil:
		cancel()
		return nil, fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, truncate(stderr.String(), maxStderrInError))
	case parseErr != nil:
		cancel()
		return nil, parseErr
	}
	return &probeHandle{info: info, cancel: cancel}, nil
}

type probeInfo struct {
	durationMillis int64
	width, height  int
}

type probeHandle struct {
	info   probeInfo
	once   sync.Once
	cancel context.CancelFunc
}

func (h *probeHandle) DurationMillis() int64 {
	return h.info.durationMillis
}

func (h *probeHandle) VideoSize() (int, int) {
	return h.info.width, h.info.height
}

// Close releases the probe context. Safe to call more than once.
func (h *probeHandle) Close() error {
	h.once.Do(h.cancel)
	return nil
}

type probeData struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width,omitempty"`
		Height    int    `json:"height,omitempty"`
		Duration  string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// parseProbe extracts duration and first-video-stream geometry from
// ffprobe JSON. It needs a format name and at least one audio or video
// stream with a codec.
func parseProbe(out []byte) (probeInfo, error) {
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return probeInfo{}, fmt.Errorf("json decode: %w", err)
	}
	if data.Format.FormatName == "" {
		return probeInfo{}, errors.New("ffprobe returned no format")
	}

	var info probeInfo
	playable := false
	streamDuration := ""
	videoSeen := false
	for _, s := range data.Streams {
		if s.CodecName == "" {
			continue
		}
		switch s.CodecType {
		case "video":
			playable = true
			if !videoSeen {
				videoSeen = true
				info.width, info.height = s.Width, s.Height
				streamDuration = s.Duration
			}
		case "audio":
			playable = true
			if streamDuration == "" {
				streamDuration = s.Duration
			}
		}
	}
	if !playable {
		return probeInfo{}, errors.New("ffprobe returned empty data (no playable streams)")
	}

	dur := data.Format.Duration
	if dur == "" {
		dur = streamDuration
	}
	if dur != "" {
		if secs, err := strconv.ParseFloat(dur, 64); err == nil && secs > 0 {
			info.durationMillis = int64(secs * 1000)
		}
	}
	return info, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
