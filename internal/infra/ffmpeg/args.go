// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/ManuGH/mediacapture/internal/capture"
)

// Devices names the capture inputs and their ffmpeg demuxers.
type Devices struct {
	Camera           string
	Microphone       string
	VideoInputFormat string
	AudioInputFormat string
}

func (d Devices) withDefaults() Devices {
	if d.Camera == "" {
		d.Camera = "/dev/video0"
	}
	if d.Microphone == "" {
		d.Microphone = "default"
	}
	if d.VideoInputFormat == "" {
		d.VideoInputFormat = "v4l2"
	}
	if d.AudioInputFormat == "" {
		d.AudioInputFormat = "alsa"
	}
	return d
}

// forKind returns the devices a capture kind occupies.
func (d Devices) forKind(k capture.Kind) []string {
	switch k {
	case capture.KindAudio:
		return []string{d.Microphone}
	case capture.KindImage:
		return []string{d.Camera}
	case capture.KindVideo:
		return []string{d.Camera, d.Microphone}
	}
	return nil
}

// Video CRF per quality level; higher is smaller and lossier.
const (
	crfLowQuality  = 35
	crfHighQuality = 23
)

func baseArgs() []string {
	return []string{"-y", "-nostdin", "-hide_banner", "-loglevel", "error"}
}

// buildArgs maps a launch request onto ffmpeg flags writing to output.
func buildArgs(d Devices, req capture.LaunchRequest, output string) ([]string, error) {
	args := baseArgs()
	switch req.Kind {
	case capture.KindImage:
		args = append(args,
			"-f", d.VideoInputFormat, "-i", d.Camera,
			"-frames:v", "1", "-q:v", "2",
		)
	case capture.KindVideo:
		crf := crfHighQuality
		if req.Quality == 0 {
			crf = crfLowQuality
		}
		args = append(args,
			"-f", d.VideoInputFormat, "-i", d.Camera,
			"-f", d.AudioInputFormat, "-i", d.Microphone,
		)
		args = appendLimit(args, req.Duration)
		args = append(args,
			"-c:v", "libx264", "-preset", "veryfast", "-crf", strconv.Itoa(crf),
			"-pix_fmt", "yuv420p",
			"-c:a", "aac", "-b:a", "128k",
			"-movflags", "+faststart",
		)
	case capture.KindAudio:
		args = append(args, "-f", d.AudioInputFormat, "-i", d.Microphone)
		args = appendLimit(args, req.Duration)
		args = append(args, "-vn", "-c:a", "aac", "-b:a", "128k")
	default:
		return nil, fmt.Errorf("%w: no ffmpeg mapping for %s", capture.ErrInvalidArgument, req.Kind)
	}
	return append(args, output), nil
}

func appendLimit(args []string, seconds int) []string {
	if seconds > 0 {
		return append(args, "-t", strconv.Itoa(seconds))
	}
	return args
}
