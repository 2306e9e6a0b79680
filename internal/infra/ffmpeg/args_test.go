// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediacapture/internal/capture"
)

func TestBuildArgs(t *testing.T) {
	d := Devices{Camera: "/dev/video2", Microphone: "hw:1"}.withDefaults()
	base := []string{"-y", "-nostdin", "-hide_banner", "-loglevel", "error"}

	tests := []struct {
		name string
		req  capture.LaunchRequest
		want []string
	}{
		{
			name: "image single frame",
			req:  capture.LaunchRequest{Kind: capture.KindImage},
			want: []string{"-f", "v4l2", "-i", "/dev/video2", "-frames:v", "1", "-q:v", "2", "/out"},
		},
		{
			name: "video low quality with limit",
			req:  capture.LaunchRequest{Kind: capture.KindVideo, Duration: 10, Quality: 0},
			want: []string{
				"-f", "v4l2", "-i", "/dev/video2", "-f", "alsa", "-i", "hw:1",
				"-t", "10",
				"-c:v", "libx264", "-preset", "veryfast", "-crf", "35", "-pix_fmt", "yuv420p",
				"-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart", "/out",
			},
		},
		{
			name: "video high quality unlimited",
			req:  capture.LaunchRequest{Kind: capture.KindVideo, Quality: 1},
			want: []string{
				"-f", "v4l2", "-i", "/dev/video2", "-f", "alsa", "-i", "hw:1",
				"-c:v", "libx264", "-preset", "veryfast", "-crf", "23", "-pix_fmt", "yuv420p",
				"-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart", "/out",
			},
		},
		{
			name: "audio with limit",
			req:  capture.LaunchRequest{Kind: capture.KindAudio, Duration: 3},
			want: []string{"-f", "alsa", "-i", "hw:1", "-t", "3", "-vn", "-c:a", "aac", "-b:a", "128k", "/out"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildArgs(d, tt.req, "/out")
			require.NoError(t, err)
			assert.Equal(t, append(append([]string{}, base...), tt.want...), got)
		})
	}

	_, err := buildArgs(d, capture.LaunchRequest{Kind: capture.Kind(9)}, "/out")
	assert.ErrorIs(t, err, capture.ErrInvalidArgument)
}

func TestDevicesForKind(t *testing.T) {
	d := Devices{}.withDefaults()
	assert.Equal(t, []string{"/dev/video0"}, d.forKind(capture.KindImage))
	assert.Equal(t, []string{"default"}, d.forKind(capture.KindAudio))
	assert.Equal(t, []string{"/dev/video0", "default"}, d.forKind(capture.KindVideo))
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(3)
	assert.Empty(t, b.Lines())
	b.Add("a")
	b.Add("b")
	assert.Equal(t, []string{"a", "b"}, b.Lines())
	b.Add("c")
	b.Add("d")
	assert.Equal(t, []string{"b", "c", "d"}, b.Lines())
	assert.Equal(t, "b\nc\nd", b.String())
}
