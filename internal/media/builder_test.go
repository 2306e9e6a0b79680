// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFS struct {
	stats map[string]FileStat
	mimes map[string]string
}

func (f *fakeFS) Stat(path string) (FileStat, error) {
	st, ok := f.stats[path]
	if !ok {
		return FileStat{}, os.ErrNotExist
	}
	return st, nil
}

func (f *fakeFS) MimeType(uri string) string {
	if t, ok := f.mimes[uri]; ok {
		return t
	}
	return MimeTypeForExtension(uri)
}

type fakeImages struct {
	w, h  int
	err   error
	calls int
	panic bool
}

func (f *fakeImages) Bounds(string) (int, int, error) {
	f.calls++
	if f.panic {
		panic("decoder exploded")
	}
	return f.w, f.h, f.err
}

type fakeHandle struct {
	ms     int64
	w, h   int
	closed int
}

func (h *fakeHandle) DurationMillis() int64 { return h.ms }
func (h *fakeHandle) VideoSize() (int, int) { return h.w, h.h }
func (h *fakeHandle) Close() error          { h.closed++; return nil }

type fakeMedia struct {
	handle *fakeHandle
	err    error
	opened []string
}

func (f *fakeMedia) Open(_ context.Context, path string) (MediaHandle, error) {
	f.opened = append(f.opened, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

func newTestBuilder(fs *fakeFS, img *fakeImages, med *fakeMedia) *Builder {
	if fs == nil {
		fs = &fakeFS{}
	}
	if img == nil {
		img = &fakeImages{}
	}
	if med == nil {
		med = &fakeMedia{handle: &fakeHandle{}}
	}
	return NewBuilder(fs, img, med)
}

func TestBuildMediaDescriptor(t *testing.T) {
	mod := time.UnixMilli(1_700_000_000_123)
	fs := &fakeFS{stats: map[string]FileStat{
		"/cache/cdv_media_capture_image_20250101120000000.jpg": {Size: 4096, ModTime: mod},
		"/cache/clip.3GA": {Size: 10, ModTime: mod},
		"/cache/blob.xyz": {Size: 1, ModTime: mod},
	}}
	b := newTestBuilder(fs, nil, nil)

	d, err := b.BuildMediaDescriptor("/cache/cdv_media_capture_image_20250101120000000.jpg")
	require.NoError(t, err)
	want := MediaDescriptor{
		Name:             "cdv_media_capture_image_20250101120000000.jpg",
		FullPath:         "file:///cache/cdv_media_capture_image_20250101120000000.jpg",
		Type:             MimeImageJPEG,
		LastModifiedDate: 1_700_000_000_123,
		Size:             4096,
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}

	d, err = b.BuildMediaDescriptor("/cache/clip.3GA")
	require.NoError(t, err)
	assert.Equal(t, MimeAudio3GPP, d.Type)

	d, err = b.BuildMediaDescriptor("/cache/blob.xyz")
	require.NoError(t, err, "unresolved mime must not fail the build")
	assert.Empty(t, d.Type)
}

func TestBuildMediaDescriptor_StatFailure(t *testing.T) {
	b := newTestBuilder(&fakeFS{}, nil, nil)
	_, err := b.BuildMediaDescriptor("/missing.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildFormatDescriptor_ImageWithoutHint(t *testing.T) {
	img := &fakeImages{w: 640, h: 480}
	med := &fakeMedia{handle: &fakeHandle{ms: 9000}}
	b := newTestBuilder(nil, img, med)

	fd := b.BuildFormatDescriptor(context.Background(), "/x/a.jpg", "")
	assert.Equal(t, FormatDescriptor{Width: 640, Height: 480}, fd)
	assert.Empty(t, med.opened, "image class must not touch the media probe")
}

func TestBuildFormatDescriptor_JpgSuffixWinsOverMime(t *testing.T) {
	img := &fakeImages{w: 1, h: 2}
	b := newTestBuilder(nil, img, nil)

	fd := b.BuildFormatDescriptor(context.Background(), "/x/odd.jpg", "audio/wav")
	assert.Equal(t, 1, fd.Width)
	assert.Equal(t, 1, img.calls)
}

func TestBuildFormatDescriptor_AudioTruncatesDuration(t *testing.T) {
	h := &fakeHandle{ms: 12_999, w: 320, h: 240}
	med := &fakeMedia{handle: h}
	b := newTestBuilder(nil, nil, med)

	fd := b.BuildFormatDescriptor(context.Background(), "/x/a.wav", "audio/wav")
	assert.Equal(t, FormatDescriptor{Duration: 12}, fd)
	assert.Equal(t, 1, h.closed)
	assert.Equal(t, []string{"/x/a.wav"}, med.opened)
}

func TestBuildFormatDescriptor_Video(t *testing.T) {
	h := &fakeHandle{ms: 61_500, w: 1920, h: 1080}
	b := newTestBuilder(nil, nil, &fakeMedia{handle: h})

	fd := b.BuildFormatDescriptor(context.Background(), "file:///x/movie.mp4", "")
	assert.Equal(t, FormatDescriptor{Width: 1920, Height: 1080, Duration: 61}, fd)
	assert.Equal(t, 1, h.closed)
}

func TestBuildFormatDescriptor_NullHintResolves(t *testing.T) {
	h := &fakeHandle{ms: 3000}
	b := newTestBuilder(nil, nil, &fakeMedia{handle: h})

	fd := b.BuildFormatDescriptor(context.Background(), "/x/voice.3ga", "null")
	assert.Equal(t, 3, fd.Duration)
}

func TestBuildFormatDescriptor_IsTotal(t *testing.T) {
	tests := []struct {
		name string
		path string
		mime string
		img  *fakeImages
		med  *fakeMedia
	}{
		{name: "unknown mime", path: "/x/a.bin", mime: "application/x-garbage"},
		{name: "unresolvable extension", path: "/x/noext", mime: ""},
		{name: "image probe error", path: "/nope/a.jpg", img: &fakeImages{err: errors.New("no such file")}},
		{name: "media probe error", path: "/nope/a.mp4", mime: "video/mp4", med: &fakeMedia{err: errors.New("io: bad header")}},
		{name: "case sensitive mime", path: "/x/a.bin", mime: "VIDEO/MP4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(nil, tt.img, tt.med)
			fd := b.BuildFormatDescriptor(context.Background(), tt.path, tt.mime)
			assert.Equal(t, FormatDescriptor{}, fd)
		})
	}
}

func TestFormatData(t *testing.T) {
	b := newTestBuilder(nil, &fakeImages{panic: true}, nil)

	_, err := b.FormatData(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrPathRequired)

	_, err = b.FormatData(context.Background(), "/x/a.jpg", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormatData)
	assert.True(t, strings.Contains(err.Error(), "decoder exploded"))
}
