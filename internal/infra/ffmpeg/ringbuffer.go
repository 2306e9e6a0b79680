// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"strings"
	"sync"
)

// tailBuffer keeps the last n stderr lines of a capture process.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	pos   int
	full  bool
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{lines: make([]string, n)}
}

func (r *tailBuffer) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.pos] = line
	r.pos = (r.pos + 1) % len(r.lines)
	if r.pos == 0 {
		r.full = true
	}
}

// Lines returns the buffered lines oldest first.
func (r *tailBuffer) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]string(nil), r.lines[:r.pos]...)
	}
	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.pos:]...)
	return append(out, r.lines[:r.pos]...)
}

func (r *tailBuffer) String() string {
	return strings.Join(r.Lines(), "\n")
}
