// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/mediacapture/internal/capture"
	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/metrics"
	"github.com/ManuGH/mediacapture/internal/procgroup"
)

// ErrNoActiveCapture is returned by Stop and Cancel when the session has
// no round in flight.
var ErrNoActiveCapture = errors.New("no active capture for session")

const (
	defaultStopGrace = 5 * time.Second
	stderrTailLines  = 50
	maxStderrInError = 4096
)

// ServiceConfig configures a CaptureService.
type ServiceConfig struct {
	// Bin is the ffmpeg binary; defaults to "ffmpeg" on PATH.
	Bin     string
	Devices Devices
	// SpoolDir receives audio recordings before they are copied into the
	// capture directory.
	SpoolDir string
	// StopGrace bounds how long a signalled process may take to exit
	// before the group is killed.
	StopGrace time.Duration
}

// CaptureService runs one ffmpeg process per capture round. Each device
// serves a single round at a time; a second launch reports busy.
type CaptureService struct {
	bin     string
	spool   string
	devices Devices
	grace   time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	busy   map[string]string
	active map[string]*job
	wg     sync.WaitGroup
}

var _ capture.CaptureService = (*CaptureService)(nil)

type intent int

const (
	intentNone intent = iota
	intentStop
	intentCancel
)

type job struct {
	req     capture.LaunchRequest
	cmd     *exec.Cmd
	output  string
	devices []string
	tail    *tailBuffer
	control chan intent
	waitCh  chan error
}

// NewCaptureService creates a CaptureService.
func NewCaptureService(cfg ServiceConfig) *CaptureService {
	bin := cfg.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	grace := cfg.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}
	spool := cfg.SpoolDir
	if spool == "" {
		spool = filepath.Join(os.TempDir(), "mediacapture-spool")
	}
	return &CaptureService{
		bin:     bin,
		spool:   spool,
		devices: cfg.Devices.withDefaults(),
		grace:   grace,
		logger:  xglog.WithComponent("ffmpeg"),
		busy:    make(map[string]string),
		active:  make(map[string]*job),
	}
}

// SpoolDir returns the directory audio rounds are recorded into.
func (s *CaptureService) SpoolDir() string {
	return s.spool
}

// Launch starts the ffmpeg process for one round. The returned channel
// delivers exactly one Outcome. Cancelling ctx cancels the round.
func (s *CaptureService) Launch(ctx context.Context, req capture.LaunchRequest) (<-chan capture.Outcome, error) {
	output := req.Output
	if req.Kind == capture.KindAudio {
		output = filepath.Join(s.spool, fmt.Sprintf("%s_%d.m4a", req.SessionID, req.Round))
	}
	if output == "" {
		return nil, fmt.Errorf("%w: output path required for %s capture", capture.ErrInvalidArgument, req.Kind)
	}
	args, err := buildArgs(s.devices, req, output)
	if err != nil {
		return nil, err
	}

	devices := s.devices.forKind(req.Kind)
	if err := s.reserve(req.SessionID, devices); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		s.release(req.SessionID, devices)
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	// #nosec G204 -- binary comes from configuration; args are built from typed fields
	cmd := exec.Command(s.bin, args...)
	procgroup.Set(cmd)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.release(req.SessionID, devices)
		return nil, fmt.Errorf("failed to pipe stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		s.release(req.SessionID, devices)
		return nil, fmt.Errorf("exec start failed: %w", err)
	}

	j := &job{
		req:     req,
		cmd:     cmd,
		output:  output,
		devices: devices,
		tail:    newTailBuffer(stderrTailLines),
		control: make(chan intent, 1),
		waitCh:  make(chan error, 1),
	}
	s.mu.Lock()
	s.active[req.SessionID] = j
	s.mu.Unlock()

	logger := xglog.WithContext(ctx, s.logger)
	logger.Debug().
		Str(xglog.FieldEvent, "ffmpeg.start").
		Str(xglog.FieldKind, req.Kind.String()).
		Int("pid", cmd.Process.Pid).
		Strs("args", args).
		Msg("capture process started")

	out := make(chan capture.Outcome, 1)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		j.monitor(stderr)
	}()
	go func() {
		defer s.wg.Done()
		s.supervise(ctx, j, out)
	}()
	return out, nil
}

// Stop asks the in-flight round of a session to finish normally. ffmpeg
// finalizes its output on SIGINT and the round completes.
func (s *CaptureService) Stop(sessionID string) error {
	return s.signal(sessionID, intentStop)
}

// Cancel aborts the in-flight round of a session and discards its output.
func (s *CaptureService) Cancel(sessionID string) error {
	return s.signal(sessionID, intentCancel)
}

// Shutdown cancels every in-flight round and waits for the processes to
// be reaped.
func (s *CaptureService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, j := range s.active {
		j.request(intentCancel)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PruneSpool removes spooled audio files older than maxAge that no
// in-flight round is writing. It returns the number of files removed.
func (s *CaptureService) PruneSpool(now time.Time, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.spool)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read spool: %w", err)
	}

	s.mu.Lock()
	inUse := make(map[string]bool, len(s.active))
	for _, j := range s.active {
		inUse[j.output] = true
	}
	s.mu.Unlock()

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		p := filepath.Join(s.spool, e.Name())
		if inUse[p] {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *CaptureService) signal(sessionID string, in intent) error {
	s.mu.Lock()
	j, ok := s.active[sessionID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoActiveCapture, sessionID)
	}
	j.request(in)
	return nil
}

func (s *CaptureService) reserve(sessionID string, devices []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[sessionID]; ok {
		return fmt.Errorf("session %s already has a round in flight: %w", sessionID, capture.ErrServiceBusy)
	}
	for _, d := range devices {
		if owner, ok := s.busy[d]; ok {
			metrics.IncDeviceBusy(d)
			return fmt.Errorf("device %s in use by session %s: %w", d, owner, capture.ErrServiceBusy)
		}
	}
	for _, d := range devices {
		s.busy[d] = sessionID
	}
	return nil
}

func (s *CaptureService) release(sessionID string, devices []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range devices {
		if s.busy[d] == sessionID {
			delete(s.busy, d)
		}
	}
	delete(s.active, sessionID)
}

func (s *CaptureService) supervise(ctx context.Context, j *job, out chan<- capture.Outcome) {
	var (
		in  intent
		err error
	)
	select {
	case err = <-j.waitCh:
	case in = <-j.control:
		err = s.terminate(j, in)
	case <-ctx.Done():
		in = intentCancel
		err = s.terminate(j, in)
	}

	outcome := s.outcome(j, in, err)
	s.release(j.req.SessionID, j.devices)
	metrics.IncCaptureExit(j.req.Kind.String(), outcome.Status.String())

	logger := xglog.WithContext(ctx, s.logger)
	evt := logger.Info()
	if outcome.Status == capture.OutcomeFailed {
		evt = logger.Warn().Err(outcome.Err)
	}
	evt.
		Str(xglog.FieldEvent, "ffmpeg.exit").
		Str(xglog.FieldKind, j.req.Kind.String()).
		Int(xglog.FieldRound, j.req.Round).
		Str(xglog.FieldOutcome, outcome.Status.String()).
		Str(xglog.FieldPath, j.output).
		Msg("capture process finished")

	out <- outcome
}

func (s *CaptureService) terminate(j *job, in intent) error {
	sig := syscall.SIGKILL
	if in == intentStop {
		sig = syscall.SIGINT
	}
	return procgroup.Terminate(j.cmd, j.waitCh, sig, s.grace)
}

func (s *CaptureService) outcome(j *job, in intent, waitErr error) capture.Outcome {
	switch in {
	case intentCancel:
		if err := os.Remove(j.output); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str(xglog.FieldPath, j.output).Msg("remove partial capture")
		}
		return capture.Outcome{Status: capture.OutcomeCancelled}
	case intentStop:
		// ffmpeg exits non-zero on SIGINT even after a clean finalize.
		if outputReady(j.output) {
			return capture.Outcome{Status: capture.OutcomeCompleted, URI: "file://" + j.output}
		}
		return capture.Outcome{Status: capture.OutcomeFailed, Err: j.failure(waitErr, "stopped before any output was written")}
	}
	if waitErr != nil {
		return capture.Outcome{Status: capture.OutcomeFailed, Err: j.failure(waitErr, "")}
	}
	if !outputReady(j.output) {
		return capture.Outcome{Status: capture.OutcomeFailed, Err: j.failure(nil, "no output produced")}
	}
	return capture.Outcome{Status: capture.OutcomeCompleted, URI: "file://" + j.output}
}

func (j *job) request(in intent) {
	select {
	case j.control <- in:
	default:
	}
}

func (j *job) monitor(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		j.tail.Add(scanner.Text())
	}
	j.waitCh <- j.cmd.Wait()
}

func (j *job) failure(err error, reason string) error {
	tail := j.tail.String()
	if len(tail) > maxStderrInError {
		tail = tail[len(tail)-maxStderrInError:]
	}
	switch {
	case err != nil && reason != "":
		return fmt.Errorf("ffmpeg %s: %s: %w (stderr: %s)", j.req.Kind, reason, err, tail)
	case err != nil:
		return fmt.Errorf("ffmpeg %s exited: %w (stderr: %s)", j.req.Kind, err, tail)
	default:
		return fmt.Errorf("ffmpeg %s: %s (stderr: %s)", j.req.Kind, reason, tail)
	}
}

func outputReady(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}
