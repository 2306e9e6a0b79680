// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/metrics"
	"github.com/ManuGH/mediacapture/internal/telemetry"
)

const stampLayout = "20060102150405.000"

// Config configures an Orchestrator.
type Config struct {
	// CacheRoot is the parent of the namespaced capture directory.
	CacheRoot string
	// Observer is optional.
	Observer Observer
	// Now is optional and defaults to time.Now.
	Now func() time.Time
}

// Orchestrator drives capture sessions. It keeps no per-session state;
// every request gets its own Session value.
type Orchestrator struct {
	perms    PermissionGate
	service  CaptureService
	copier   ContentCopier
	builder  DescriptorBuilder
	observer Observer
	dir      string
	now      func() time.Time
	logger   zerolog.Logger
	tracer   trace.Tracer

	stampMu   sync.Mutex
	lastStamp time.Time
}

// New creates an Orchestrator.
func New(cfg Config, perms PermissionGate, service CaptureService, copier ContentCopier, builder DescriptorBuilder) *Orchestrator {
	root := cfg.CacheRoot
	if root == "" {
		root = os.TempDir()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		perms:    perms,
		service:  service,
		copier:   copier,
		builder:  builder,
		observer: cfg.Observer,
		dir:      filepath.Join(root, Namespace),
		now:      now,
		logger:   xglog.WithComponent("capture"),
		tracer:   telemetry.Tracer("capture"),
	}
}

// CaptureDir returns the directory capture rounds write into.
func (o *Orchestrator) CaptureDir() string {
	return o.dir
}

// CaptureAudio records opts.Limit audio clips.
func (o *Orchestrator) CaptureAudio(ctx context.Context, opts Options) (Result, error) {
	return o.Capture(ctx, Request{Kind: KindAudio, Options: opts})
}

// CaptureImage takes opts.Limit pictures.
func (o *Orchestrator) CaptureImage(ctx context.Context, opts Options) (Result, error) {
	return o.Capture(ctx, Request{Kind: KindImage, Options: opts})
}

// CaptureVideo records opts.Limit video clips.
func (o *Orchestrator) CaptureVideo(ctx context.Context, opts Options) (Result, error) {
	return o.Capture(ctx, Request{Kind: KindVideo, Options: opts})
}

// Start runs the session in its own goroutine and reports the final
// outcome through onFinal exactly once. It returns the session ID.
func (o *Orchestrator) Start(ctx context.Context, req Request, onFinal func(Result, error)) string {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	go func() {
		res, err := o.Capture(ctx, req)
		if onFinal != nil {
			onFinal(res, err)
		}
	}()
	return req.ID
}

// Capture runs one session to completion and blocks until it is finalized.
func (o *Orchestrator) Capture(ctx context.Context, req Request) (Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if !req.Kind.valid() {
		return Result{SessionID: req.ID}, newError(ErrInvalidArgument, CodeInvalidArgument,
			fmt.Sprintf("unsupported capture kind %s", req.Kind), nil)
	}

	ctx = xglog.ContextWithSessionID(ctx, req.ID)
	s := newSession(req)
	ctx, span := o.tracer.Start(ctx, "capture.session",
		trace.WithAttributes(telemetry.SessionAttributes(s.ID, s.Kind.String(), s.Limit)...))
	defer span.End()

	kind := s.Kind.String()
	metrics.SessionsStarted.WithLabelValues(kind).Inc()
	metrics.SessionsActive.WithLabelValues(kind).Inc()
	defer metrics.SessionsActive.WithLabelValues(kind).Dec()

	logger := xglog.WithContext(ctx, o.logger)
	logger.Info().
		Str(xglog.FieldEvent, "capture.session.start").
		Str(xglog.FieldKind, kind).
		Int(xglog.FieldLimit, s.Limit).
		Msg("capture session started")
	o.notify(s)

	s, err := o.run(ctx, s)
	s = o.finalize(ctx, s, err)
	label := OutcomeLabel(s)
	span.SetAttributes(telemetry.OutcomeAttributes(label, s.Completed)...)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			span.SetAttributes(telemetry.ErrorAttributes(label, int(ce.Code))...)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{SessionID: s.ID}, err
	}
	return Result{SessionID: s.ID, Files: s.Results, Partial: s.Completed < s.Limit}, nil
}

func (o *Orchestrator) run(ctx context.Context, s Session) (Session, error) {
	s, err := o.gate(ctx, s)
	if err != nil {
		return s, err
	}
	for {
		var outcomes <-chan Outcome
		s, outcomes, err = o.launch(ctx, s)
		if err != nil {
			return s, err
		}
		var out Outcome
		s, out, err = o.await(ctx, s, outcomes)
		if err != nil {
			return s, err
		}
		var done bool
		s, done, err = o.complete(ctx, s, out)
		if err != nil || done {
			return s, err
		}
	}
}

// gate resolves the permission set required by the session's kind.
func (o *Orchestrator) gate(ctx context.Context, s Session) (Session, error) {
	required := s.Kind.Permissions()
	granted := make(map[Permission]bool, len(required))
	missing := false
	for _, p := range required {
		granted[p] = o.perms.Check(ctx, p)
		if !granted[p] {
			missing = true
		}
	}
	if !missing {
		return s, nil
	}

	s.State = StatePermissionPending
	o.notify(s)
	logger := xglog.WithContext(ctx, o.logger)
	logger.Info().
		Str(xglog.FieldEvent, "capture.permission.request").
		Str(xglog.FieldKind, s.Kind.String()).
		Msg("requesting capture permissions")

	var resp map[Permission]bool
	select {
	case resp = <-o.perms.Request(ctx, required):
	case <-ctx.Done():
		return s, newError(ErrPermissionDenied, CodePermissionDenied, "permission request aborted", ctx.Err())
	}
	for _, p := range required {
		if v, ok := resp[p]; ok {
			granted[p] = v
		} else {
			granted[p] = o.perms.Check(ctx, p)
		}
	}

	switch s.Kind {
	case KindAudio:
		if !granted[PermissionMicrophone] {
			return s, newError(ErrPermissionDenied, CodePermissionDenied, msgAudioDenied, nil)
		}
	case KindImage:
		if !granted[PermissionCamera] {
			return s, newError(ErrPermissionDenied, CodePermissionDenied, msgCameraDenied, nil)
		}
	case KindVideo:
		if !granted[PermissionCamera] {
			return s, newError(ErrPermissionDenied, CodePermissionDenied, msgCameraDenied, nil)
		}
		if !granted[PermissionMicrophone] {
			return s, newError(ErrPermissionDenied, CodePermissionDenied, msgVideoMicDenied, nil)
		}
	}
	return s, nil
}

// launch starts the next round. The session's pending path is set before
// the service is invoked.
func (o *Orchestrator) launch(ctx context.Context, s Session) (Session, <-chan Outcome, error) {
	s.State = StateLaunching
	if err := os.MkdirAll(o.dir, 0o750); err != nil {
		return s, nil, newError(ErrCaptureFailed, CodeInternal, "create capture directory", err)
	}
	s.PendingPath = filepath.Join(o.dir, o.fileName(s.Kind))
	o.notify(s)

	req := LaunchRequest{
		SessionID: s.ID,
		Kind:      s.Kind,
		Round:     s.Completed + 1,
	}
	if s.Kind.WritesDirectly() {
		req.Output = s.PendingPath
	}
	if s.Kind != KindImage && s.Duration > 0 {
		req.Duration = s.Duration
	}
	if s.Kind == KindVideo {
		req.Quality = s.Quality
	}

	logger := xglog.WithContext(ctx, o.logger)
	logger.Info().
		Str(xglog.FieldEvent, "capture.round.launch").
		Str(xglog.FieldKind, s.Kind.String()).
		Int(xglog.FieldRound, req.Round).
		Str(xglog.FieldTargetPath, s.PendingPath).
		Msg("launching capture round")

	outcomes, err := o.service.Launch(ctx, req)
	if err != nil {
		if errors.Is(err, ErrServiceBusy) {
			return s, nil, newError(ErrServiceBusy, CodeApplicationBusy, msgServiceBusy, err)
		}
		return s, nil, newError(ErrCaptureFailed, CodeInternal, msgLaunchFailed, err)
	}
	s.State = StateAwaitingCompletion
	o.notify(s)
	return s, outcomes, nil
}

// await suspends until the service reports the round's outcome.
func (o *Orchestrator) await(ctx context.Context, s Session, outcomes <-chan Outcome) (Session, Outcome, error) {
	_, span := o.tracer.Start(ctx, "capture.round", trace.WithAttributes(
		attribute.Int(telemetry.CaptureRoundKey, s.Completed+1),
	))
	defer span.End()

	start := o.now()
	select {
	case out, ok := <-outcomes:
		metrics.RoundDuration.WithLabelValues(s.Kind.String()).Observe(o.now().Sub(start).Seconds())
		if !ok {
			out = Outcome{Status: OutcomeFailed, Err: errors.New("capture service closed without an outcome")}
		}
		span.SetAttributes(attribute.String(telemetry.CaptureOutcomeKey, out.Status.String()))
		return s, out, nil
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return s, Outcome{}, newError(ErrCaptureFailed, CodeInternal, msgCaptureFailed, ctx.Err())
	}
}

// complete handles one completion event and reports whether the session
// is done.
func (o *Orchestrator) complete(ctx context.Context, s Session, out Outcome) (Session, bool, error) {
	kind := s.Kind.String()
	metrics.RoundsTotal.WithLabelValues(kind, out.Status.String()).Inc()
	logger := xglog.WithContext(ctx, o.logger)

	switch out.Status {
	case OutcomeCancelled:
		s.PendingPath = ""
		if len(s.Results) > 0 {
			logger.Info().
				Str(xglog.FieldEvent, "capture.round.cancelled_partial").
				Int("captured", len(s.Results)).
				Msg("capture cancelled after partial results")
			return s, true, nil
		}
		return s, true, newError(ErrUserCancelled, CodeNoMediaFiles, msgUserCancelled, nil)

	case OutcomeCompleted:
		if s.Kind == KindAudio && out.URI != "" {
			if err := o.copier.Copy(ctx, out.URI, s.PendingPath); err != nil {
				metrics.CopyFailures.Inc()
				logger.Warn().Err(err).
					Str(xglog.FieldEvent, "capture.copy_failed").
					Str(xglog.FieldSourceURI, out.URI).
					Str(xglog.FieldTargetPath, s.PendingPath).
					Msg("error copying audio file")
			}
		}
		d, err := o.builder.BuildMediaDescriptor(s.PendingPath)
		if err != nil {
			logger.Error().Err(err).
				Str(xglog.FieldEvent, "capture.descriptor_failed").
				Str(xglog.FieldPath, s.PendingPath).
				Msg("error creating media file object")
			return s, true, newError(ErrDescriptorBuild, CodeInternal, msgDescriptorFailed, err)
		}
		s.Results = append(s.Results, d)
		s.Completed++
		s.PendingPath = ""
		logger.Info().
			Str(xglog.FieldEvent, "capture.round.completed").
			Int(xglog.FieldRound, s.Completed).
			Str(xglog.FieldPath, d.FullPath).
			Str(xglog.FieldMimeType, d.Type).
			Int64(xglog.FieldSize, d.Size).
			Msg("capture round completed")
		if s.Completed >= s.Limit {
			return s, true, nil
		}
		return s, false, nil

	default:
		return s, true, newError(ErrCaptureFailed, CodeInternal, msgCaptureFailed, out.Err)
	}
}

func (o *Orchestrator) finalize(ctx context.Context, s Session, err error) Session {
	s.State = StateFinalized
	s.Err = err
	label := OutcomeLabel(s)
	metrics.SessionsFinalized.WithLabelValues(s.Kind.String(), label).Inc()

	logger := xglog.WithContext(ctx, o.logger)
	evt := logger.Info()
	if err != nil {
		evt = logger.Warn().Err(err)
	}
	evt.
		Str(xglog.FieldEvent, "capture.finalized").
		Str(xglog.FieldKind, s.Kind.String()).
		Str(xglog.FieldOutcome, label).
		Int("captured", s.Completed).
		Int(xglog.FieldLimit, s.Limit).
		Msg("capture session finalized")
	o.notify(s)
	return s
}

func (o *Orchestrator) notify(s Session) {
	if o.observer != nil {
		o.observer.SessionUpdated(s.Snapshot())
	}
}

// fileName builds <prefix>_<yyyyMMddHHmmssSSS>.<ext>. Timestamps are kept
// strictly increasing so two rounds never share a name.
func (o *Orchestrator) fileName(k Kind) string {
	o.stampMu.Lock()
	now := o.now().Truncate(time.Millisecond)
	if !now.After(o.lastStamp) {
		now = o.lastStamp.Add(time.Millisecond)
	}
	o.lastStamp = now
	o.stampMu.Unlock()

	stamp := strings.Replace(now.Format(stampLayout), ".", "", 1)
	return fmt.Sprintf("%s_%s.%s", k.FilePrefix(), stamp, k.Extension())
}
