// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package permission

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/mediacapture/internal/capture"
	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/metrics"
)

// ErrPromptNotFound is returned when resolving an unknown or expired prompt.
var ErrPromptNotFound = errors.New("permission prompt not found")

const defaultPromptTimeout = 2 * time.Minute

// Prompt is an outstanding permission request awaiting an operator.
type Prompt struct {
	ID          string               `json:"id"`
	Permissions []capture.Permission `json:"permissions"`
	CreatedAt   time.Time            `json:"createdAt"`
	ExpiresAt   time.Time            `json:"expiresAt"`
}

type pendingPrompt struct {
	Prompt
	decision chan bool
}

// Gate implements capture.PermissionGate on top of a Store. Undetermined
// permissions raise a prompt that an operator resolves through Resolve;
// unresolved prompts are denied after the prompt timeout. Concurrent
// requests for the same permission set share one prompt.
type Gate struct {
	store   *Store
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
	group   singleflight.Group

	mu      sync.Mutex
	prompts map[string]*pendingPrompt
	closed  bool
}

var _ capture.PermissionGate = (*Gate)(nil)

// NewGate creates a Gate. A non-positive timeout uses two minutes.
func NewGate(store *Store, promptTimeout time.Duration) *Gate {
	if promptTimeout <= 0 {
		promptTimeout = defaultPromptTimeout
	}
	return &Gate{
		store:   store,
		timeout: promptTimeout,
		now:     time.Now,
		logger:  xglog.WithComponent("permission"),
		prompts: make(map[string]*pendingPrompt),
	}
}

// Check reports whether p is granted.
func (g *Gate) Check(_ context.Context, p capture.Permission) bool {
	return g.store.Get(p) == GrantGranted
}

// Request resolves perms. Granted and denied permissions answer
// immediately; only undetermined ones are prompted for.
func (g *Gate) Request(ctx context.Context, perms []capture.Permission) <-chan map[capture.Permission]bool {
	out := make(chan map[capture.Permission]bool, 1)
	resp := make(map[capture.Permission]bool, len(perms))
	var ask []capture.Permission
	for _, p := range perms {
		switch g.store.Get(p) {
		case GrantGranted:
			resp[p] = true
		case GrantDenied:
			resp[p] = false
		default:
			ask = append(ask, p)
		}
	}
	if len(ask) == 0 {
		out <- resp
		return out
	}

	slices.Sort(ask)
	key := joinPerms(ask)
	results := g.group.DoChan(key, func() (any, error) {
		return g.prompt(ctx, ask), nil
	})

	go func() {
		select {
		case r := <-results:
			granted, _ := r.Val.(bool)
			for _, p := range ask {
				resp[p] = granted
			}
		case <-ctx.Done():
			for _, p := range ask {
				resp[p] = false
			}
		}
		out <- resp
	}()
	return out
}

// prompt registers a prompt and blocks until it is resolved, times out
// or the gate closes.
func (g *Gate) prompt(ctx context.Context, perms []capture.Permission) bool {
	now := g.now()
	p := &pendingPrompt{
		Prompt: Prompt{
			ID:          uuid.NewString(),
			Permissions: perms,
			CreatedAt:   now,
			ExpiresAt:   now.Add(g.timeout),
		},
		decision: make(chan bool, 1),
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		metrics.PermissionPrompts.WithLabelValues("closed").Inc()
		return false
	}
	g.prompts[p.ID] = p
	g.mu.Unlock()

	logger := xglog.WithContext(ctx, g.logger).With().Str(xglog.FieldPromptID, p.ID).Logger()
	logger.Info().
		Str(xglog.FieldEvent, "permission.prompt").
		Str(xglog.FieldPermission, joinPerms(perms)).
		Time("expires_at", p.ExpiresAt).
		Msg("permission prompt awaiting operator")

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	var (
		granted bool
		result  string
	)
	select {
	case granted = <-p.decision:
		result = "denied"
		if granted {
			result = "granted"
		}
	case <-timer.C:
		result = "timeout"
	}

	g.mu.Lock()
	delete(g.prompts, p.ID)
	g.mu.Unlock()

	metrics.PermissionPrompts.WithLabelValues(result).Inc()
	logger.Info().
		Str(xglog.FieldEvent, "permission.prompt_resolved").
		Str(xglog.FieldOutcome, result).
		Msg("permission prompt resolved")
	return granted
}

// Resolve answers an outstanding prompt and persists the decision for
// every permission it covers.
func (g *Gate) Resolve(id string, grant bool) error {
	g.mu.Lock()
	p, ok := g.prompts[id]
	if ok {
		delete(g.prompts, id)
	}
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}

	state := GrantDenied
	if grant {
		state = GrantGranted
	}
	var errs []error
	for _, perm := range p.Permissions {
		if err := g.store.Set(perm, state); err != nil {
			errs = append(errs, err)
		}
	}
	p.decision <- grant
	return errors.Join(errs...)
}

// Pending lists outstanding prompts, oldest first.
func (g *Gate) Pending() []Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Prompt, 0, len(g.prompts))
	for _, p := range g.prompts {
		out = append(out, p.Prompt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Grants returns the current grant state.
func (g *Gate) Grants() map[capture.Permission]Grant {
	return g.store.Snapshot()
}

// SetGrant changes a grant directly.
func (g *Gate) SetGrant(p capture.Permission, grant Grant) error {
	return g.store.Set(p, grant)
}

// Close denies every outstanding prompt without persisting the denial
// and rejects future prompts.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for id, p := range g.prompts {
		delete(g.prompts, id)
		p.decision <- false
	}
}

func joinPerms(perms []capture.Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}
