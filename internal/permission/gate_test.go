// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package permission

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediacapture/internal/capture"
)

var bothPerms = []capture.Permission{capture.PermissionCamera, capture.PermissionMicrophone}

func newGate(t *testing.T, defaults map[capture.Permission]Grant, timeout time.Duration) (*Gate, *Store) {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "grants.yaml"), defaults)
	require.NoError(t, err)
	g := NewGate(s, timeout)
	t.Cleanup(g.Close)
	return g, s
}

func receive(t *testing.T, ch <-chan map[capture.Permission]bool) map[capture.Permission]bool {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no permission response")
		return nil
	}
}

func waitPending(t *testing.T, g *Gate, n int) []Prompt {
	t.Helper()
	require.Eventually(t, func() bool { return len(g.Pending()) == n }, 5*time.Second, 10*time.Millisecond)
	return g.Pending()
}

func TestGate_DecidedPermissionsAnswerImmediately(t *testing.T) {
	g, _ := newGate(t, map[capture.Permission]Grant{
		capture.PermissionCamera:     GrantGranted,
		capture.PermissionMicrophone: GrantDenied,
	}, time.Minute)

	assert.True(t, g.Check(context.Background(), capture.PermissionCamera))
	assert.False(t, g.Check(context.Background(), capture.PermissionMicrophone))

	resp := receive(t, g.Request(context.Background(), bothPerms))
	assert.Equal(t, map[capture.Permission]bool{
		capture.PermissionCamera:     true,
		capture.PermissionMicrophone: false,
	}, resp)
	assert.Empty(t, g.Pending())
}

func TestGate_PromptGrantedPersists(t *testing.T) {
	g, s := newGate(t, map[capture.Permission]Grant{capture.PermissionCamera: GrantGranted}, time.Minute)

	ch := g.Request(context.Background(), bothPerms)
	prompts := waitPending(t, g, 1)
	assert.Equal(t, []capture.Permission{capture.PermissionMicrophone}, prompts[0].Permissions,
		"only undetermined permissions are prompted")
	assert.Equal(t, prompts[0].CreatedAt.Add(time.Minute), prompts[0].ExpiresAt)

	require.NoError(t, g.Resolve(prompts[0].ID, true))
	resp := receive(t, ch)
	assert.True(t, resp[capture.PermissionCamera])
	assert.True(t, resp[capture.PermissionMicrophone])
	assert.Equal(t, GrantGranted, s.Get(capture.PermissionMicrophone))
}

func TestGate_PromptDeniedPersists(t *testing.T) {
	g, s := newGate(t, nil, time.Minute)

	ch := g.Request(context.Background(), []capture.Permission{capture.PermissionCamera})
	prompts := waitPending(t, g, 1)
	require.NoError(t, g.Resolve(prompts[0].ID, false))

	assert.False(t, receive(t, ch)[capture.PermissionCamera])
	assert.Equal(t, GrantDenied, s.Get(capture.PermissionCamera))
	assert.ErrorIs(t, g.Resolve(prompts[0].ID, true), ErrPromptNotFound)
}

func TestGate_PromptTimeoutDeniesWithoutPersisting(t *testing.T) {
	g, s := newGate(t, nil, 50*time.Millisecond)

	resp := receive(t, g.Request(context.Background(), []capture.Permission{capture.PermissionMicrophone}))
	assert.False(t, resp[capture.PermissionMicrophone])
	assert.Equal(t, GrantUndetermined, s.Get(capture.PermissionMicrophone))
	assert.Empty(t, g.Pending())
}

func TestGate_ConcurrentRequestsShareOnePrompt(t *testing.T) {
	g, _ := newGate(t, nil, time.Minute)

	a := g.Request(context.Background(), bothPerms)
	b := g.Request(context.Background(), []capture.Permission{capture.PermissionMicrophone, capture.PermissionCamera})
	prompts := waitPending(t, g, 1)
	// Give the second request time to join the in-flight prompt.
	time.Sleep(50 * time.Millisecond)
	require.Len(t, g.Pending(), 1)

	require.NoError(t, g.Resolve(prompts[0].ID, true))
	for _, ch := range []<-chan map[capture.Permission]bool{a, b} {
		resp := receive(t, ch)
		assert.True(t, resp[capture.PermissionCamera])
		assert.True(t, resp[capture.PermissionMicrophone])
	}
}

func TestGate_ContextCancelDenies(t *testing.T) {
	g, _ := newGate(t, nil, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	ch := g.Request(ctx, []capture.Permission{capture.PermissionCamera})
	waitPending(t, g, 1)
	cancel()
	assert.False(t, receive(t, ch)[capture.PermissionCamera])
}

func TestGate_CloseDeniesPending(t *testing.T) {
	g, s := newGate(t, nil, time.Minute)

	ch := g.Request(context.Background(), []capture.Permission{capture.PermissionCamera})
	waitPending(t, g, 1)
	g.Close()
	assert.False(t, receive(t, ch)[capture.PermissionCamera])
	assert.Equal(t, GrantUndetermined, s.Get(capture.PermissionCamera))

	resp := receive(t, g.Request(context.Background(), []capture.Permission{capture.PermissionCamera}))
	assert.False(t, resp[capture.PermissionCamera], "closed gate denies new prompts")
}

func TestGate_SetGrant(t *testing.T) {
	g, _ := newGate(t, nil, time.Minute)
	require.NoError(t, g.SetGrant(capture.PermissionCamera, GrantGranted))
	assert.True(t, g.Check(context.Background(), capture.PermissionCamera))
	assert.Equal(t, GrantGranted, g.Grants()[capture.PermissionCamera])
}
