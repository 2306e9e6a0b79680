// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// BinaryChecker reports whether an executable resolves on PATH or at its
// configured path.
type BinaryChecker struct {
	name string
	bin  string
}

// NewBinaryChecker creates a checker for bin.
func NewBinaryChecker(name, bin string) *BinaryChecker {
	return &BinaryChecker{name: name, bin: bin}
}

func (c *BinaryChecker) Name() string { return c.name }

func (c *BinaryChecker) Check(_ context.Context) CheckResult {
	if c.bin == "" {
		return CheckResult{Status: StatusUnhealthy, Error: "binary not configured"}
	}
	resolved, err := exec.LookPath(c.bin)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: c.bin, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: resolved}
}

// DirectoryChecker reports whether a directory exists and accepts new files.
type DirectoryChecker struct {
	name string
	path string
}

// NewDirectoryChecker creates a checker for path.
func NewDirectoryChecker(name, path string) *DirectoryChecker {
	return &DirectoryChecker{name: name, path: path}
}

func (c *DirectoryChecker) Name() string { return c.name }

func (c *DirectoryChecker) Check(_ context.Context) CheckResult {
	if err := writable(c.path); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: c.path, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: c.path}
}

func writable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	f, err := os.CreateTemp(path, ".health-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// VerifyFunc runs an integrity check on the database at path and returns
// diagnostic rows when it is damaged.
type VerifyFunc func(ctx context.Context, path, mode string) ([]string, error)

// DatabaseChecker runs a quick integrity check on a SQLite file. A file
// that does not exist yet is degraded, not unhealthy.
type DatabaseChecker struct {
	name   string
	path   string
	verify VerifyFunc
}

// NewDatabaseChecker creates a checker for the database at path.
func NewDatabaseChecker(name, path string, verify VerifyFunc) *DatabaseChecker {
	return &DatabaseChecker{name: name, path: path, verify: verify}
}

func (c *DatabaseChecker) Name() string { return c.name }

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	if _, err := os.Stat(c.path); errors.Is(err, fs.ErrNotExist) {
		return CheckResult{Status: StatusDegraded, Message: "database not created yet"}
	}
	problems, err := c.verify(ctx, c.path, "quick")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if len(problems) > 0 {
		return CheckResult{Status: StatusUnhealthy, Message: "integrity check failed", Error: strings.Join(problems, "; ")}
	}
	return CheckResult{Status: StatusHealthy, Message: "integrity ok"}
}
