// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build windows

package procgroup

import (
	"os"
	"os/exec"
	"syscall"
)

// Set is a no-op on Windows.
func Set(cmd *exec.Cmd) {}

// Kill maps SIGKILL to Process.Kill and SIGINT to os.Interrupt.
// Other signals are ignored.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	switch sig {
	case syscall.SIGKILL:
		return cmd.Process.Kill()
	case syscall.SIGINT:
		return cmd.Process.Signal(os.Interrupt)
	}
	return nil
}
