// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/mediacapture/internal/metrics"
)

// Terminate asks a process group to exit with sig, waits on waitCh for up
// to grace, then escalates to SIGKILL. It always drains waitCh and returns
// the wait result. Safe to call on nil commands.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, sig syscall.Signal, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	metrics.IncProcSignal(sig.String(), signalResult(Kill(cmd, sig)))

	select {
	case err := <-waitCh:
		metrics.IncProcWait(waitResult(err, false))
		return err
	case <-time.After(grace):
		metrics.IncProcSignal(syscall.SIGKILL.String(), signalResult(Kill(cmd, syscall.SIGKILL)))
		err := <-waitCh
		metrics.IncProcWait(waitResult(err, true))
		return err
	}
}

func signalResult(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return "esrch"
	default:
		return "error"
	}
}

func waitResult(err error, forced bool) string {
	res := "exit0"
	if err != nil {
		res = "exit_nonzero"
	}
	if forced {
		return "forced_" + res
	}
	return res
}
