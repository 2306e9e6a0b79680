// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup runs capture subprocesses in their own process group so
// that a process and everything it spawned is signalled together.
package procgroup
