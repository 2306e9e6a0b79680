// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads daemon configuration with the precedence
// environment > YAML file > defaults. File parsing is strict: unknown keys
// fail the load.
package config
