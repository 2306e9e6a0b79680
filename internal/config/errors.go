// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "errors"

// ErrUnknownConfigField classifies strict YAML failures caused by unknown
// keys. Use errors.Is instead of matching the message.
var ErrUnknownConfigField = errors.New("unknown config field")
