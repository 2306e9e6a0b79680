// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/mediacapture/internal/log"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "MEDIACAPTURE_"

func envLogger() zerolog.Logger {
	return log.WithComponent("config")
}

// lookup returns the variable value when it is set and non-empty.
func lookup(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	if v == "" {
		logger.Debug().Str("key", key).Str("source", "default").Msg("environment variable is empty, keeping current value")
		return "", false
	}
	return v, true
}

// ParseString reads key from the environment, falling back to def.
func ParseString(key, def string) string {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return def
	}
	logger.Debug().Str("key", key).Str("value", v).Str("source", "environment").Msg("using environment variable")
	return v
}

// ParseInt reads an integer; unparseable values keep def and log a warning.
func ParseInt(key string, def int) int {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("invalid integer in environment variable, using default")
		return def
	}
	logger.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	return i
}

// ParseBool reads a boolean in strconv.ParseBool syntax.
func ParseBool(key string, def bool) bool {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Bool("default", def).Msg("invalid boolean in environment variable, using default")
		return def
	}
	logger.Debug().Str("key", key).Bool("value", b).Str("source", "environment").Msg("using environment variable")
	return b
}

// ParseFloat reads a float.
func ParseFloat(key string, def float64) float64 {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Float64("default", def).Msg("invalid float in environment variable, using default")
		return def
	}
	logger.Debug().Str("key", key).Float64("value", f).Str("source", "environment").Msg("using environment variable")
	return f
}

// ParseDuration reads a Go duration such as "5s".
func ParseDuration(key string, def time.Duration) time.Duration {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Dur("default", def).Msg("invalid duration in environment variable, using default")
		return def
	}
	logger.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	return d
}
