// Package config provides environment configuration helpers for
// stereocam commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of the environment variable or the default.
func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetEnvInt returns the integer value of the environment variable or
// the default when unset or unparseable.
func GetEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetEnvFloat returns the float value of the environment variable or
// the default when unset or unparseable.
func GetEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// GetEnvBool returns the boolean value of the environment variable or
// the default when unset or unparseable. Accepts the strconv.ParseBool
// forms (1, t, true, 0, f, false).
func GetEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetEnvDuration returns the duration value of the environment
// variable or the default when unset or unparseable.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
