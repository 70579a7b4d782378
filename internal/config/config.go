// Package config resolves the server settings from flags and environment
// variables. Flags win; the SIMRES_* variables fill in whatever the
// command line leaves at its default.
package config

import (
	"os"
	"strings"
)

// App identity, reported by the health endpoint.
const (
	AppName    = "SIMRES-GLP API"
	AppVersion = "1.0.0"
)

// Built-in defaults. The wildcard origin mirrors the development setup of
// the original deployment; production narrows it via SIMRES_CORS_ORIGINS.
const (
	DefaultDBPath = "simres_glp.db"
	DefaultPort   = "8000"
)

// Settings is the resolved server configuration.
type Settings struct {
	DBPath      string
	Port        string
	CORSOrigins []string
}

// FromEnv builds Settings from the environment, falling back to the
// built-in defaults.
func FromEnv() Settings {
	return Settings{
		DBPath:      EnvOr("SIMRES_DB", DefaultDBPath),
		Port:        EnvOr("SIMRES_PORT", DefaultPort),
		CORSOrigins: SplitOrigins(EnvOr("SIMRES_CORS_ORIGINS", "*")),
	}
}

// AllowAllOrigins reports whether the wildcard origin is configured.
func (s Settings) AllowAllOrigins() bool {
	for _, o := range s.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// EnvOr returns the value of an environment variable, or fallback when it
// is unset or empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SplitOrigins parses a comma-separated origin list, dropping blanks.
func SplitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
