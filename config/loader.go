package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Session file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the TRICKVS_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("TRICKVS_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("TRICKVS_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("TRICKVS_UNIX"); v != "" {
		cfg.UnixPath = v
	}
	if v := envInt("TRICKVS_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if envBool("TRICKVS_NO_DNS") {
		cfg.NoDNS = true
	}

	// SSH tunnel
	if v := os.Getenv("TRICKVS_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("TRICKVS_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("TRICKVS_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("TRICKVS_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("TRICKVS_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("TRICKVS_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Session
	if v := os.Getenv("TRICKVS_VARS"); v != "" {
		if vars, err := ParseVariableList(v); err == nil && len(vars) > 0 {
			cfg.Variables = vars
		}
	}
	if v := envFloat("TRICKVS_CYCLE"); v > 0 {
		cfg.Cycle = v
	}
	if v := os.Getenv("TRICKVS_COPY_MODE"); v != "" {
		cfg.CopyMode = v
	}
	if v := os.Getenv("TRICKVS_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("TRICKVS_CLIENT_TAG"); v != "" {
		cfg.ClientTag = v
	}

	// Output
	if v := envInt("TRICKVS_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envFloat(key string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
