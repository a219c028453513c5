package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Host(t *testing.T) {
	t.Setenv("TRICKVS_HOST", "sim.example.com")
	cfg := New()
	LoadFromEnv(cfg)
	if cfg.Host != "sim.example.com" {
		t.Errorf("Host = %q, want %q", cfg.Host, "sim.example.com")
	}
}

func TestLoadFromEnv_Port(t *testing.T) {
	t.Setenv("TRICKVS_PORT", "40135")
	cfg := New()
	LoadFromEnv(cfg)
	if cfg.Port != 40135 {
		t.Errorf("Port = %d, want 40135", cfg.Port)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		key    string
		values []string
		get    func(c *Config) bool
	}{
		{"TRICKVS_NO_DNS", []string{"1", "true", "yes", "TRUE", "Yes"}, func(c *Config) bool { return c.NoDNS }},
		{"TRICKVS_SSH_PASSWORD", []string{"1", "true"}, func(c *Config) bool { return c.SSHPassword }},
		{"TRICKVS_SSH_AGENT", []string{"yes"}, func(c *Config) bool { return c.UseSSHAgent }},
		{"TRICKVS_STRICT_HOSTKEY", []string{"1"}, func(c *Config) bool { return c.StrictHostKey }},
	}

	for _, tt := range tests {
		for _, v := range tt.values {
			t.Run(tt.key+"="+v, func(t *testing.T) {
				t.Setenv(tt.key, v)
				cfg := New()
				LoadFromEnv(cfg)
				if !tt.get(cfg) {
					t.Errorf("%s=%s should enable the option", tt.key, v)
				}
			})
		}
	}
}

func TestLoadFromEnv_Timeout(t *testing.T) {
	t.Setenv("TRICKVS_TIMEOUT", "10")
	cfg := New()
	LoadFromEnv(cfg)
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
}

func TestLoadFromEnv_Session(t *testing.T) {
	t.Setenv("TRICKVS_VARS", "time,dyn.baseball.pos[0]:ft")
	t.Setenv("TRICKVS_CYCLE", "0.25")
	t.Setenv("TRICKVS_COPY_MODE", "end-of-frame")
	t.Setenv("TRICKVS_FORMAT", "binary")
	t.Setenv("TRICKVS_CLIENT_TAG", "cannon")
	t.Setenv("TRICKVS_UNIX", "/tmp/sim.sock")

	cfg := New()
	LoadFromEnv(cfg)

	if len(cfg.Variables) != 2 || cfg.Variables[1].Units != "ft" {
		t.Errorf("Variables = %+v", cfg.Variables)
	}
	if cfg.Cycle != 0.25 {
		t.Errorf("Cycle = %v", cfg.Cycle)
	}
	if cfg.CopyMode != "end-of-frame" || cfg.Format != "binary" || cfg.ClientTag != "cannon" {
		t.Errorf("got CopyMode=%q Format=%q ClientTag=%q", cfg.CopyMode, cfg.Format, cfg.ClientTag)
	}
	if cfg.UnixPath != "/tmp/sim.sock" {
		t.Errorf("UnixPath = %q", cfg.UnixPath)
	}
}

func TestLoadFromEnv_SSHFields(t *testing.T) {
	t.Setenv("TRICKVS_TUNNEL", "admin@bastion:2222")
	t.Setenv("TRICKVS_SSH_KEY", "/home/user/.ssh/id_ed25519")
	t.Setenv("TRICKVS_KNOWN_HOSTS", "/custom/known_hosts")

	cfg := New()
	LoadFromEnv(cfg)

	if cfg.TunnelSpec != "admin@bastion:2222" {
		t.Errorf("TunnelSpec = %q", cfg.TunnelSpec)
	}
	if cfg.SSHKeyPath != "/home/user/.ssh/id_ed25519" {
		t.Errorf("SSHKeyPath = %q", cfg.SSHKeyPath)
	}
	if cfg.KnownHostsPath != "/custom/known_hosts" {
		t.Errorf("KnownHostsPath = %q", cfg.KnownHostsPath)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	cfg := New()
	cfg.Host = "original"
	cfg.Port = 7000
	LoadFromEnv(cfg)
	if cfg.Host != "original" || cfg.Port != 7000 {
		t.Errorf("unset env vars overrode config: %q %d", cfg.Host, cfg.Port)
	}
}

func TestLoadFromEnv_InvalidNumbersIgnored(t *testing.T) {
	t.Setenv("TRICKVS_PORT", "not-a-number")
	t.Setenv("TRICKVS_CYCLE", "fast")
	cfg := New()
	LoadFromEnv(cfg)
	if cfg.Port != 0 || cfg.Cycle != 0 {
		t.Errorf("invalid values should be ignored, got Port=%d Cycle=%v", cfg.Port, cfg.Cycle)
	}
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("TRICKVS_VERBOSE", "2")
	cfg := New()
	LoadFromEnv(cfg)
	if cfg.Verbose != 2 {
		t.Errorf("Verbose = %d, want 2", cfg.Verbose)
	}
}
