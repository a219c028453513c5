// Package config defines the runtime configuration for trickvs and
// provides helpers for parsing tunnel and variable specifications.
package config

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "trickvs/internal/errors"
	"trickvs/varserver"
)

// Config holds every tuneable for a single trickvs session.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string
	Port      int
	UnixPath  string // --unix: dial a unix-domain socket instead
	LocalPort int    // optional source port for TCP
	Timeout   time.Duration
	NoDNS     bool

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Variable server session ──────────────────────────────────────
	Variables         []Variable
	Cycle             float64 // seconds; 0 leaves the server default
	CopyMode          string  // "" leaves the server default
	Format            string  // "" leaves the server default
	Sync              bool
	ClientTag         string
	DebugLevel        int // NoDebugLevel leaves the server default
	ValidateAddresses bool
	RealTime          string // "", "enable" or "disable"
	Run               bool
	Freeze            bool

	// ── Mode ─────────────────────────────────────────────────────────
	Once   bool // poll a single update instead of streaming
	Shell  bool // interactive raw-command shell
	DryRun bool // print the commands instead of sending them

	// ── Output ───────────────────────────────────────────────────────
	Verbose      int
	ReplyBufSize int
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Timeout:      DefaultConnTimeout,
		TunnelPort:   DefaultSSHPort,
		DebugLevel:   NoDebugLevel,
		ReplyBufSize: DefaultReplyBufSize,
	}
}

// ── Variable helpers ─────────────────────────────────────────────────

// Variable is one entry of the streamed variable list.
type Variable struct {
	Name  string `yaml:"name"`
	Units string `yaml:"units,omitempty"`
}

func (v Variable) String() string {
	if v.Units == "" {
		return v.Name
	}
	return v.Name + ":" + v.Units
}

// ParseVariableSpec accepts "name" or "name:units".
func ParseVariableSpec(spec string) (Variable, error) {
	name, units, _ := strings.Cut(strings.TrimSpace(spec), ":")
	name = strings.TrimSpace(name)
	units = strings.TrimSpace(units)
	if name == "" {
		return Variable{}, fmt.Errorf("invalid variable %q – expected name[:units]", spec)
	}
	return Variable{Name: name, Units: units}, nil
}

// ParseVariableList parses a comma-separated list of variable specs.
func ParseVariableList(list string) ([]Variable, error) {
	var out []Variable
	for _, spec := range strings.Split(list, ",") {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		v, err := ParseVariableSpec(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParsePort accepts a decimal port number in 1-65535.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ── Derived values ───────────────────────────────────────────────────

// OutputFormat returns the parsed output format and whether one is set.
func (c *Config) OutputFormat() (varserver.Format, bool) {
	if c.Format == "" {
		return 0, false
	}
	f, err := varserver.ParseFormat(c.Format)
	return f, err == nil
}

// ParsedCopyMode returns the parsed copy mode and whether one is set.
func (c *Config) ParsedCopyMode() (varserver.CopyMode, bool) {
	if c.CopyMode == "" {
		return 0, false
	}
	m, err := varserver.ParseCopyMode(c.CopyMode)
	return m, err == nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch {
	case c.DryRun:
		// nothing is dialed
	case c.UnixPath != "":
		if c.TunnelEnabled {
			return &ncerr.ConfigError{Field: "unix", Value: c.UnixPath,
				Message: "unix sockets cannot be reached through an SSH tunnel"}
		}
	default:
		if c.Host == "" {
			return &ncerr.ConfigError{Field: "host", Message: "hostname is required",
				Hint: "use --help for usage, or --unix for a local socket"}
		}
		if c.Port < 1 || c.Port > 65535 {
			return &ncerr.ConfigError{Field: "port", Value: c.Port,
				Message: "out of range 1-65535",
				Hint:    "the variable server prints its port at sim startup"}
		}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &ncerr.ConfigError{Field: "source-port", Value: c.LocalPort, Message: "out of range 0-65535"}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}

	if math.IsNaN(c.Cycle) || math.IsInf(c.Cycle, 0) || c.Cycle < 0 {
		return &ncerr.ConfigError{Field: "cycle", Value: c.Cycle,
			Message: "must be a non-negative number of seconds"}
	}
	if c.CopyMode != "" {
		if _, err := varserver.ParseCopyMode(c.CopyMode); err != nil {
			return &ncerr.ConfigError{Field: "copy-mode", Value: c.CopyMode, Message: err.Error(),
				Hint: "use async, end-of-frame or frame-multiple (or 0, 1, 2)"}
		}
	}
	if c.Format != "" {
		if _, err := varserver.ParseFormat(c.Format); err != nil {
			return &ncerr.ConfigError{Field: "format", Value: c.Format, Message: err.Error()}
		}
	}
	switch c.RealTime {
	case "", "enable", "disable":
	default:
		return &ncerr.ConfigError{Field: "real-time", Value: c.RealTime,
			Message: "must be enable or disable"}
	}

	if c.Run && c.Freeze {
		return &ncerr.ConfigError{Field: "freeze", Message: "--run and --freeze are mutually exclusive"}
	}
	if c.Shell && c.Once {
		return &ncerr.ConfigError{Field: "once", Message: "--once cannot be combined with --shell"}
	}

	for _, v := range c.Variables {
		if v.Name == "" {
			return &ncerr.ConfigError{Field: "var", Message: "variable name must not be empty"}
		}
	}
	if !c.Shell && len(c.Variables) == 0 {
		return &ncerr.ConfigError{Field: "var", Message: "at least one variable is required",
			Hint: "add one with -a NAME[:UNITS] or use --shell"}
	}

	if c.ReplyBufSize < 1 {
		return &ncerr.ConfigError{Field: "buffer", Value: c.ReplyBufSize, Message: "must be positive"}
	}
	return nil
}
