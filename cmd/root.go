// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"trickvs/config"
	"trickvs/internal/core"
	ncerr "trickvs/internal/errors"
	"trickvs/internal/metrics"
	"trickvs/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X trickvs/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate trickvs mode.
//
// Settings are layered: defaults, then the YAML session file named by
// --config (or TRICKVS_CONFIG), then TRICKVS_* environment variables,
// then command-line flags.
func Execute(ctx context.Context, args []string) error {
	cfg := config.New()

	if path := configPath(args); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)
	envVerbose := cfg.Verbose

	fs := flag.NewFlagSet("trickvs", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.StringVar(&cfg.UnixPath, "unix", cfg.UnixPath, "Connect to a unix-domain socket instead of host/port")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	fs.IntVar(&cfg.LocalPort, "source-port", cfg.LocalPort, "Bind the local TCP port (0 = ephemeral)")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Connect timeout in seconds")

	var configFile string
	fs.StringVar(&configFile, "config", "", "YAML session file")

	// ── session ──────────────────────────────────────────────────
	var varSpecs []string
	fs.StringArrayVarP(&varSpecs, "var", "a", nil, "Variable to stream as NAME[:UNITS] (repeatable)")
	fs.Float64VarP(&cfg.Cycle, "cycle", "c", cfg.Cycle, "Update period in seconds")
	fs.StringVar(&cfg.CopyMode, "copy-mode", cfg.CopyMode, "async | end-of-frame | frame-multiple")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "ascii | binary | binary-nonames")
	fs.BoolVar(&cfg.Sync, "sync", cfg.Sync, "Synchronise updates with the simulation")
	fs.StringVar(&cfg.ClientTag, "client-tag", cfg.ClientTag, "Name shown in the server's logs (default trickvs-<id>)")
	fs.IntVar(&cfg.DebugLevel, "debug-level", cfg.DebugLevel, "Server debug level for this client (-1 = unchanged)")
	fs.BoolVar(&cfg.ValidateAddresses, "validate-addresses", cfg.ValidateAddresses, "Ask the server to validate variable addresses")
	fs.StringVar(&cfg.RealTime, "real-time", cfg.RealTime, "enable | disable real-time synchronisation")
	fs.BoolVar(&cfg.Run, "run", cfg.Run, "Put the simulation in run mode")
	fs.BoolVar(&cfg.Freeze, "freeze", cfg.Freeze, "Put the simulation in freeze mode")

	// ── mode ─────────────────────────────────────────────────────
	fs.BoolVar(&cfg.Once, "once", cfg.Once, "Request a single update and exit")
	fs.BoolVar(&cfg.Shell, "shell", cfg.Shell, "Interactive raw-command shell")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Print the commands instead of sending them")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.IntVar(&cfg.ReplyBufSize, "buffer", cfg.ReplyBufSize, "Receive buffer size in bytes")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("trickvs %s\n", version)
		return nil
	}

	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}
	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if fs.Changed("var") {
		vars, err := parseVarFlags(varSpecs)
		if err != nil {
			return err
		}
		cfg.Variables = vars
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	if cfg.ClientTag == "" {
		cfg.ClientTag = config.NewClientTag()
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build & run ──────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	stats := metrics.New()

	mode, err := core.Build(cfg, logger, stats)
	if err != nil {
		return err
	}

	runErr := mode.Run(ctx)
	if logger.Level() >= util.LogVerbose && !cfg.DryRun {
		logger.Verbose("session metrics:\n%s", stats.JSON())
	}
	return withTimeoutHint(runErr, cfg.Timeout)
}

// ── helpers ──────────────────────────────────────────────────────────

// withTimeoutHint points the user at -w when err is a timeout.
func withTimeoutHint(err error, timeout time.Duration) error {
	if !ncerr.IsTimeout(err) {
		return err
	}
	return fmt.Errorf("%w\n  hint: no answer within %s; raise it with -w/--timeout", err, timeout)
}

// configPath finds --config before flag parsing so the file can seed
// the flag defaults. TRICKVS_CONFIG is the fallback.
func configPath(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("TRICKVS_CONFIG")
}

// parseVarFlags accepts repeated -a flags, each of which may itself be
// a comma-separated list.
func parseVarFlags(specs []string) ([]config.Variable, error) {
	var out []config.Variable
	for _, spec := range specs {
		vars, err := config.ParseVariableList(spec)
		if err != nil {
			return nil, fmt.Errorf("var: %w", err)
		}
		out = append(out, vars...)
	}
	return out, nil
}

// parsePositional accepts "host port", "host:port" or "host" (port from
// the session file or environment). No positionals are needed with
// --unix or --dry-run.
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		return nil
	case 1:
		if host, port, err := net.SplitHostPort(remaining[0]); err == nil {
			p, err := config.ParsePort(port)
			if err != nil {
				return fmt.Errorf("port: %w", err)
			}
			cfg.Host, cfg.Port = host, p
			return nil
		}
		cfg.Host = remaining[0]
		return nil
	case 2:
		p, err := config.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Host, cfg.Port = remaining[0], p
		return nil
	}
	return fmt.Errorf("too many arguments (expected <host> <port>)")
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `trickvs – Trick Variable Server client v%s

Streams variables from a running Trick simulation.

Usage:
  trickvs [options] -a <var> <host> <port>      Stream variables
  trickvs --unix <path> -a <var> [options]      Unix-domain socket
  trickvs -T user@gateway -a <var> <host> <port> Through an SSH tunnel
  trickvs --shell <host> <port>                 Raw-command shell

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  trickvs -a time -a dyn.baseball.pos[0]:ft -c 0.5 localhost 40135
  trickvs --once -a sys.exec.out.time localhost 40135
  trickvs --config cannon.yaml --dry-run
  trickvs -T ops@bastion -a time sim-host 40135
`)
}
