package core

import (
	"os"
	"path/filepath"

	"trickvs/config"
	"trickvs/internal/capability"
	"trickvs/internal/metrics"
	"trickvs/internal/transport"
	"trickvs/tunnel"
	"trickvs/util"
)

// historyFileName is kept in the user's home directory.
const historyFileName = ".trickvs_history"

// Build constructs the appropriate Mode from the given configuration.
// stats may be nil.
func Build(cfg *config.Config, logger *util.Logger, stats *metrics.Collector) (Mode, error) {
	if cfg.DryRun {
		return &DryRunMode{
			Setup: capability.SetupFromConfig(cfg),
			Once:  cfg.Once,
		}, nil
	}
	return buildConnect(cfg, logger, stats)
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger, stats *metrics.Collector) (Mode, error) {
	network, address := util.Endpoint(cfg.UnixPath, cfg.Host, cfg.Port)
	if network == "tcp" {
		var err error
		address, err = util.ResolveAddr(cfg.Host, cfg.Port, cfg.NoDNS)
		if err != nil {
			return nil, err
		}
	}

	return &ConnectMode{
		Dialer:     buildDialer(cfg, logger),
		Capability: buildCapability(cfg),
		Network:    network,
		Address:    address,
		Timeout:    cfg.Timeout,
		Logger:     logger,
		Metrics:    stats,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	switch {
	case cfg.UnixPath != "":
		return &transport.UnixDialer{Path: cfg.UnixPath, Timeout: cfg.Timeout}
	case cfg.TunnelEnabled:
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.Timeout, LocalPort: cfg.LocalPort}
}

// buildCapability selects the per-connection behaviour.
func buildCapability(cfg *config.Config) capability.Capability {
	setup := capability.SetupFromConfig(cfg)
	if cfg.Shell {
		return &capability.Shell{
			Setup:       &setup,
			HistoryFile: historyPath(),
			BufSize:     cfg.ReplyBufSize,
		}
	}
	return &capability.Monitor{
		Setup:   setup,
		Once:    cfg.Once,
		BufSize: cfg.ReplyBufSize,
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFileName)
}
