package core

import (
	"context"
	"io"
	"os"
	"time"

	"trickvs/internal/capability"
	ncerr "trickvs/internal/errors"
	"trickvs/internal/metrics"
	"trickvs/internal/session"
	"trickvs/internal/transport"
	"trickvs/util"
	"trickvs/varserver"
)

// ConnectMode dials the variable server and runs a capability on the
// resulting connection.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Network    string
	Address    string
	Timeout    time.Duration // dial timeout; 0 waits for ctx
	Logger     *util.Logger
	Metrics    *metrics.Collector // optional

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the remote address, creates a session, and hands it to
// the capability. The dialer is released when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s (%s)", m.Address, m.Network)

	dialCtx := ctx
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	nc, err := m.Dialer.Dial(dialCtx, m.Network, m.Address)
	if err != nil {
		m.Metrics.RecordError("dial: " + err.Error())
		return ncerr.Wrap("dial", m.Address, err)
	}
	defer nc.Close()

	m.Metrics.ConnectionOpened()
	defer m.Metrics.ConnectionClosed()
	m.Logger.Verbose("connected to %s", nc.RemoteAddr())

	conn := varserver.NewConn(nc,
		varserver.WithAddr(m.Address),
		varserver.WithObserver(&wireObserver{logger: m.Logger, stats: m.Metrics}),
	)
	sess := session.New(conn, m.stdin(), m.stdout(), m.Logger)
	return m.Capability.Handle(ctx, sess)
}

// wireObserver logs every command at debug level and forwards the
// event to the metrics collector.
type wireObserver struct {
	logger *util.Logger
	stats  *metrics.Collector
}

func (o *wireObserver) CommandSent(cmd string, n int) {
	o.logger.Wire(">>", cmd)
	o.stats.CommandSent(cmd, n)
}

func (o *wireObserver) BytesReceived(n int) {
	o.stats.BytesReceived(n)
}

func (o *wireObserver) Failed(op string, err error) {
	if !util.IsHarmless(err) {
		o.logger.Debug("%s failed: %v", op, err)
	}
	o.stats.Failed(op, err)
}
