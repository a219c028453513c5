package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// TCPDialer establishes plain TCP connections, optionally binding to a
// specific source port.
type TCPDialer struct {
	Timeout   time.Duration
	LocalPort int // optional source-port binding (0 = ephemeral)
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}

	if d.LocalPort > 0 {
		a, err := net.ResolveTCPAddr(network, fmt.Sprintf(":%d", d.LocalPort))
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }

// UnixDialer connects to a variable server exported on a unix-domain
// socket. The address passed to Dial is ignored in favour of Path when
// Path is set.
type UnixDialer struct {
	Path    string
	Timeout time.Duration
}

// Dial connects to the socket path.
func (d *UnixDialer) Dial(ctx context.Context, _, address string) (net.Conn, error) {
	path := address
	if d.Path != "" {
		path = d.Path
	}
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, "unix", path)
}

// Close is a no-op.
func (d *UnixDialer) Close() error { return nil }
