// Package transport opens the byte stream a variable server session
// runs over: a TCP socket, a unix-domain socket, or a TCP stream
// forwarded through an SSH gateway. What is sent over the stream is
// the capability layer's concern.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections to a variable server.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session). Stateless dialers return nil.
	Close() error
}
