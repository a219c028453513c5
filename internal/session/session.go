// Package session represents a single variable server connection,
// binding the protocol client with local I/O endpoints and a logger.
//
// Capabilities operate on sessions rather than raw connections, so a
// capability does not need to know whether its replies end up on
// os.Stdout or a test buffer.
package session

import (
	"io"

	"trickvs/util"
	"trickvs/varserver"
)

// Session encapsulates the runtime context for a single connection.
type Session struct {
	Conn   *varserver.Conn
	Stdin  io.Reader
	Stdout io.Writer
	Logger *util.Logger
}

// New creates a Session bound to the given connection and I/O pair.
func New(conn *varserver.Conn, stdin io.Reader, stdout io.Writer, logger *util.Logger) *Session {
	return &Session{
		Conn:   conn,
		Stdin:  stdin,
		Stdout: stdout,
		Logger: logger,
	}
}
