package core

import (
	"context"
	"io"
	"os"

	"trickvs/internal/capability"
	"trickvs/varserver"
)

// DryRunMode prints the exact command lines a streaming session would
// send, the closing exit command included, without dialing anything.
type DryRunMode struct {
	Setup  capability.Setup
	Once   bool
	Stdout io.Writer // defaults to os.Stdout
}

// Run renders the session through a Conn whose transport is stdout.
func (m *DryRunMode) Run(_ context.Context) error {
	w := m.Stdout
	if w == nil {
		w = os.Stdout
	}
	conn := varserver.NewConn(printTransport{w})

	if err := m.Setup.Apply(conn); err != nil {
		return err
	}
	if m.Once {
		if err := conn.Poll(); err != nil {
			return err
		}
	}
	return conn.Close()
}

// printTransport is a write-only varserver.Transport.
type printTransport struct{ io.Writer }

func (printTransport) Read([]byte) (int, error) { return 0, io.EOF }
func (printTransport) Close() error             { return nil }
