// Package capability defines what happens over an established variable
// server connection. Each Capability encapsulates a single behaviour
// (stream variables, run a raw-command shell) and operates on a
// Session rather than a raw transport, which keeps capabilities
// testable and decoupled from how the connection was dialed.
package capability

import (
	"context"

	"trickvs/internal/session"
)

// Capability handles a single connection according to a specific
// behaviour. Implementations include Monitor and Shell.
type Capability interface {
	// Handle runs the capability against the given session. It blocks
	// until the server closes the stream or the context is cancelled,
	// and always releases the connection before returning.
	Handle(ctx context.Context, sess *session.Session) error
}
