package config

import (
	"time"

	"github.com/google/uuid"
)

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, session-file parsing, and environment variable
// loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout bounds dialing the variable server (and the
	// SSH gateway, when tunnelling).
	DefaultConnTimeout = 30 * time.Second

	// DefaultReplyBufSize is the receive buffer size for streamed replies.
	DefaultReplyBufSize = 4096

	// NoDebugLevel means "do not send var_debug".
	NoDebugLevel = -1

	// ClientTagPrefix starts every generated client tag.
	ClientTagPrefix = "trickvs-"
)

// NewClientTag returns a short, unique tag identifying this client in
// the variable server's logs.
func NewClientTag() string {
	return ClientTagPrefix + uuid.NewString()[:8]
}
