package varserver

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Sentinel errors returned (wrapped in a TransportError) by Receive and
// Shutdown when the transport cannot express the request.
var (
	ErrFlagsUnsupported    = errors.New("receive flags not supported by transport")
	ErrShutdownUnsupported = errors.New("shutdown not supported by transport")
)

// EncodingError reports a command that was rejected before any I/O took
// place. Nothing is written to the transport when it is returned.
type EncodingError struct {
	Command string // command method, or "raw" for Send
	Length  int    // assembled length including the newline
	Max     int    // MaxCommandLength at the time of the check
	Reason  string // set when the input was rejected for its content
}

func (e *EncodingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("encode %s: %s", e.Command, e.Reason)
	}
	return fmt.Sprintf("encode %s: %d bytes exceeds %d-byte limit",
		e.Command, e.Length, e.Max)
}

// TransportError wraps a failed read, write, shutdown or close on the
// underlying transport. The original error is preserved for errors.Is/As.
type TransportError struct {
	Op   string // "send", "recv", "shutdown", "close"
	Addr string // peer label from WithAddr, may be empty
	Err  error
}

func (e *TransportError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by a deadline set on
// the transport.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
