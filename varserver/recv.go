package varserver

import (
	"errors"
	"io"
	"syscall"
)

// RecvFlag modifies a single Receive call.
type RecvFlag int

const (
	// RecvPeek returns queued data without consuming it.
	RecvPeek RecvFlag = 1 << iota
	// RecvOOB requests out-of-band data.
	RecvOOB
	// RecvWaitAll blocks until buf is full or the peer shuts down.
	// Ignored together with RecvPeek.
	RecvWaitAll
)

// Receive reads at most len(buf) bytes from the transport. The bytes are
// not framed or interpreted. It returns (0, io.EOF) once the peer has
// shut down its side in an orderly way; any other failure is a
// *TransportError.
//
// RecvPeek and RecvOOB need a socket transport (*net.TCPConn,
// *net.UnixConn) on a unix platform; elsewhere they fail with
// ErrFlagsUnsupported. RecvWaitAll works on any transport.
func (c *Conn) Receive(buf []byte, flags RecvFlag) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	n, err := c.recv(buf, flags)
	if n > 0 && c.obs != nil {
		c.obs.BytesReceived(n)
	}
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	default:
		return n, c.fail("recv", err)
	}
}

func (c *Conn) recv(buf []byte, flags RecvFlag) (int, error) {
	read := c.t.Read
	if flags&(RecvPeek|RecvOOB) != 0 {
		sc, ok := c.t.(syscall.Conn)
		if !ok {
			return 0, ErrFlagsUnsupported
		}
		read = func(p []byte) (int, error) { return recvFrom(sc, p, flags) }
	}
	if flags&RecvWaitAll != 0 && flags&RecvPeek == 0 {
		return io.ReadFull(readFunc(read), buf)
	}
	return read(buf)
}

type readFunc func([]byte) (int, error)

func (f readFunc) Read(p []byte) (int, error) { return f(p) }

// halfCloser is implemented by *net.TCPConn and *net.UnixConn.
type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

func shutdown(t Transport) error {
	if sc, ok := t.(syscall.Conn); ok {
		err := shutdownRaw(sc)
		if !errors.Is(err, ErrShutdownUnsupported) {
			return err
		}
	}
	if hc, ok := t.(halfCloser); ok {
		return errors.Join(hc.CloseRead(), hc.CloseWrite())
	}
	return ErrShutdownUnsupported
}
