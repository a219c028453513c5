//go:build !unix

package varserver

import "syscall"

func recvFrom(syscall.Conn, []byte, RecvFlag) (int, error) {
	return 0, ErrFlagsUnsupported
}

func shutdownRaw(syscall.Conn) error { return ErrShutdownUnsupported }
