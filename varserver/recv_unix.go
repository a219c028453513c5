//go:build unix

package varserver

import (
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func recvFrom(sc syscall.Conn, p []byte, flags RecvFlag) (int, error) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var sysFlags int
	if flags&RecvPeek != 0 {
		sysFlags |= unix.MSG_PEEK
	}
	if flags&RecvOOB != 0 {
		sysFlags |= unix.MSG_OOB
	}

	var (
		n    int
		rerr error
	)
	err = raw.Read(func(fd uintptr) bool {
		n, _, rerr = unix.Recvfrom(int(fd), p, sysFlags)
		// Not ready yet: let the runtime poller park us until it is.
		return rerr != unix.EAGAIN
	})
	if err != nil {
		return 0, err
	}
	if rerr != nil {
		return 0, os.NewSyscallError("recvfrom", rerr)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func shutdownRaw(sc syscall.Conn) error {
	raw, err := sc.SyscallConn()
	if err != nil {
		return ErrShutdownUnsupported
	}
	var serr error
	if err := raw.Control(func(fd uintptr) {
		serr = unix.Shutdown(int(fd), unix.SHUT_RDWR)
	}); err != nil {
		return err
	}
	if serr != nil {
		return os.NewSyscallError("shutdown", serr)
	}
	return nil
}
