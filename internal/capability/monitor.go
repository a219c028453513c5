package capability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"trickvs/internal/session"
	"trickvs/util"
	"trickvs/varserver"
)

// Monitor configures a variable server session and copies the value
// stream to the session's stdout. With Once set it pauses the periodic
// stream and requests a single update instead.
type Monitor struct {
	Setup   Setup
	Once    bool
	BufSize int
}

// Handle applies the setup, streams replies until the server closes the
// connection or ctx is cancelled, and finishes with Close, which sends
// the exit command.
func (m *Monitor) Handle(ctx context.Context, sess *session.Session) error {
	conn := sess.Conn

	if err := m.Setup.Apply(conn); err != nil {
		conn.Close() //nolint:errcheck
		return err
	}
	sess.Logger.Verbose("streaming %d variable(s)", len(m.Setup.Variables))

	if m.Once {
		if err := conn.Poll(); err != nil {
			conn.Close() //nolint:errcheck
			return err
		}
	}

	eof, err := m.stream(ctx, sess)
	closeErr := conn.Close()
	switch {
	case err != nil:
		return err
	case ctx.Err() != nil:
		// The transport may already be closed to unblock Receive.
		if closeErr != nil {
			sess.Logger.Debug("close after cancel: %v", closeErr)
		}
		return nil
	case eof:
		// The peer is already gone; the exit command may not land.
		if closeErr != nil {
			sess.Logger.Debug("close after EOF: %v", closeErr)
		}
		return nil
	case util.IsHarmless(closeErr):
		return nil
	default:
		return closeErr
	}
}

// stream copies Receive results to stdout. It reports eof when the
// server shut the stream down.
func (m *Monitor) stream(ctx context.Context, sess *session.Session) (eof bool, err error) {
	stop := interruptOnCancel(ctx, sess.Conn.Transport(), sess.Logger)
	defer stop()

	buf := make([]byte, m.bufSize())
	for {
		n, err := sess.Conn.Receive(buf, 0)
		if n > 0 {
			if _, werr := sess.Stdout.Write(buf[:n]); werr != nil {
				return false, werr
			}
			if m.Once && m.singleReplyDone(buf[:n]) {
				return false, nil
			}
		}
		if ctx.Err() != nil {
			sess.Logger.Debug("stream cancelled: %v", ctx.Err())
			return false, nil
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			sess.Logger.Verbose("server closed the stream")
			return true, nil
		default:
			return false, err
		}
	}
}

// singleReplyDone reports whether a --once poll has its reply. ASCII
// replies end with a newline; binary replies arrive in one read.
func (m *Monitor) singleReplyDone(chunk []byte) bool {
	if m.Setup.FormatSet && m.Setup.Format != varserver.FormatASCII {
		return true
	}
	return bytes.IndexByte(chunk, '\n') >= 0
}

func (m *Monitor) bufSize() int {
	if m.BufSize > 0 {
		return m.BufSize
	}
	return util.DefaultReplyBufSize
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// interruptOnCancel unblocks a pending Receive once ctx is done by
// expiring the transport's read deadline. Transports without deadline
// support (SSH channels) are closed instead. The returned func detaches
// the hook.
func interruptOnCancel(ctx context.Context, t varserver.Transport, logger *util.Logger) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		if rd, ok := t.(readDeadliner); ok {
			err := rd.SetReadDeadline(time.Now())
			if err == nil {
				return
			}
			logger.Debug("read deadline unsupported (%v), closing transport", err)
		}
		if err := t.Close(); err != nil {
			logger.Debug("close on cancel: %v", err)
		}
	})
}
