package capability

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"

	"trickvs/internal/session"
	"trickvs/util"
	"trickvs/varserver"
)

// DefaultPrompt is shown before each line in an interactive shell.
const DefaultPrompt = "trick> "

var errUnknownBuiltin = errors.New("unknown built-in")

// Shell is an interactive raw-command session. Each input line is sent
// verbatim with Conn.Send while a background goroutine copies replies
// to stdout. Lines starting with ':' are built-ins:
//
//	:quit    close the session (also Ctrl-D)
//	:pause   trick.var_pause()
//	:resume  trick.var_unpause()
//	:poll    trick.var_send()
//	:clear   trick.var_clear()
type Shell struct {
	Setup       *Setup // applied before the first prompt when set
	Prompt      string
	HistoryFile string
	BufSize     int
}

// Handle runs the REPL until :quit, end of input, server hang-up or
// ctx cancellation, then closes the connection.
func (s *Shell) Handle(ctx context.Context, sess *session.Session) error {
	conn := sess.Conn

	if s.Setup != nil {
		if err := s.Setup.Apply(conn); err != nil {
			conn.Close() //nolint:errcheck
			return err
		}
	}

	lines := s.newLineReader(sess)
	defer lines.Close()

	done := make(chan struct{})
	defer close(done)
	input := readLines(lines, done)

	drained := make(chan error, 1)
	go func() { drained <- drain(conn, sess.Stdout, s.bufSize()) }()

	var runErr, drainErr error
	peerGone := false
loop:
	for {
		select {
		case <-ctx.Done():
			sess.Logger.Debug("shell cancelled: %v", ctx.Err())
			break loop
		case drainErr = <-drained:
			peerGone = true
			sess.Logger.Verbose("server closed the connection")
			break loop
		case in := <-input:
			if in.err != nil {
				if !errors.Is(in.err, io.EOF) {
					runErr = in.err
				}
				break loop
			}
			quit, err := s.handleLine(conn, in.line)
			if quit {
				break loop
			}
			if runErr = s.report(sess, err); runErr != nil {
				break loop
			}
		}
	}

	closeErr := conn.Close()
	if !peerGone {
		drainErr = <-drained
	}
	switch {
	case runErr != nil:
		return runErr
	case !util.IsHarmless(drainErr):
		return drainErr
	case peerGone:
		// The exit command may not land once the peer is gone.
		if closeErr != nil {
			sess.Logger.Debug("close after hang-up: %v", closeErr)
		}
		return nil
	case !util.IsHarmless(closeErr):
		return closeErr
	}
	return nil
}

// handleLine sends one input line or runs a built-in.
func (s *Shell) handleLine(conn *varserver.Conn, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case strings.HasPrefix(line, ":"):
		return s.builtin(conn, line)
	}
	_, err = conn.Send(line)
	return false, err
}

// report keeps the shell alive after a rejected command and returns
// transport failures, which end the session.
func (s *Shell) report(sess *session.Session, err error) error {
	var encErr *varserver.EncodingError
	if errors.As(err, &encErr) {
		sess.Logger.Warn("%v", err)
		return nil
	}
	if errors.Is(err, errUnknownBuiltin) {
		sess.Logger.Warn("%v", err)
		return nil
	}
	return err
}

func (s *Shell) builtin(conn *varserver.Conn, line string) (quit bool, err error) {
	switch line {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":pause":
		return false, conn.Pause()
	case ":resume":
		return false, conn.Resume()
	case ":poll":
		return false, conn.Poll()
	case ":clear":
		return false, conn.ClearVariables()
	}
	return false, fmt.Errorf("%w %q (try :quit, :pause, :resume, :poll, :clear)", errUnknownBuiltin, line)
}

func (s *Shell) bufSize() int {
	if s.BufSize > 0 {
		return s.BufSize
	}
	return util.DefaultReplyBufSize
}

// drain copies replies to w until the connection is closed.
func drain(conn *varserver.Conn, w io.Writer, size int) error {
	buf := make([]byte, size)
	for {
		n, err := conn.Receive(buf, 0)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

// ── line input ───────────────────────────────────────────────────────

type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

type lineResult struct {
	line string
	err  error
}

// readLines feeds r into a channel from its own goroutine so the REPL
// can select on input alongside hang-up and cancellation. A scanner
// blocked on stdin cannot be interrupted; the goroutine exits on its
// next read once done is closed.
func readLines(r lineReader, done <-chan struct{}) <-chan lineResult {
	out := make(chan lineResult)
	go func() {
		for {
			line, err := r.ReadLine()
			select {
			case out <- lineResult{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// newLineReader uses readline when stdin is a terminal and a plain
// scanner otherwise (pipes, tests, editors).
func (s *Shell) newLineReader(sess *session.Session) lineReader {
	if f, ok := sess.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		prompt := s.Prompt
		if prompt == "" {
			prompt = DefaultPrompt
		}
		rl, err := readline.NewFromConfig(&readline.Config{
			Prompt:                 prompt,
			HistoryFile:            s.HistoryFile,
			HistoryLimit:           500,
			DisableAutoSaveHistory: true,
		})
		if err == nil {
			return &interactiveReader{rl: rl}
		}
		sess.Logger.Warn("readline init failed (%v), using basic input", err)
	}
	return &scanReader{sc: bufio.NewScanner(sess.Stdin)}
}

type interactiveReader struct {
	rl *readline.Instance
}

func (r *interactiveReader) ReadLine() (string, error) {
	line, err := r.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		r.rl.SaveToHistory(trimmed) //nolint:errcheck
	}
	return line, nil
}

func (r *interactiveReader) Close() error { return r.rl.Close() }

type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) ReadLine() (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() error { return nil }
