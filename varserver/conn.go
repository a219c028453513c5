package varserver

import (
	"io"
	"math"
	"strconv"
)

// Transport is the connected duplex byte stream a Conn talks over.
// A net.Conn satisfies it.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Observer receives a callback for every command written, every
// successful receive and every failure on a Conn.
type Observer interface {
	CommandSent(cmd string, n int)
	BytesReceived(n int)
	Failed(op string, err error)
}

// Option configures a Conn.
type Option func(*Conn)

// WithAddr labels transport errors with the peer address.
func WithAddr(addr string) Option {
	return func(c *Conn) { c.addr = addr }
}

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(c *Conn) { c.obs = o }
}

// Conn encodes commands onto a caller-owned transport. It holds no
// state besides the transport itself, so repeated calls produce
// identical bytes on the wire.
//
// A Conn supports one writer and one reader at a time. Concurrent
// calls to the send methods (or to Receive) from several goroutines
// must be serialised by the caller.
type Conn struct {
	t    Transport
	addr string
	obs  Observer
}

// NewConn wraps an already-connected transport.
func NewConn(t Transport, opts ...Option) *Conn {
	c := &Conn{t: t}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transport returns the underlying transport, e.g. to set deadlines.
func (c *Conn) Transport() Transport { return c.t }

// ── Raw primitives ───────────────────────────────────────────────────

// Send writes text followed by a newline in a single Write and returns
// the number of bytes written. The newline is appended unconditionally:
// text that already ends in "\n" goes out as "...\n\n".
func (c *Conn) Send(text string) (int, error) {
	return c.writeLine("raw", text)
}

// Close sends the exit command and then closes the transport, even if
// the send failed. The send error wins over the close error.
func (c *Conn) Close() error {
	sendErr := c.exec("var_exit")
	closeErr := c.t.Close()
	if sendErr != nil {
		return sendErr
	}
	if closeErr != nil {
		return c.fail("close", closeErr)
	}
	return nil
}

// Shutdown disables further sends and receives on the transport without
// releasing it. Close must still be called afterwards.
func (c *Conn) Shutdown() error {
	if err := shutdown(c.t); err != nil {
		return c.fail("shutdown", err)
	}
	return nil
}

// ── Output control ───────────────────────────────────────────────────

// SetOutputFormat selects ASCII, binary, or binary-without-names output.
func (c *Conn) SetOutputFormat(f Format) error {
	if !f.valid() {
		return &EncodingError{Command: "format", Reason: "unknown output format " + f.String()}
	}
	return c.exec(formatMethods[f])
}

// SetSync enables synchronized streaming.
func (c *Conn) SetSync() error { return c.exec("var_sync", Literal("1")) }

// Pause stops the periodic stream.
func (c *Conn) Pause() error { return c.exec("var_pause") }

// Resume restarts the periodic stream.
func (c *Conn) Resume() error { return c.exec("var_unpause") }

// Poll requests a single update.
func (c *Conn) Poll() error { return c.exec("var_send") }

// SetCycle sets the interval, in simulated seconds, between updates.
func (c *Conn) SetCycle(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return &EncodingError{
			Command: "var_cycle",
			Reason:  "period must be a finite, non-negative number of seconds",
		}
	}
	return c.exec("var_cycle", Literal(formatPeriod(seconds)))
}

// SetCopyMode sets when values are copied out of the simulation.
func (c *Conn) SetCopyMode(m CopyMode) error {
	if !m.valid() {
		return &EncodingError{Command: "var_set_copy_mode", Reason: "unknown copy mode " + m.String()}
	}
	return c.exec("var_set_copy_mode", Literal(strconv.Itoa(int(m))))
}

// ── Variable list ────────────────────────────────────────────────────

// AddVariable adds name to the streamed variable list.
func (c *Conn) AddVariable(name string) error {
	return c.exec("var_add", Quoted(name))
}

// AddVariableWithUnits adds name, converted to units by the server.
func (c *Conn) AddVariableWithUnits(name, units string) error {
	return c.exec("var_add", Quoted(name), Quoted(units))
}

// RemoveVariable removes name from the streamed variable list.
func (c *Conn) RemoveVariable(name string) error {
	return c.exec("var_remove", Quoted(name))
}

// ClearVariables removes every variable from the list.
func (c *Conn) ClearVariables() error { return c.exec("var_clear") }

// ── Simulation control ───────────────────────────────────────────────

// Run puts the simulation in run mode.
func (c *Conn) Run() error { return c.exec("exec_run") }

// Freeze puts the simulation in freeze mode.
func (c *Conn) Freeze() error { return c.exec("exec_freeze") }

// SetRealTime enables or disables real-time synchronisation.
func (c *Conn) SetRealTime(enabled bool) error {
	if enabled {
		return c.exec("real_time_enable")
	}
	return c.exec("real_time_disable")
}

// ── Session settings ─────────────────────────────────────────────────

// ValidateAddresses toggles server-side pointer validation.
func (c *Conn) ValidateAddresses(enabled bool) error {
	return c.exec("var_validate_address", Literal(pyBool(enabled)))
}

// SetDebugLevel sets the server's debug level for this client.
func (c *Conn) SetDebugLevel(level int) error {
	return c.exec("var_debug", Literal(strconv.Itoa(level)))
}

// SetClientTag names this client in the server's logs.
func (c *Conn) SetClientTag(tag string) error {
	return c.exec("var_set_client_tag", Quoted(tag))
}

// ── internals ────────────────────────────────────────────────────────

func (c *Conn) exec(method string, args ...Arg) error {
	cmd, err := Encode(method, args...)
	if err != nil {
		return err
	}
	_, err = c.writeLine(method, cmd)
	return err
}

// writeLine bounds-checks text, then issues exactly one Write of
// text+"\n". A short write is reported as io.ErrShortWrite.
func (c *Conn) writeLine(command, text string) (int, error) {
	size := len(text) + 1
	if size > MaxCommandLength {
		return 0, &EncodingError{Command: command, Length: size, Max: MaxCommandLength}
	}

	line := make([]byte, 0, size)
	line = append(line, text...)
	line = append(line, '\n')

	n, err := c.t.Write(line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, c.fail("send", err)
	}
	if c.obs != nil {
		c.obs.CommandSent(text, n)
	}
	return n, nil
}

func (c *Conn) fail(op string, err error) error {
	if c.obs != nil {
		c.obs.Failed(op, err)
	}
	return &TransportError{Op: op, Addr: c.addr, Err: err}
}
