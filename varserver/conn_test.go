package varserver

import (
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
)

// mockTransport records every Write and plays back scripted reads.
type mockTransport struct {
	writes   []string
	writeErr error
	shortBy  int // bytes to drop from each write

	reads   [][]byte // each entry is returned by one Read call
	readErr error    // returned once reads is exhausted (default io.EOF)

	closes   int
	closeErr error
}

func (m *mockTransport) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.writes = append(m.writes, string(p))
	return len(p) - m.shortBy, nil
}

func (m *mockTransport) Read(p []byte) (int, error) {
	if len(m.reads) == 0 {
		if m.readErr != nil {
			return 0, m.readErr
		}
		return 0, io.EOF
	}
	n := copy(p, m.reads[0])
	if n < len(m.reads[0]) {
		m.reads[0] = m.reads[0][n:]
	} else {
		m.reads = m.reads[1:]
	}
	return n, nil
}

func (m *mockTransport) Close() error {
	m.closes++
	return m.closeErr
}

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	sent     []string
	received int
	failed   []string
}

func (o *recordingObserver) CommandSent(cmd string, n int) { o.sent = append(o.sent, cmd) }
func (o *recordingObserver) BytesReceived(n int)           { o.received += n }
func (o *recordingObserver) Failed(op string, err error)   { o.failed = append(o.failed, op) }

// ── Wire templates ───────────────────────────────────────────────────

func TestCommands_WireText(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Conn) error
		want string
	}{
		{"ascii", func(c *Conn) error { return c.SetOutputFormat(FormatASCII) }, "trick.var_ascii()\n"},
		{"binary", func(c *Conn) error { return c.SetOutputFormat(FormatBinary) }, "trick.var_binary()\n"},
		{"binary nonames", func(c *Conn) error { return c.SetOutputFormat(FormatBinaryNoNames) }, "trick.var_binary_nonames()\n"},
		{"sync", (*Conn).SetSync, "trick.var_sync(1)\n"},
		{"pause", (*Conn).Pause, "trick.var_pause()\n"},
		{"resume", (*Conn).Resume, "trick.var_unpause()\n"},
		{"add", func(c *Conn) error { return c.AddVariable("dyn.baseball.pos[0]") }, "trick.var_add(\"dyn.baseball.pos[0]\")\n"},
		{"add units", func(c *Conn) error { return c.AddVariableWithUnits("dyn.baseball.pos[0]", "ft") }, "trick.var_add(\"dyn.baseball.pos[0]\", \"ft\")\n"},
		{"remove", func(c *Conn) error { return c.RemoveVariable("time") }, "trick.var_remove(\"time\")\n"},
		{"clear", (*Conn).ClearVariables, "trick.var_clear()\n"},
		{"cycle", func(c *Conn) error { return c.SetCycle(0.5) }, "trick.var_cycle(0.5)\n"},
		{"cycle integral", func(c *Conn) error { return c.SetCycle(2) }, "trick.var_cycle(2)\n"},
		{"copy async", func(c *Conn) error { return c.SetCopyMode(CopyAsync) }, "trick.var_set_copy_mode(0)\n"},
		{"copy end of frame", func(c *Conn) error { return c.SetCopyMode(CopyEndOfFrame) }, "trick.var_set_copy_mode(1)\n"},
		{"copy frame multiple", func(c *Conn) error { return c.SetCopyMode(CopyFrameMultiple) }, "trick.var_set_copy_mode(2)\n"},
		{"poll", (*Conn).Poll, "trick.var_send()\n"},
		{"run", (*Conn).Run, "trick.exec_run()\n"},
		{"freeze", (*Conn).Freeze, "trick.exec_freeze()\n"},
		{"validate true", func(c *Conn) error { return c.ValidateAddresses(true) }, "trick.var_validate_address(True)\n"},
		{"validate false", func(c *Conn) error { return c.ValidateAddresses(false) }, "trick.var_validate_address(False)\n"},
		{"real time on", func(c *Conn) error { return c.SetRealTime(true) }, "trick.real_time_enable()\n"},
		{"real time off", func(c *Conn) error { return c.SetRealTime(false) }, "trick.real_time_disable()\n"},
		{"debug", func(c *Conn) error { return c.SetDebugLevel(3) }, "trick.var_debug(3)\n"},
		{"debug negative", func(c *Conn) error { return c.SetDebugLevel(-1) }, "trick.var_debug(-1)\n"},
		{"client tag", func(c *Conn) error { return c.SetClientTag("monitor") }, "trick.var_set_client_tag(\"monitor\")\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockTransport{}
			if err := tt.call(NewConn(m)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(m.writes) != 1 {
				t.Fatalf("writes = %d, want 1", len(m.writes))
			}
			if m.writes[0] != tt.want {
				t.Errorf("got %q, want %q", m.writes[0], tt.want)
			}
		})
	}
}

func TestClearVariables_Idempotent(t *testing.T) {
	m := &mockTransport{}
	c := NewConn(m)
	for i := 0; i < 3; i++ {
		if err := c.ClearVariables(); err != nil {
			t.Fatal(err)
		}
	}
	for i, w := range m.writes {
		if w != "trick.var_clear()\n" {
			t.Errorf("write %d = %q", i, w)
		}
	}
}

// ── Raw send ─────────────────────────────────────────────────────────

func TestSend_AppendsNewline(t *testing.T) {
	m := &mockTransport{}
	n, err := NewConn(m).Send("trick.var_exit()")
	if err != nil {
		t.Fatal(err)
	}
	if n != len("trick.var_exit()\n") {
		t.Errorf("n = %d", n)
	}
	if m.writes[0] != "trick.var_exit()\n" {
		t.Errorf("got %q", m.writes[0])
	}
}

func TestSend_TrailingNewlineIsDoubled(t *testing.T) {
	m := &mockTransport{}
	if _, err := NewConn(m).Send("trick.var_send()\n"); err != nil {
		t.Fatal(err)
	}
	if m.writes[0] != "trick.var_send()\n\n" {
		t.Errorf("got %q", m.writes[0])
	}
}

func TestSend_Bound(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"empty", 0, false},
		{"at limit", MaxCommandLength - 1, false},
		{"one over", MaxCommandLength, true},
		{"far over", 4 * MaxCommandLength, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockTransport{}
			_, err := NewConn(m).Send(strings.Repeat("x", tt.length))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var ee *EncodingError
			if !errors.As(err, &ee) {
				t.Fatalf("want *EncodingError, got %T", err)
			}
			if ee.Length != tt.length+1 || ee.Max != MaxCommandLength {
				t.Errorf("got Length=%d Max=%d", ee.Length, ee.Max)
			}
			if len(m.writes) != 0 {
				t.Errorf("writes = %d, want 0", len(m.writes))
			}
		})
	}
}

func TestSend_TransportFailure(t *testing.T) {
	m := &mockTransport{writeErr: syscall.EPIPE}
	obs := &recordingObserver{}
	_, err := NewConn(m, WithAddr("sim:7000"), WithObserver(obs)).Send("trick.var_pause()")

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want *TransportError, got %T (%v)", err, err)
	}
	if te.Op != "send" || te.Addr != "sim:7000" {
		t.Errorf("got Op=%q Addr=%q", te.Op, te.Addr)
	}
	if !errors.Is(err, syscall.EPIPE) {
		t.Error("cause should be preserved")
	}
	if len(obs.failed) != 1 || obs.failed[0] != "send" {
		t.Errorf("observer failures = %v", obs.failed)
	}
}

func TestSend_ShortWrite(t *testing.T) {
	m := &mockTransport{shortBy: 3}
	n, err := NewConn(m).Send("trick.var_pause()")
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("err = %v, want io.ErrShortWrite", err)
	}
	if n != len("trick.var_pause()\n")-3 {
		t.Errorf("n = %d", n)
	}
}

// ── Bounds on builders ───────────────────────────────────────────────

func TestAddVariable_Bound(t *testing.T) {
	// trick.var_add("") plus the newline is 18 bytes.
	overhead := len(`trick.var_add("")`) + 1

	m := &mockTransport{}
	c := NewConn(m)
	if err := c.AddVariable(strings.Repeat("a", MaxCommandLength-overhead)); err != nil {
		t.Fatalf("name at limit rejected: %v", err)
	}
	if len(m.writes[0]) != MaxCommandLength {
		t.Errorf("wire length = %d, want %d", len(m.writes[0]), MaxCommandLength)
	}

	err := c.AddVariable(strings.Repeat("a", MaxCommandLength-overhead+1))
	var ee *EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("want *EncodingError, got %v", err)
	}
	if ee.Command != "var_add" || ee.Length != MaxCommandLength+1 {
		t.Errorf("got %+v", ee)
	}
	if len(m.writes) != 1 {
		t.Errorf("oversized command was written")
	}
}

func TestAddVariableWithUnits_Bound(t *testing.T) {
	m := &mockTransport{}
	name := strings.Repeat("n", 250)
	units := strings.Repeat("u", 250)
	err := NewConn(m).AddVariableWithUnits(name, units)
	if err == nil {
		t.Fatal("expected EncodingError")
	}
	var ee *EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("want *EncodingError, got %T", err)
	}
	want := len(`trick.var_add("", "")`) + 500 + 1
	if ee.Length != want {
		t.Errorf("Length = %d, want %d", ee.Length, want)
	}
	if len(m.writes) != 0 {
		t.Errorf("writes = %d, want 0", len(m.writes))
	}
}

func TestBuilders_RejectWithoutWriting(t *testing.T) {
	long := strings.Repeat("z", MaxCommandLength)
	tests := []struct {
		name string
		call func(c *Conn) error
	}{
		{"remove", func(c *Conn) error { return c.RemoveVariable(long) }},
		{"client tag", func(c *Conn) error { return c.SetClientTag(long) }},
		{"quote in name", func(c *Conn) error { return c.AddVariable(`a")`) }},
		{"newline in tag", func(c *Conn) error { return c.SetClientTag("a\nb") }},
		{"newline in units", func(c *Conn) error { return c.AddVariableWithUnits("x", "m\r") }},
		{"bad copy mode", func(c *Conn) error { return c.SetCopyMode(CopyMode(7)) }},
		{"bad format", func(c *Conn) error { return c.SetOutputFormat(Format(-1)) }},
		{"negative cycle", func(c *Conn) error { return c.SetCycle(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockTransport{}
			err := tt.call(NewConn(m))
			var ee *EncodingError
			if !errors.As(err, &ee) {
				t.Fatalf("want *EncodingError, got %v", err)
			}
			if len(m.writes) != 0 {
				t.Errorf("writes = %d, want 0", len(m.writes))
			}
		})
	}
}

// ── Close ────────────────────────────────────────────────────────────

func TestClose_SendsExit(t *testing.T) {
	m := &mockTransport{}
	if err := NewConn(m).Close(); err != nil {
		t.Fatal(err)
	}
	if len(m.writes) != 1 || m.writes[0] != "trick.var_exit()\n" {
		t.Errorf("writes = %q", m.writes)
	}
	if m.closes != 1 {
		t.Errorf("closes = %d, want 1", m.closes)
	}
}

func TestClose_SendFailureStillCloses(t *testing.T) {
	m := &mockTransport{writeErr: syscall.ECONNRESET, closeErr: errors.New("already closed")}
	err := NewConn(m).Close()
	if m.closes != 1 {
		t.Errorf("closes = %d, want 1", m.closes)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "send" {
		t.Fatalf("want send TransportError, got %v", err)
	}
	if !errors.Is(err, syscall.ECONNRESET) {
		t.Error("send cause should be reported")
	}
}

func TestClose_CloseFailure(t *testing.T) {
	m := &mockTransport{closeErr: errors.New("boom")}
	err := NewConn(m).Close()
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "close" {
		t.Fatalf("want close TransportError, got %v", err)
	}
}

// ── Receive ──────────────────────────────────────────────────────────

func TestReceive_Counts(t *testing.T) {
	m := &mockTransport{reads: [][]byte{[]byte("0\t1.5\t2.5\n"), []byte("0\t1.6\t2.6\n")}}
	obs := &recordingObserver{}
	c := NewConn(m, WithObserver(obs))

	buf := make([]byte, 64)
	n, err := c.Receive(buf, 0)
	if err != nil || string(buf[:n]) != "0\t1.5\t2.5\n" {
		t.Fatalf("first = %q, %v", buf[:n], err)
	}
	n, err = c.Receive(buf, 0)
	if err != nil || string(buf[:n]) != "0\t1.6\t2.6\n" {
		t.Fatalf("second = %q, %v", buf[:n], err)
	}
	n, err = c.Receive(buf, 0)
	if n != 0 || err != io.EOF {
		t.Fatalf("at shutdown got (%d, %v), want (0, io.EOF)", n, err)
	}
	if obs.received != 20 {
		t.Errorf("observer received = %d, want 20", obs.received)
	}
}

func TestReceive_NeverExceedsBuffer(t *testing.T) {
	m := &mockTransport{reads: [][]byte{[]byte("abcdefghij")}}
	c := NewConn(m)

	buf := make([]byte, 16)
	n, err := c.Receive(buf[:4], 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || string(buf[:n]) != "abcd" {
		t.Errorf("got %d %q", n, buf[:n])
	}
	if buf[4] != 0 {
		t.Error("wrote past the requested length")
	}
}

func TestReceive_WaitAll(t *testing.T) {
	m := &mockTransport{reads: [][]byte{[]byte("ab"), []byte("cd"), []byte("ef")}}
	c := NewConn(m)

	buf := make([]byte, 5)
	n, err := c.Receive(buf, RecvWaitAll)
	if err != nil || string(buf[:n]) != "abcde" {
		t.Fatalf("got %q, %v", buf[:n], err)
	}

	// Peer shuts down before the buffer fills: partial count, no error.
	n, err = c.Receive(buf, RecvWaitAll)
	if err != nil || string(buf[:n]) != "f" {
		t.Fatalf("got %q, %v", buf[:n], err)
	}
	if _, err := c.Receive(buf, RecvWaitAll); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestReceive_TransportError(t *testing.T) {
	m := &mockTransport{readErr: syscall.ECONNRESET}
	_, err := NewConn(m).Receive(make([]byte, 8), 0)
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "recv" {
		t.Fatalf("want recv TransportError, got %v", err)
	}
	if !errors.Is(err, syscall.ECONNRESET) {
		t.Error("cause should be preserved")
	}
}

func TestReceive_PeekUnsupported(t *testing.T) {
	m := &mockTransport{reads: [][]byte{[]byte("x")}}
	_, err := NewConn(m).Receive(make([]byte, 8), RecvPeek)
	if !errors.Is(err, ErrFlagsUnsupported) {
		t.Fatalf("err = %v, want ErrFlagsUnsupported", err)
	}
}

func TestReceive_EmptyBuffer(t *testing.T) {
	m := &mockTransport{}
	n, err := NewConn(m).Receive(nil, 0)
	if n != 0 || err != nil {
		t.Errorf("got (%d, %v)", n, err)
	}
}

// ── Shutdown ─────────────────────────────────────────────────────────

func TestShutdown_Unsupported(t *testing.T) {
	m := &mockTransport{}
	err := NewConn(m).Shutdown()
	if !errors.Is(err, ErrShutdownUnsupported) {
		t.Fatalf("err = %v", err)
	}
	if m.closes != 0 {
		t.Error("shutdown must not close the transport")
	}
}

func TestObserver_CommandSent(t *testing.T) {
	m := &mockTransport{}
	obs := &recordingObserver{}
	c := NewConn(m, WithObserver(obs))
	c.Pause()  //nolint:errcheck
	c.Resume() //nolint:errcheck
	if len(obs.sent) != 2 || obs.sent[0] != "trick.var_pause()" || obs.sent[1] != "trick.var_unpause()" {
		t.Errorf("sent = %q", obs.sent)
	}
}
