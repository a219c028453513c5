// Package varserver is a client for the Trick Variable Server, the
// line-oriented telemetry port of a running Trick simulation.
//
// # Protocol Overview
//
// Every request is one ASCII line addressed to the "trick" namespace and
// terminated by a single newline:
//
//	trick.var_add("dyn.baseball.pos[0]")\n
//	trick.var_cycle(0.5)\n
//	trick.var_set_copy_mode(1)\n
//
// Replies are an untyped byte stream. This package does not frame or
// parse them; Receive hands back whatever bytes are available.
//
// # Basic Usage
//
// The caller dials and owns the connection; Conn only encodes and
// writes:
//
//	nc, err := net.Dial("tcp", "localhost:7000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	conn := varserver.NewConn(nc, varserver.WithAddr("localhost:7000"))
//	defer conn.Close() // sends trick.var_exit() first
//
//	conn.SetCycle(0.5)
//	conn.AddVariable("time")
//	conn.AddVariableWithUnits("dyn.baseball.pos[0]", "ft")
//
//	buf := make([]byte, 2048)
//	for {
//	    n, err := conn.Receive(buf, 0)
//	    if err != nil {
//	        break // io.EOF on orderly shutdown
//	    }
//	    os.Stdout.Write(buf[:n])
//	}
//
// # Command Bound
//
// No command longer than MaxCommandLength bytes (newline included) is
// ever written. Oversized input is rejected with *EncodingError before
// any I/O and is never truncated.
//
// # Thread Safety
//
// Conn has no internal locking. One goroutine may send while another
// receives, but two goroutines must not send (or receive) on the same
// Conn at once without external synchronisation. Separate Conns are
// independent.
package varserver
