// Package metrics counts what a trickvs session did: commands written,
// bytes streamed back from the variable server and failures.
//
// A *Collector satisfies varserver.Observer, so it can be attached to
// a Conn with varserver.WithObserver. All methods are safe for
// concurrent use and a nil *Collector is a valid no-op receiver.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a trickvs session.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	commandsSent      atomic.Int64
	bytesOut          atomic.Int64
	receives          atomic.Int64
	bytesIn           atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastCommand  string
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── varserver.Observer ───────────────────────────────────────────────

// CommandSent records one command line of n bytes written to the server.
func (c *Collector) CommandSent(cmd string, n int) {
	if c == nil {
		return
	}
	c.commandsSent.Add(1)
	c.bytesOut.Add(int64(n))
	c.mu.Lock()
	c.lastCommand = cmd
	c.mu.Unlock()
}

// BytesReceived records one successful receive of n bytes.
func (c *Collector) BytesReceived(n int) {
	if c == nil {
		return
	}
	c.receives.Add(1)
	c.bytesIn.Add(int64(n))
}

// Failed records a failed operation.
func (c *Collector) Failed(op string, err error) {
	if c == nil {
		return
	}
	msg := op
	if err != nil {
		msg = op + ": " + err.Error()
	}
	c.RecordError(msg)
}

// CommandCount returns the number of commands written.
func (c *Collector) CommandCount() int64 {
	if c == nil {
		return 0
	}
	return c.commandsSent.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	ConnectionsActive int64  `json:"connections_active"`
	ConnectionsTotal  int64  `json:"connections_total"`
	CommandsSent      int64  `json:"commands_sent"`
	BytesOut          int64  `json:"bytes_out"`
	Receives          int64  `json:"receives"`
	BytesIn           int64  `json:"bytes_in"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastCommand       string `json:"last_command,omitempty"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		CommandsSent:      c.commandsSent.Load(),
		BytesOut:          c.bytesOut.Load(),
		Receives:          c.receives.Load(),
		BytesIn:           c.bytesIn.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
		LastCommand:       c.lastCommand,
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
