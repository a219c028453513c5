package tunnel

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "trickvs/internal/errors"
	"trickvs/util"
)

// SSHConfig describes the gateway host in front of the simulation.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// KeepAlive is the interval between keepalive requests. A stream of
	// sim data can go quiet for minutes while paused, so a dead gateway
	// is otherwise only noticed on the next command. Negative disables.
	KeepAlive time.Duration
}

// Addr returns the gateway's host:port.
func (c *SSHConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SSHTunnel forwards variable server connections through one SSH client
// connection to the gateway (direct-tcpip channels).
type SSHTunnel struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.Mutex
	client *ssh.Client
	done   chan struct{} // closed once client is gone
}

// NewSSHTunnel fills in SSHConfig defaults and returns an unconnected
// tunnel.
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 15 * time.Second
	}
	return &SSHTunnel{config: cfg, logger: logger}
}

// Connect dials the gateway and authenticates. The handshake is bounded
// by ctx as well as ConnTimeout.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	auth, err := BuildAuthMethods(t.config)
	if err != nil {
		return ncerr.WrapSSH("auth", t.config.Host, t.config.Port, err)
	}
	verify, err := hostKeyCallback(t.config)
	if err != nil {
		return ncerr.WrapSSH("hostkey", t.config.Host, t.config.Port, err)
	}

	addr := t.config.Addr()
	t.logger.Verbose("ssh: connecting to %s as %q", addr, t.config.User)

	d := net.Dialer{Timeout: t.config.ConnTimeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ncerr.Wrap("dial", addr, err)
	}
	return t.start(ctx, raw, &ssh.ClientConfig{
		User:            t.config.User,
		Auth:            auth,
		HostKeyCallback: verify,
		Timeout:         t.config.ConnTimeout,
	})
}

// start runs the client handshake over raw and, on success, installs
// the client and its watchers.
func (t *SSHTunnel) start(ctx context.Context, raw net.Conn, cc *ssh.ClientConfig) error {
	if dl, ok := ctx.Deadline(); ok {
		raw.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { raw.SetDeadline(time.Now()) })
	conn, chans, reqs, err := ssh.NewClientConn(raw, t.config.Addr(), cc)
	stop()
	if err != nil {
		raw.Close()
		return ncerr.WrapSSH("handshake", t.config.Host, t.config.Port, err)
	}
	raw.SetDeadline(time.Time{})

	client := ssh.NewClient(conn, chans, reqs)
	done := make(chan struct{})

	t.mu.Lock()
	old := t.client
	t.client, t.done = client, done
	t.mu.Unlock()
	if old != nil {
		old.Close()
	}

	go t.watch(client, done)
	if t.config.KeepAlive > 0 {
		go t.keepAlive(client, done, t.config.KeepAlive)
	}
	t.logger.Verbose("ssh: connected to %s (%s)", t.config.Addr(), conn.ServerVersion())
	return nil
}

// Dial opens a forwarded TCP connection to the variable server. The
// SSH library's Dial takes no context, so ctx is honored by abandoning
// the pending channel open.
func (t *SSHTunnel) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	client := t.current()
	if client == nil {
		return nil, ncerr.ErrNotConnected
	}
	if network != "tcp" {
		return nil, fmt.Errorf("ssh forward: network %q not supported", network)
	}

	t.logger.Debug("ssh: forwarding to %s", address)
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := client.Dial(network, address)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, ncerr.WrapSSH("channel", t.config.Host, t.config.Port,
				fmt.Errorf("forward to %s: %w", address, r.err))
		}
		return r.conn, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ncerr.Wrap("dial", address, ctx.Err())
	}
}

// Close disconnects from the gateway. Forwarded connections die with it.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// IsAlive reports whether the gateway connection is up.
func (t *SSHTunnel) IsAlive() bool { return t.current() != nil }

// current returns the live client, or nil.
func (t *SSHTunnel) current() *ssh.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	select {
	case <-t.done:
		return nil
	default:
		return t.client
	}
}

func (t *SSHTunnel) watch(client *ssh.Client, done chan struct{}) {
	err := client.Wait()
	close(done)
	if err != nil {
		t.logger.Verbose("ssh: gateway connection ended: %v", err)
	} else {
		t.logger.Verbose("ssh: gateway connection ended")
	}
}

// keepAlive pings the gateway every interval and drops the connection
// after a failed ping, which wakes any forwarded reads with an error.
func (t *SSHTunnel) keepAlive(client *ssh.Client, done <-chan struct{}, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			reply := make(chan error, 1)
			go func() {
				_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
				reply <- err
			}()
			var err error
			select {
			case <-done:
				return
			case err = <-reply:
			case <-time.After(interval):
				err = fmt.Errorf("no reply within %s", interval)
			}
			if err != nil {
				t.logger.Warn("ssh: gateway stopped answering keepalives: %v", err)
				client.Close()
				return
			}
		}
	}
}
