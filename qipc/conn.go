// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ConnState tracks the connection lifecycle.
type ConnState int32

const (
	StateClosed ConnState = iota
	StateHandshaking
	StateOpen
	StateBroken
)

func (s ConnState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateBroken:
		return "broken"
	}
	return "unknown"
}

// Conn is a single connection to a q process. At most one request is in
// flight at a time; Query serializes callers. Context-accepting methods are
// the cooperative variant of the same operations: cancellation at an I/O
// boundary marks the connection broken so it is never reused half-read.
type Conn struct {
	host     string
	port     int
	user     string
	password string
	timeout  time.Duration
	tlsConf  *tls.Config

	mu         sync.Mutex
	sock       net.Conn
	state      ConnState
	capability byte

	bytesSent     int64
	bytesReceived int64
}

// Open establishes the connection and performs the IPC handshake.
func (c *Conn) Open() error {
	return c.OpenContext(context.Background())
}

// OpenContext establishes the connection and performs the IPC handshake,
// honoring ctx for the TCP connect, TLS handshake, and handshake reply.
func (c *Conn) OpenContext(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock != nil && c.state == StateOpen {
		return nil
	}

	dialer := net.Dialer{Timeout: c.timeout}
	sock, err := dialer.DialContext(ctx, "tcp", c.addr())
	if err != nil {
		return fmt.Errorf("%w: cannot connect to %s: %v", ErrConnection, c.addr(), err)
	}

	if c.tlsConf != nil {
		conf := c.tlsConf
		if conf.ServerName == "" {
			conf = conf.Clone()
			conf.ServerName = c.host
		}
		tlsSock := tls.Client(sock, conf)
		if err := tlsSock.HandshakeContext(ctx); err != nil {
			sock.Close()
			return fmt.Errorf("%w: TLS handshake with %s: %v", ErrConnection, c.addr(), err)
		}
		sock = tlsSock
	}

	c.sock = sock
	c.state = StateHandshaking
	if err := c.handshakeLocked(ctx); err != nil {
		sock.Close()
		c.sock = nil
		c.state = StateClosed
		return err
	}
	c.state = StateOpen
	slog.Debug("connected", "addr", c.addr(), "capability", c.capability)
	return nil
}

func (c *Conn) handshakeLocked(ctx context.Context) error {
	stop := c.watch(ctx)
	defer stop()
	c.armDeadline()

	if _, err := c.sock.Write(buildHandshake(c.user, c.password, capabilityByte)); err != nil {
		return fmt.Errorf("%w: sending credentials: %v", ErrHandshake, err)
	}
	reply := make([]byte, 1)
	n, err := c.sock.Read(reply)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// Server closed without a capability byte: credentials rejected.
			return fmt.Errorf("%w: server closed connection", ErrAuthentication)
		}
		return fmt.Errorf("%w: reading reply: %v", ErrHandshake, err)
	}
	negotiated, err := parseHandshakeReply(reply[:n])
	if err != nil {
		return err
	}
	c.capability = negotiated
	return nil
}

// Close closes the connection. Safe to call on any state.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Conn) closeLocked() error {
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	c.state = StateClosed
	return err
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen reports whether the connection is usable.
func (c *Conn) IsOpen() bool {
	return c.State() == StateOpen
}

// Capability returns the protocol capability byte negotiated at handshake.
func (c *Conn) Capability() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capability
}

// Stats returns cumulative bytes sent and received.
func (c *Conn) Stats() (sent, received int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesSent, c.bytesReceived
}

func (c *Conn) addr() string {
	return net.JoinHostPort(c.host, fmt.Sprint(c.port))
}

// armDeadline applies the per-operation I/O timeout, when configured.
func (c *Conn) armDeadline() {
	if c.sock == nil {
		return
	}
	if c.timeout > 0 {
		c.sock.SetDeadline(time.Now().Add(c.timeout))
	} else {
		c.sock.SetDeadline(time.Time{})
	}
}

// watch aborts in-flight I/O when ctx is canceled by expiring the socket
// deadline. The caller must invoke the returned stop function.
func (c *Conn) watch(ctx context.Context) func() bool {
	if ctx.Done() == nil {
		return func() bool { return false }
	}
	sock := c.sock
	return context.AfterFunc(ctx, func() {
		if sock != nil {
			sock.SetDeadline(time.Now())
		}
	})
}

// Send serializes a value and writes it as a single frame.
func (c *Conn) Send(v any, msgType byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(context.Background(), v, msgType)
}

func (c *Conn) sendLocked(ctx context.Context, v any, msgType byte) error {
	if c.sock == nil || c.state != StateOpen {
		return fmt.Errorf("%w: connection is not open", ErrConnection)
	}
	msg, err := Marshal(v, msgType)
	if err != nil {
		return err
	}
	stop := c.watch(ctx)
	defer stop()
	c.armDeadline()
	if _, err := c.sock.Write(msg); err != nil {
		c.state = StateBroken
		return fmt.Errorf("%w: write: %v", ErrConnection, err)
	}
	c.bytesSent += int64(len(msg))
	return nil
}

// Receive reads one frame and decodes it. A decode failure implies the
// stream position is lost, so the connection is marked broken.
func (c *Conn) Receive() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, v, err := c.receiveLocked(context.Background())
	return v, err
}

func (c *Conn) receiveLocked(ctx context.Context) (byte, any, error) {
	if c.sock == nil || c.state != StateOpen {
		return 0, nil, fmt.Errorf("%w: connection is not open", ErrConnection)
	}
	stop := c.watch(ctx)
	defer stop()
	c.armDeadline()
	msg, err := readFrame(c.sock)
	if err != nil {
		c.state = StateBroken
		return 0, nil, err
	}
	c.bytesReceived += int64(len(msg))
	msgType, v, err := Unmarshal(msg)
	if err != nil {
		if !errors.Is(err, ErrQ) {
			// Corrupt stream; subsequent reads would be misframed.
			c.state = StateBroken
		}
		return msgType, nil, err
	}
	return msgType, v, nil
}

// Query sends a q expression synchronously and returns the decoded reply.
// Extra arguments use the call form (expression; arg1; arg2; ...).
func (c *Conn) Query(expr string, args ...any) (any, error) {
	return c.QueryContext(context.Background(), expr, args...)
}

// QueryContext is Query with cancellation at every suspension point.
func (c *Conn) QueryContext(ctx context.Context, expr string, args ...any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var payload any = expr
	if len(args) > 0 {
		call := make([]any, 0, len(args)+1)
		call = append(call, expr)
		call = append(call, args...)
		payload = call
	}
	if err := c.sendLocked(ctx, payload, MsgSync); err != nil {
		return nil, err
	}
	_, v, err := c.receiveLocked(ctx)
	return v, err
}

// Ping checks liveness with a trivial query.
func (c *Conn) Ping() bool {
	if !c.IsOpen() {
		return false
	}
	v, err := c.Query("1b")
	return err == nil && v != nil
}
