package qipc

import (
	"net"
	"strconv"
	"strings"
	"testing"
)

// In-process mock q server for transport and session tests. It speaks this
// package's codec: handshake, framed sync requests, framed responses.

type testServer struct {
	t  *testing.T
	ln net.Listener
	// handle serves one accepted connection after the handshake.
	handle func(c net.Conn)
}

// startServer runs a mock server; handle is invoked per connection after
// the handshake reply is sent.
func startServer(t *testing.T, handle func(c net.Conn)) *testServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &testServer{t: t, ln: ln, handle: handle}
	go s.acceptLoop()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *testServer) acceptLoop() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			if !serveHandshake(c) {
				return
			}
			if s.handle != nil {
				s.handle(c)
			}
		}(c)
	}
}

func (s *testServer) engine() *Engine {
	addr := s.ln.Addr().(*net.TCPAddr)
	return &Engine{Host: "127.0.0.1", Port: addr.Port}
}

// serveHandshake consumes "user:pass\x03\x00" and replies with a capability
// byte.
func serveHandshake(c net.Conn) bool {
	buf := make([]byte, 1)
	for {
		if _, err := c.Read(buf); err != nil {
			return false
		}
		if buf[0] == 0 {
			break
		}
	}
	_, err := c.Write([]byte{0x03})
	return err == nil
}

// readRequest reads one frame and returns the request expression (the char
// vector, or the first element of a call form) and any call arguments.
func readRequest(t *testing.T, c net.Conn) (string, []any, bool) {
	msg, err := readFrame(c)
	if err != nil {
		return "", nil, false
	}
	_, v, err := Unmarshal(msg)
	if err != nil {
		t.Errorf("mock server: decoding request: %v", err)
		return "", nil, false
	}
	switch x := v.(type) {
	case string:
		return x, nil, true
	case []any:
		if len(x) == 0 {
			return "", nil, false
		}
		expr, _ := x[0].(string)
		return expr, x[1:], true
	}
	return "", nil, false
}

func writeResponse(t *testing.T, c net.Conn, v any) {
	t.Helper()
	msg, err := Marshal(v, MsgResponse)
	if err != nil {
		t.Errorf("mock server: encoding response: %v", err)
		return
	}
	if _, err := c.Write(msg); err != nil {
		t.Errorf("mock server: writing response: %v", err)
	}
}

// errorFrame builds a server error response (type -128, NUL-terminated
// message).
func errorFrame(msg string) []byte {
	body := append([]byte{0x80}, msg...)
	body = append(body, 0)
	frame := make([]byte, headerSize+len(body))
	packHeader(frame, MsgResponse, false, len(frame))
	copy(frame[headerSize:], body)
	return frame
}

// expressionServer answers each request by looking up the expression in a
// reply table; unknown expressions get a q error.
func expressionServer(t *testing.T, replies map[string]any) func(c net.Conn) {
	return func(c net.Conn) {
		for {
			expr, _, ok := readRequest(t, c)
			if !ok {
				return
			}
			if v, found := lookupReply(replies, expr); found {
				writeResponse(t, c, v)
			} else {
				c.Write(errorFrame(expr))
			}
		}
	}
}

func lookupReply(replies map[string]any, expr string) (any, bool) {
	if v, ok := replies[expr]; ok {
		return v, true
	}
	// "2+3"-style arithmetic used by ping and smoke tests.
	if strings.Contains(expr, "+") {
		parts := strings.SplitN(expr, "+", 2)
		a, err1 := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		b, err2 := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err1 == nil && err2 == nil {
			return a + b, true
		}
	}
	if expr == "1b" {
		return true, true
	}
	return nil, false
}
