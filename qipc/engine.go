// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Engine is the configuration point for connecting to one q process. It is a
// connection factory; it holds no sockets itself.
type Engine struct {
	Host     string
	Port     int
	User     string
	Password string
	// Timeout applies to every I/O call on connections made by this engine.
	Timeout time.Duration
	// TLS enables transport security when non-nil. The zero &tls.Config{}
	// verifies against system roots; set InsecureSkipVerify or certificates
	// for other modes.
	TLS *tls.Config
	// Retry configures session-level reconnect-and-retry. Nil disables it.
	Retry *RetryPolicy
}

// NewEngine creates an engine for the given endpoint.
func NewEngine(host string, port int) *Engine {
	return &Engine{Host: host, Port: port}
}

// ParseDSN creates an engine from a DSN of the form
// scheme://[user:pass@]host:port with scheme kdb or kdb+tls.
func ParseDSN(dsn string) (*Engine, error) {
	e := &Engine{}
	rest := dsn
	switch {
	case strings.HasPrefix(rest, "kdb+tls://"):
		rest = strings.TrimPrefix(rest, "kdb+tls://")
		e.TLS = &tls.Config{}
	case strings.HasPrefix(rest, "kdb://"):
		rest = strings.TrimPrefix(rest, "kdb://")
	default:
		return nil, fmt.Errorf("%w: unsupported DSN scheme in %q", ErrConnection, dsn)
	}

	if at := strings.LastIndex(rest, "@"); at >= 0 {
		creds := rest[:at]
		rest = rest[at+1:]
		if colon := strings.Index(creds, ":"); colon >= 0 {
			e.User, e.Password = creds[:colon], creds[colon+1:]
		} else {
			e.User = creds
		}
	}

	colon := strings.LastIndex(rest, ":")
	if colon < 0 {
		return nil, fmt.Errorf("%w: DSN %q has no port", ErrConnection, dsn)
	}
	port, err := strconv.Atoi(rest[colon+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: DSN %q has invalid port: %v", ErrConnection, dsn, err)
	}
	e.Host = rest[:colon]
	e.Port = port
	return e, nil
}

// Connect creates a new, unopened connection.
func (e *Engine) Connect() *Conn {
	return &Conn{
		host:     e.Host,
		port:     e.Port,
		user:     e.User,
		password: e.Password,
		timeout:  e.Timeout,
		tlsConf:  e.TLS,
	}
}

// Addr returns host:port.
func (e *Engine) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

func (e *Engine) String() string {
	return fmt.Sprintf("Engine(%s)", e.Addr())
}
