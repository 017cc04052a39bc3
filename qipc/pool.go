// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// PoolConfig sizes a connection pool.
type PoolConfig struct {
	MinSize int
	MaxSize int
	// Timeout bounds Acquire when the pool is at capacity.
	Timeout time.Duration
	// CheckOnAcquire pings each connection before handing it out, replacing
	// dead ones transparently.
	CheckOnAcquire bool
}

// DefaultPoolConfig returns the standard sizing: 1..10 connections, 30s
// acquire timeout, health checks on.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MinSize: 1, MaxSize: 10, Timeout: 30 * time.Second, CheckOnAcquire: true}
}

// Pool is a bounded set of connections to one engine. It is safe for
// concurrent use; a semaphore bounds the number of outstanding connections
// and Acquire suspends when the pool is exhausted.
type Pool struct {
	engine *Engine
	cfg    PoolConfig
	sem    *semaphore.Weighted

	mu     sync.Mutex
	idle   []*Conn
	size   int
	closed bool
}

// NewPool creates a pool and pre-opens MinSize connections.
func (e *Engine) NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive", ErrPool)
	}
	if cfg.MinSize > cfg.MaxSize {
		return nil, fmt.Errorf("%w: min size %d > max size %d", ErrPool, cfg.MinSize, cfg.MaxSize)
	}
	p := &Pool{
		engine: e,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxSize)),
	}
	for range cfg.MinSize {
		conn, err := p.openConn()
		if err != nil {
			p.Close()
			return nil, err
		}
		p.mu.Lock()
		p.idle = append(p.idle, conn)
		p.mu.Unlock()
	}
	return p, nil
}

func (p *Pool) openConn() (*Conn, error) {
	conn := p.engine.Connect()
	if err := conn.Open(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.size++
	p.mu.Unlock()
	return conn, nil
}

func (p *Pool) dropConn(conn *Conn) {
	conn.Close()
	p.mu.Lock()
	p.size--
	p.mu.Unlock()
}

// Acquire returns an idle connection, opening a new one when below capacity.
// At capacity it suspends until a release or the pool timeout (or ctx)
// expires, surfacing ErrPoolExhausted on deadline.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: pool is closed", ErrPool)
	}
	p.mu.Unlock()

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: no connections available (pool size %d)", ErrPoolExhausted, p.cfg.MaxSize)
		}
		return nil, fmt.Errorf("%w: %v", ErrPool, err)
	}

	conn, err := p.takeLocked()
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	if p.cfg.CheckOnAcquire {
		for !conn.Ping() {
			slog.Debug("replacing dead pooled connection", "addr", p.engine.Addr())
			p.dropConn(conn)
			conn, err = p.openConn()
			if err != nil {
				p.sem.Release(1)
				return nil, err
			}
		}
	}
	return conn, nil
}

// takeLocked pops an idle connection or opens a fresh one.
func (p *Pool) takeLocked() (*Conn, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()
	return p.openConn()
}

// Release returns a connection to the idle set. A connection released in a
// broken or closed state is discarded and its slot freed.
func (p *Pool) Release(conn *Conn) {
	p.mu.Lock()
	if p.closed {
		p.size--
		p.mu.Unlock()
		conn.Close()
		p.sem.Release(1)
		return
	}
	p.mu.Unlock()

	if conn.State() == StateOpen {
		p.mu.Lock()
		p.idle = append(p.idle, conn)
		p.mu.Unlock()
	} else {
		p.dropConn(conn)
	}
	p.sem.Release(1)
}

// Close closes every idle connection and marks the pool closed. Connections
// currently held by callers are closed when released.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.size -= len(idle)
	p.mu.Unlock()
	for _, conn := range idle {
		conn.Close()
	}
}

// Size returns the current connection count, in-use plus idle.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}
