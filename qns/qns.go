// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package qns is a name-service client for kdb+ estates: it loads registry
// endpoints from per-(market, environment) CSV files, queries the registry's
// service catalog with failover across nodes, and resolves fully-qualified
// service names (DATASET.CLUSTER.DBTYPE.NODE) to connection engines.
package qns

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Query-farm/qipc-go/qipc"
)

// Error families of the name service.
var (
	ErrConfig          = errors.New("qns: config error")
	ErrRegistry        = errors.New("qns: registry unreachable")
	ErrServiceNotFound = errors.New("qns: service not found")
)

// ServiceInfo is one discovered kdb+ service endpoint.
type ServiceInfo struct {
	Dataset string
	Cluster string
	DBType  string
	Node    string
	Host    string
	Port    int
	SSL     string
	IP      string
	Env     string
}

// TLS reports whether the service endpoint expects TLS.
func (s ServiceInfo) TLS() bool {
	return strings.EqualFold(s.SSL, "tls")
}

// FQN is the fully-qualified service name DATASET.CLUSTER.DBTYPE.NODE.
func (s ServiceInfo) FQN() string {
	return s.Dataset + "." + s.Cluster + "." + s.DBType + "." + s.Node
}

// Client discovers kdb+ service endpoints through a registry.
type Client struct {
	market   string
	env      string
	user     string
	password string
	timeout  time.Duration
	nodes    []Node
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials sets the registry credentials.
func WithCredentials(user, password string) Option {
	return func(c *Client) { c.user, c.password = user, password }
}

// WithTimeout bounds each registry query. Default 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New loads the registry nodes for a market and environment from
// {market}_{env}.csv in dataDir and returns a client over them.
func New(market, env, dataDir string, opts ...Option) (*Client, error) {
	nodes, err := LoadNodes(market, env, dataDir)
	if err != nil {
		return nil, err
	}
	c := &Client{market: market, env: env, timeout: 10 * time.Second, nodes: nodes}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Lookup queries the registry and returns services matching the given
// prefixes (dataset, cluster, dbtype); none returns all services.
func (c *Client) Lookup(prefixes ...string) ([]ServiceInfo, error) {
	services, err := resolveServices(c.nodes, prefixes, c.user, c.password, c.timeout)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		name := strings.Join(prefixes, ".")
		if name == "" {
			name = "(all)"
		}
		return nil, fmt.Errorf("%w: no services match %s", ErrServiceNotFound, name)
	}
	return services, nil
}

// Engine resolves an exact fully-qualified service name to an engine.
func (c *Client) Engine(serviceName string) (*qipc.Engine, error) {
	parts := strings.Split(serviceName, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: service name must be DATASET.CLUSTER.DBTYPE.NODE, got %q", ErrConfig, serviceName)
	}
	services, err := c.Lookup(parts[0], parts[1], parts[2])
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		if svc.FQN() == serviceName {
			return c.buildEngine(svc), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, serviceName)
}

// Engines resolves every matching service to an engine, for failover or
// round-robin pools.
func (c *Client) Engines(prefixes ...string) ([]*qipc.Engine, error) {
	services, err := c.Lookup(prefixes...)
	if err != nil {
		return nil, err
	}
	engines := make([]*qipc.Engine, len(services))
	for i, svc := range services {
		engines[i] = c.buildEngine(svc)
	}
	return engines, nil
}

func (c *Client) buildEngine(svc ServiceInfo) *qipc.Engine {
	e := &qipc.Engine{
		Host:     svc.Host,
		Port:     svc.Port,
		User:     c.user,
		Password: c.password,
		Timeout:  c.timeout,
	}
	if svc.TLS() {
		e.TLS = &tls.Config{}
	}
	return e
}
