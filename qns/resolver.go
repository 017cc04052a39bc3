// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qns

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Query-farm/qipc-go/qipc"
)

// Registry query building, response parsing, and node failover.

// buildSvcsQuery renders the registry catalog query: .qns.registry for all
// services, or .qns.svcs with symbol prefixes.
func buildSvcsQuery(prefixes []string) string {
	if len(prefixes) == 0 {
		return ".qns.registry"
	}
	var b strings.Builder
	b.WriteString(".qns.svcs")
	for _, p := range prefixes {
		b.WriteByte('`')
		b.WriteString(p)
	}
	return b.String()
}

// resolveServices queries the registry nodes in order, returning the first
// successful catalog. Each failing node is logged and skipped; when all
// nodes fail the collected errors surface as one ErrRegistry.
func resolveServices(nodes []Node, prefixes []string, user, password string, timeout time.Duration) ([]ServiceInfo, error) {
	query := buildSvcsQuery(prefixes)
	var failures []string

	for _, node := range nodes {
		engine := &qipc.Engine{
			Host:     node.Host,
			Port:     node.Port,
			User:     user,
			Password: password,
			Timeout:  timeout,
		}
		services, err := queryNode(engine, query)
		if err != nil {
			msg := fmt.Sprintf("%s:%d: %v", node.Host, node.Port, err)
			slog.Warn("registry node failed", "node", node.Name, "err", err)
			failures = append(failures, msg)
			continue
		}
		return services, nil
	}

	return nil, fmt.Errorf("%w: all %d registry node(s) failed:\n  %s",
		ErrRegistry, len(nodes), strings.Join(failures, "\n  "))
}

func queryNode(engine *qipc.Engine, query string) ([]ServiceInfo, error) {
	session, err := qipc.NewSession(engine)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	raw, err := session.Raw(query)
	if err != nil {
		return nil, err
	}
	return parseServiceRows(raw)
}

// parseServiceRows converts the registry's catalog table into ServiceInfo
// rows.
func parseServiceRows(raw any) ([]ServiceInfo, error) {
	rs, ok := raw.(*qipc.ResultSet)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected catalog response %T", ErrRegistry, raw)
	}
	services := make([]ServiceInfo, 0, rs.Len())
	for row := range rs.Rows() {
		svc := ServiceInfo{
			Dataset: row.String("dataset"),
			Cluster: row.String("cluster"),
			DBType:  row.String("dbtype"),
			Node:    row.String("node"),
			Host:    row.String("host"),
			SSL:     row.String("ssl"),
			IP:      row.String("ip"),
			Env:     row.String("env"),
		}
		switch p := row.Value("port").(type) {
		case int64:
			svc.Port = int(p)
		case int32:
			svc.Port = int(p)
		case int16:
			svc.Port = int(p)
		}
		services = append(services, svc)
	}
	return services, nil
}
