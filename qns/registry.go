// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qns

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Registry CSV loading. Each (market, environment) pair has one file,
// {market}_{env}.csv, with a required header row and columns
// dataset,cluster,dbtype,node,host,port,port_env,env.

var requiredColumns = []string{"dataset", "cluster", "dbtype", "node", "host", "port", "port_env", "env"}

// Node is one registry endpoint parsed from a CSV row.
type Node struct {
	Dataset string
	Cluster string
	DBType  string
	Name    string
	Host    string
	Port    int
	PortEnv string
	Env     string
}

// LoadNodes reads {market}_{env}.csv from dataDir.
func LoadNodes(market, env, dataDir string) ([]Node, error) {
	filename := strings.ToLower(market) + "_" + strings.ToLower(env) + ".csv"
	path := filepath.Join(dataDir, filename)
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: registry CSV not found: %s", ErrConfig, path)
	}
	return parseCSV(string(text), filename)
}

func parseCSV(text, filename string) ([]Node, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed CSV %s: %v", ErrConfig, filename, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: registry CSV is empty: %s", ErrConfig, filename)
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: registry CSV %s missing columns: %s", ErrConfig, filename, strings.Join(missing, ", "))
	}

	field := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var nodes []Node
	for lineNo, row := range records[1:] {
		port, err := strconv.Atoi(field(row, "port"))
		if err != nil {
			return nil, fmt.Errorf("%w: malformed row %d in %s: bad port %q", ErrConfig, lineNo+2, filename, field(row, "port"))
		}
		nodes = append(nodes, Node{
			Dataset: field(row, "dataset"),
			Cluster: field(row, "cluster"),
			DBType:  field(row, "dbtype"),
			Name:    field(row, "node"),
			Host:    field(row, "host"),
			Port:    port,
			PortEnv: field(row, "port_env"),
			Env:     field(row, "env"),
		})
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: registry CSV has no data rows: %s", ErrConfig, filename)
	}
	return nodes, nil
}
