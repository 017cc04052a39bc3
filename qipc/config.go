// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/viper"
)

// File-based engine configuration. The format is selected by extension
// (.json, .toml, .yaml/.yml); each engine entry is either a dsn string or a
// host/port/user/password/timeout mapping:
//
//	rdb:
//	  host: eq-rdb
//	  port: 5010
//	hdb:
//	  dsn: kdb://eq-hdb:5012

// RegistryFromFile loads an EngineRegistry from a config file.
func RegistryFromFile(path string) (*EngineRegistry, error) {
	settings, err := loadSettings(path)
	if err != nil {
		return nil, err
	}
	return registryFromSettings(settings)
}

// GroupFromFile loads a two-level EngineGroup from a config file: domains at
// the top level, engines below.
func GroupFromFile(path string) (*EngineGroup, error) {
	settings, err := loadSettings(path)
	if err != nil {
		return nil, err
	}
	group := NewEngineGroup()
	for _, domain := range sortedKeys(settings) {
		sub, ok := settings[domain].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: domain %q is not a mapping", ErrEngineNotFound, domain)
		}
		reg, err := registryFromSettings(sub)
		if err != nil {
			return nil, fmt.Errorf("domain %q: %w", domain, err)
		}
		group.Register(domain, reg)
	}
	return group, nil
}

func loadSettings(path string) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrEngineNotFound, path, err)
	}
	return v.AllSettings(), nil
}

func registryFromSettings(settings map[string]any) (*EngineRegistry, error) {
	reg := NewEngineRegistry()
	for _, name := range sortedKeys(settings) {
		entry, ok := settings[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: engine %q is not a mapping", ErrEngineNotFound, name)
		}
		e, err := engineFromSettings(entry)
		if err != nil {
			return nil, fmt.Errorf("engine %q: %w", name, err)
		}
		reg.Register(name, e)
	}
	return reg, nil
}

func engineFromSettings(entry map[string]any) (*Engine, error) {
	if dsn, ok := entry["dsn"].(string); ok {
		return ParseDSN(dsn)
	}
	e := &Engine{Host: "localhost", Port: 5000}
	if host, ok := entry["host"].(string); ok {
		e.Host = host
	}
	switch p := entry["port"].(type) {
	case int:
		e.Port = p
	case int64:
		e.Port = int(p)
	case float64:
		e.Port = int(p)
	}
	if user, ok := entry["user"].(string); ok {
		e.User = user
	}
	if pass, ok := entry["password"].(string); ok {
		e.Password = pass
	}
	if t, ok := entry["timeout"].(string); ok {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timeout %q: %v", ErrEngineNotFound, t, err)
		}
		e.Timeout = d
	}
	return e, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
