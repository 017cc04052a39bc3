// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"errors"
	"fmt"
)

// Error taxonomy. Families nest by wrapping, so errors.Is(err, ErrConnection)
// holds for every member of the connection family, including handshake and
// pool errors.
var (
	ErrConnection     = errors.New("qipc: connection error")
	ErrHandshake      = fmt.Errorf("%w: handshake failed", ErrConnection)
	ErrAuthentication = fmt.Errorf("%w: authentication rejected", ErrHandshake)
	ErrPool           = fmt.Errorf("%w: pool", ErrConnection)
	ErrPoolExhausted  = fmt.Errorf("%w exhausted", ErrPool)

	ErrSerialization   = errors.New("qipc: serialization error")
	ErrDeserialization = errors.New("qipc: deserialization error")

	ErrQuery = errors.New("qipc: query error")

	ErrModel          = errors.New("qipc: model error")
	ErrSchema         = errors.New("qipc: schema error")
	ErrReflection     = errors.New("qipc: reflection error")
	ErrEngineNotFound = errors.New("qipc: engine not found")
)

// ErrQ is a sentinel for use with errors.Is to check whether any error in a
// chain is a *QError.
var ErrQ = &QError{}

// QError is an error returned by the q process itself (type -128 on the
// wire). It carries the server's message verbatim and is never retried.
type QError struct {
	Msg string
}

func (e *QError) Error() string {
	return "q error: " + e.Msg
}

// Is supports errors.Is by matching any *QError target as well as the
// query-error family sentinel.
func (e *QError) Is(target error) bool {
	if _, ok := target.(*QError); ok {
		return true
	}
	return target == ErrQuery
}
