// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import "fmt"

// The IPC handshake: on connect the client sends "user:password" followed by
// a capability byte and a NUL terminator; the server replies with a single
// byte carrying the negotiated capability. An empty reply means the server
// rejected the credentials.

// buildHandshake builds the handshake payload.
func buildHandshake(user, password string, capability byte) []byte {
	cred := ""
	if user != "" || password != "" {
		cred = user + ":" + password
	}
	out := make([]byte, 0, len(cred)+2)
	out = append(out, cred...)
	out = append(out, capability, 0)
	return out
}

// parseHandshakeReply interprets the server's handshake response.
func parseHandshakeReply(data []byte) (byte, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: connection rejected (empty response)", ErrAuthentication)
	}
	if len(data) != 1 {
		return 0, fmt.Errorf("%w: unexpected response length %d", ErrHandshake, len(data))
	}
	return data[0], nil
}
