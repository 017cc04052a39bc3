// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// IPC frame header, 8 bytes:
//
//	byte 0  endianness of the body (0 big, 1 little)
//	byte 1  message kind (0 async, 1 sync request, 2 response)
//	byte 2  compression flag
//	byte 3  reserved
//	bytes 4..7  total message length, in the endianness of byte 0

// packHeader writes a little-endian header into dst (len >= 8).
func packHeader(dst []byte, msgType byte, compressed bool, total int) {
	dst[0] = littleEndian
	dst[1] = msgType
	if compressed {
		dst[2] = 1
	} else {
		dst[2] = 0
	}
	dst[3] = 0
	binary.LittleEndian.PutUint32(dst[4:8], uint32(total))
}

// unpackHeader reads a header, honoring the peer's declared endianness.
func unpackHeader(b []byte) (endian, msgType byte, compressed bool, total int, err error) {
	if len(b) < headerSize {
		return 0, 0, false, 0, fmt.Errorf("%w: header too short: %d bytes", ErrDeserialization, len(b))
	}
	endian = b[0]
	msgType = b[1]
	compressed = b[2] != 0
	if endian == littleEndian {
		total = int(binary.LittleEndian.Uint32(b[4:8]))
	} else {
		total = int(binary.BigEndian.Uint32(b[4:8]))
	}
	return endian, msgType, compressed, total, nil
}

// readFrame reads one complete IPC message (header plus body) from r. The
// returned message is decompressed when the compression flag is set, so the
// result always starts with a plain header of the full uncompressed length.
func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrConnection, err)
	}
	_, _, compressed, total, err := unpackHeader(header)
	if err != nil {
		return nil, err
	}
	if total < headerSize {
		return nil, fmt.Errorf("%w: message length %d < header size", ErrDeserialization, total)
	}
	body := make([]byte, total-headerSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrConnection, err)
	}
	if compressed {
		return Decompress(body, header), nil
	}
	msg := make([]byte, 0, total)
	msg = append(msg, header...)
	msg = append(msg, body...)
	return msg, nil
}
