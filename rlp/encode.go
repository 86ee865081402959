// Copyright 2025 The go-glue Authors
// This file is part of the go-glue library.
//
// The go-glue library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-glue library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-glue library. If not, see <http://www.gnu.org/licenses/>.

// Package rlp implements the RLP serialization format.
//
// Only the encoder subset needed to serialize legacy transactions is provided:
// byte strings, unsigned integers and flat lists. Values are composed with the
// Encode* functions and wrapped with EncodeList.
package rlp

import (
	"math/big"
)

// EncodeBytes encodes b as an RLP string item.
func EncodeBytes(b []byte) []byte {
	if len(b) == 1 && b[0] <= 0x7f {
		return []byte{b[0]}
	}
	return append(encodeLength(len(b), 0x80), b...)
}

// EncodeUint64 encodes v as an RLP string item using the minimal big-endian
// representation. Zero encodes as the empty string.
func EncodeUint64(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	return EncodeBytes(putUint(v))
}

// EncodeBig encodes v as an RLP string item using the minimal big-endian
// representation. nil and zero encode as the empty string.
func EncodeBig(v *big.Int) []byte {
	if v == nil || v.Sign() == 0 {
		return []byte{0x80}
	}
	return EncodeBytes(v.Bytes())
}

// EncodeList wraps the concatenation of already-encoded items in a list header.
func EncodeList(items ...[]byte) []byte {
	var payload []byte
	for _, item := range items {
		payload = append(payload, item...)
	}
	return append(encodeLength(len(payload), 0xc0), payload...)
}

// encodeLength returns the RLP header for a payload of the given length.
// The offset is 0x80 for strings and 0xc0 for lists.
func encodeLength(length int, offset byte) []byte {
	if length < 56 {
		return []byte{offset + byte(length)}
	}
	lenBytes := putUint(uint64(length))
	header := make([]byte, 0, 1+len(lenBytes))
	header = append(header, offset+55+byte(len(lenBytes)))
	return append(header, lenBytes...)
}

// putUint returns the minimal big-endian representation of v.
func putUint(v uint64) []byte {
	var buf [8]byte
	n := 0
	for i := 7; i >= 0; i-- {
		buf[7-i] = byte(v >> (8 * uint(i)))
	}
	for n < 8 && buf[n] == 0 {
		n++
	}
	return buf[n:]
}
