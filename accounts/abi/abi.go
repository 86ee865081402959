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

// Package abi implements contract call encoding for the fixed ABI surface the
// facilitator talks to: the EIP-3009 token and the agent registries.
//
// The contract methods are known at compile time, so packing takes the
// canonical method signature and a Go value per argument instead of parsing
// JSON ABI definitions at runtime.
package abi

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/common/math"
	"github.com/probeum/go-glue/crypto"
)

// WordSize is the size of an ABI word in bytes.
const WordSize = 32

var errShortReturn = errors.New("abi: return data too short")

// MethodID returns the 4-byte selector of the canonical method signature,
// e.g. "balanceOf(address)".
func MethodID(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// PackCall encodes a contract call: the 4-byte selector of signature followed
// by the ABI encoding of args. Supported argument types are common.Address,
// common.Hash, *big.Int, *uint256.Int, uint64, uint8, bool, string and
// []byte; the two latter are encoded as dynamic types.
func PackCall(signature string, args ...interface{}) ([]byte, error) {
	var head, tail [][]byte
	headSize := len(args) * WordSize
	for _, arg := range args {
		word, dyn, err := packValue(arg)
		if err != nil {
			return nil, fmt.Errorf("abi: packing %s: %v", signature, err)
		}
		if dyn == nil {
			head = append(head, word)
			continue
		}
		// Dynamic argument: the head holds the byte offset of the tail data.
		offset := headSize
		for _, t := range tail {
			offset += len(t)
		}
		head = append(head, math.U256Bytes(big.NewInt(int64(offset))))
		tail = append(tail, dyn)
	}
	out := make([]byte, 0, 4+headSize)
	out = append(out, MethodID(signature)...)
	for _, w := range head {
		out = append(out, w...)
	}
	for _, t := range tail {
		out = append(out, t...)
	}
	return out, nil
}

// packValue returns either a single static word or nil plus the dynamic
// encoding of the value.
func packValue(arg interface{}) (word []byte, dyn []byte, err error) {
	switch v := arg.(type) {
	case common.Address:
		return common.LeftPadBytes(v.Bytes(), WordSize), nil, nil
	case common.Hash:
		return v.Bytes(), nil, nil
	case *big.Int:
		if v.Sign() < 0 || v.BitLen() > 256 {
			return nil, nil, fmt.Errorf("integer out of range: %s", v)
		}
		return math.U256Bytes(new(big.Int).Set(v)), nil, nil
	case *uint256.Int:
		b32 := v.Bytes32()
		return b32[:], nil, nil
	case uint64:
		return math.U256Bytes(new(big.Int).SetUint64(v)), nil, nil
	case uint8:
		return math.U256Bytes(big.NewInt(int64(v))), nil, nil
	case bool:
		word := make([]byte, WordSize)
		if v {
			word[WordSize-1] = 1
		}
		return word, nil, nil
	case string:
		return nil, packBytes([]byte(v)), nil
	case []byte:
		return nil, packBytes(v), nil
	default:
		return nil, nil, fmt.Errorf("unsupported argument type %T", arg)
	}
}

// packBytes encodes dynamic bytes: length word followed by right-padded data.
func packBytes(b []byte) []byte {
	padded := common.RightPadBytes(b, (len(b)+WordSize-1)/WordSize*WordSize)
	out := math.U256Bytes(big.NewInt(int64(len(b))))
	return append(out, padded...)
}

// Result wraps the return data of a contract call for field-wise decoding.
// Index arguments refer to head words counted from zero.
type Result []byte

// Word returns the i-th 32-byte head word.
func (r Result) Word(i int) ([]byte, error) {
	offset := i * WordSize
	if len(r) < offset+WordSize {
		return nil, errShortReturn
	}
	return r[offset : offset+WordSize], nil
}

// Bool decodes the i-th word as a bool.
func (r Result) Bool(i int) (bool, error) {
	w, err := r.Word(i)
	if err != nil {
		return false, err
	}
	return w[WordSize-1] != 0, nil
}

// Big decodes the i-th word as an unsigned integer.
func (r Result) Big(i int) (*big.Int, error) {
	w, err := r.Word(i)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(w), nil
}

// Uint64 decodes the i-th word as a uint64.
func (r Result) Uint64(i int) (uint64, error) {
	b, err := r.Big(i)
	if err != nil {
		return 0, err
	}
	if !b.IsUint64() {
		return 0, fmt.Errorf("abi: value of word %d exceeds uint64", i)
	}
	return b.Uint64(), nil
}

// Uint8 decodes the i-th word as a uint8.
func (r Result) Uint8(i int) (uint8, error) {
	v, err := r.Uint64(i)
	if err != nil {
		return 0, err
	}
	if v > 0xff {
		return 0, fmt.Errorf("abi: value of word %d exceeds uint8", i)
	}
	return uint8(v), nil
}

// Address decodes the i-th word as an address.
func (r Result) Address(i int) (common.Address, error) {
	w, err := r.Word(i)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(w), nil
}

// Hash decodes the i-th word as a bytes32 value.
func (r Result) Hash(i int) (common.Hash, error) {
	w, err := r.Word(i)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(w), nil
}

// String decodes the i-th head word as an offset to a dynamic string.
func (r Result) String(i int) (string, error) {
	offBig, err := r.Big(i)
	if err != nil {
		return "", err
	}
	if !offBig.IsInt64() {
		return "", errShortReturn
	}
	off := int(offBig.Int64())
	if len(r) < off+WordSize {
		return "", errShortReturn
	}
	length := new(big.Int).SetBytes(r[off : off+WordSize])
	if !length.IsInt64() || len(r) < off+WordSize+int(length.Int64()) {
		return "", errShortReturn
	}
	return string(r[off+WordSize : off+WordSize+int(length.Int64())]), nil
}

// Tuple re-slices the return data at the offset carried in the i-th head
// word, yielding a Result whose indices are relative to the tuple.
func (r Result) Tuple(i int) (Result, error) {
	offBig, err := r.Big(i)
	if err != nil {
		return nil, err
	}
	if !offBig.IsInt64() || int(offBig.Int64()) > len(r) {
		return nil, errShortReturn
	}
	return Result(r[offBig.Int64():]), nil
}

// revertSelector is the selector of Error(string), the standard revert shape.
var revertSelector = MethodID("Error(string)")

// UnpackRevert decodes the reason string out of standard revert return data.
func UnpackRevert(data []byte) (string, bool) {
	if len(data) < 4 || string(data[:4]) != string(revertSelector) {
		return "", false
	}
	reason, err := Result(data[4:]).String(0)
	if err != nil {
		return "", false
	}
	return reason, true
}
