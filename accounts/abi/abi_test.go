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

package abi

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/common/hexutil"
)

func TestMethodID(t *testing.T) {
	tests := []struct {
		sig  string
		want string
	}{
		{"balanceOf(address)", "70a08231"},
		{"transfer(address,uint256)", "a9059cbb"},
		{"Error(string)", "08c379a0"},
	}
	for _, tt := range tests {
		if got := common.Bytes2Hex(MethodID(tt.sig)); got != tt.want {
			t.Errorf("MethodID(%q) = %s, want %s", tt.sig, got, tt.want)
		}
	}
}

func TestPackCallStatic(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	got, err := PackCall("balanceOf(address)", addr)
	if err != nil {
		t.Fatal(err)
	}
	want := hexutil.MustDecode("0x70a08231" +
		"0000000000000000000000001111111111111111111111111111111111111111")
	if !bytes.Equal(got, want) {
		t.Errorf("packed = %x, want %x", got, want)
	}
}

func TestPackCallMixedTypes(t *testing.T) {
	got, err := PackCall("f(uint256,uint8,bool,bytes32)",
		uint256.NewInt(1000), uint8(7), true, common.HexToHash("0x02"))
	if err != nil {
		t.Fatal(err)
	}
	want := hexutil.MustDecode("0x" + common.Bytes2Hex(MethodID("f(uint256,uint8,bool,bytes32)")) +
		"00000000000000000000000000000000000000000000000000000000000003e8" +
		"0000000000000000000000000000000000000000000000000000000000000007" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002")
	if !bytes.Equal(got, want) {
		t.Errorf("packed = %x, want %x", got, want)
	}
}

func TestPackCallDynamicString(t *testing.T) {
	// newAgent(string,address): the string head word carries the tail
	// offset, the tail carries length plus right-padded data.
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	got, err := PackCall("newAgent(string,address)", "agent.example.xyz", addr)
	if err != nil {
		t.Fatal(err)
	}
	wantBody := "" +
		"0000000000000000000000000000000000000000000000000000000000000040" + // offset of string tail
		"0000000000000000000000002222222222222222222222222222222222222222" +
		"0000000000000000000000000000000000000000000000000000000000000011" + // len("agent.example.xyz")
		"6167656e742e6578616d706c652e78797a000000000000000000000000000000"
	if body := common.Bytes2Hex(got[4:]); body != wantBody {
		t.Errorf("packed body =\n%s\nwant\n%s", body, wantBody)
	}
}

func TestPackCallRejectsNegative(t *testing.T) {
	if _, err := PackCall("f(uint256)", big.NewInt(-1)); err == nil {
		t.Error("negative integer accepted")
	}
}

func TestResultStatic(t *testing.T) {
	ret := Result(hexutil.MustDecode("0x" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"000000000000000000000000000000000000000000000000000000000000002a"))
	if ok, err := ret.Bool(0); err != nil || !ok {
		t.Errorf("Bool(0) = %v, %v", ok, err)
	}
	if v, err := ret.Uint64(1); err != nil || v != 42 {
		t.Errorf("Uint64(1) = %d, %v", v, err)
	}
	if v, err := ret.Uint8(1); err != nil || v != 42 {
		t.Errorf("Uint8(1) = %d, %v", v, err)
	}
}

func TestResultUint8Overflow(t *testing.T) {
	ret := Result(hexutil.MustDecode("0x0000000000000000000000000000000000000000000000000000000000000100"))
	if _, err := ret.Uint8(0); err == nil {
		t.Error("overflowing uint8 accepted")
	}
}

func TestResultString(t *testing.T) {
	ret := Result(hexutil.MustDecode("0x" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000003" +
		"646f670000000000000000000000000000000000000000000000000000000000"))
	s, err := ret.String(0)
	if err != nil || s != "dog" {
		t.Errorf("String(0) = %q, %v", s, err)
	}
}

func TestResultTuple(t *testing.T) {
	// A (uint256, string, address) struct behind an offset word, the way
	// the registry resolvers return AgentInfo.
	ret := Result(hexutil.MustDecode("0x" +
		"0000000000000000000000000000000000000000000000000000000000000020" + // tuple offset
		"0000000000000000000000000000000000000000000000000000000000000007" + // id
		"0000000000000000000000000000000000000000000000000000000000000060" + // string offset within tuple
		"0000000000000000000000003333333333333333333333333333333333333333" + // address
		"0000000000000000000000000000000000000000000000000000000000000003" +
		"78797a0000000000000000000000000000000000000000000000000000000000"))
	tuple, err := ret.Tuple(0)
	if err != nil {
		t.Fatal(err)
	}
	if id, err := tuple.Uint64(0); err != nil || id != 7 {
		t.Errorf("id = %d, %v", id, err)
	}
	if s, err := tuple.String(1); err != nil || s != "xyz" {
		t.Errorf("domain = %q, %v", s, err)
	}
	addr, err := tuple.Address(2)
	if err != nil || addr != common.HexToAddress("0x3333333333333333333333333333333333333333") {
		t.Errorf("address = %s, %v", addr.Hex(), err)
	}
}

func TestResultShortReturn(t *testing.T) {
	ret := Result(make([]byte, 16))
	if _, err := ret.Word(0); err != errShortReturn {
		t.Errorf("Word on short data: %v", err)
	}
	if _, err := ret.String(0); err == nil {
		t.Error("String on short data accepted")
	}
}

func TestUnpackRevert(t *testing.T) {
	packed, err := PackCall("Error(string)", "insufficient balance")
	if err != nil {
		t.Fatal(err)
	}
	reason, ok := UnpackRevert(packed)
	if !ok || reason != "insufficient balance" {
		t.Errorf("UnpackRevert = %q, %v", reason, ok)
	}

	if _, ok := UnpackRevert([]byte{0x01, 0x02}); ok {
		t.Error("short data unpacked as revert")
	}
	if _, ok := UnpackRevert(make([]byte, 36)); ok {
		t.Error("wrong selector unpacked as revert")
	}
}
