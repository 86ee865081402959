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

package hexutil

import (
	"bytes"
	"math/big"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		input string
		want  []byte
		ok    bool
	}{
		{"0x", []byte{}, true},
		{"0x00", []byte{0x00}, true},
		{"0x0102", []byte{0x01, 0x02}, true},
		{"", nil, false},
		{"0x0", nil, false},      // odd length
		{"0101", nil, false},     // missing prefix
		{"0xzz", nil, false},     // bad syntax
	}
	for _, tt := range tests {
		got, err := Decode(tt.input)
		if tt.ok != (err == nil) {
			t.Errorf("Decode(%q) error = %v", tt.input, err)
			continue
		}
		if tt.ok && !bytes.Equal(got, tt.want) {
			t.Errorf("Decode(%q) = %x, want %x", tt.input, got, tt.want)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, b := range [][]byte{{}, {0x00}, {0xff, 0x00, 0x01}} {
		dec, err := Decode(Encode(b))
		if err != nil {
			t.Fatalf("round trip of %x: %v", b, err)
		}
		if !bytes.Equal(dec, b) {
			t.Errorf("round trip of %x = %x", b, dec)
		}
	}
}

func TestDecodeUint64(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
		ok    bool
	}{
		{"0x0", 0, true},
		{"0x2", 2, true},
		{"0x2F2", 0x2f2, true},
		{"0xffffffffffffffff", 0xffffffffffffffff, true},
		{"0x", 0, false},                     // empty number
		{"0x01", 0, false},                   // leading zero
		{"0x10000000000000000", 0, false},    // overflow
		{"2", 0, false},                      // missing prefix
	}
	for _, tt := range tests {
		got, err := DecodeUint64(tt.input)
		if tt.ok != (err == nil) {
			t.Errorf("DecodeUint64(%q) error = %v", tt.input, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("DecodeUint64(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestDecodeBig(t *testing.T) {
	got, err := DecodeBig("0x12345678123456781234567812345678")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := new(big.Int).SetString("12345678123456781234567812345678", 16)
	if got.Cmp(want) != 0 {
		t.Errorf("DecodeBig = %s, want %s", got, want)
	}
	if _, err := DecodeBig("0x01"); err == nil {
		t.Error("leading zero accepted")
	}
}

func TestEncodeUint64(t *testing.T) {
	if got := EncodeUint64(0); got != "0x0" {
		t.Errorf("EncodeUint64(0) = %s", got)
	}
	if got := EncodeUint64(0x1234); got != "0x1234" {
		t.Errorf("EncodeUint64(0x1234) = %s", got)
	}
}
