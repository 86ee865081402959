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

package common

import (
	"encoding/json"
	"testing"
)

func TestIsHexAddress(t *testing.T) {
	tests := []struct {
		str string
		exp bool
	}{
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0X5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed1", false},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beae", false},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg", false},
		{"", false},
	}
	for _, test := range tests {
		if result := IsHexAddress(test.str); result != test.exp {
			t.Errorf("IsHexAddress(%s) == %v; expected %v", test.str, result, test.exp)
		}
	}
}

func TestChecksumAddress(t *testing.T) {
	// EIP-55 test vectors.
	tests := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, addr := range tests {
		if got := HexToAddress(addr).Hex(); got != addr {
			t.Errorf("checksum of %s = %s", addr, got)
		}
	}
}

func TestHashJSONUnmarshal(t *testing.T) {
	var h Hash
	if err := json.Unmarshal([]byte(`"0x0000000000000000000000000000000000000000000000000000000000000001"`), &h); err != nil {
		t.Fatal(err)
	}
	if h != BytesToHash([]byte{0x01}) {
		t.Errorf("unmarshaled %s", h.Hex())
	}
	if err := json.Unmarshal([]byte(`"0x01"`), &h); err == nil {
		t.Error("short hash accepted")
	}
	if err := json.Unmarshal([]byte(`"not hex"`), &h); err == nil {
		t.Error("non-hex hash accepted")
	}
}

func TestAddressSetBytesCropsLeft(t *testing.T) {
	b := make([]byte, 24)
	b[0] = 0xff
	b[23] = 0x01
	var a Address
	a.SetBytes(b)
	if a[19] != 0x01 || a[0] == 0xff {
		t.Errorf("SetBytes = %x", a)
	}
}
