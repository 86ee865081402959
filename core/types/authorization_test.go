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

package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/crypto"
)

func validAuth() *PaymentAuthorization {
	sig := make([]byte, crypto.SignatureLength)
	sig[crypto.RecoveryIDOffset] = 1
	return &PaymentAuthorization{
		From:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		To:          common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:       uint256.NewInt(10000),
		ValidAfter:  1700000000,
		ValidBefore: 1700003600,
		Nonce:       NewNonce(),
		Signature:   sig,
	}
}

func TestSanityCheck(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PaymentAuthorization)
		wantErr error
	}{
		{"valid", func(a *PaymentAuthorization) {}, nil},
		{"v27", func(a *PaymentAuthorization) { a.Signature[64] = 27 }, nil},
		{"missing value", func(a *PaymentAuthorization) { a.Value = nil }, errMissingValue},
		{"inverted window", func(a *PaymentAuthorization) { a.ValidAfter = a.ValidBefore }, errTimeWindow},
		{"short signature", func(a *PaymentAuthorization) { a.Signature = a.Signature[:64] }, ErrMalformedSignature},
		{"long signature", func(a *PaymentAuthorization) { a.Signature = append(a.Signature, 0) }, ErrMalformedSignature},
		{"bad recovery id", func(a *PaymentAuthorization) { a.Signature[64] = 5 }, ErrMalformedSignature},
	}
	for _, tt := range tests {
		auth := validAuth()
		tt.mutate(auth)
		err := auth.SanityCheck()
		if tt.wantErr == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestRawSignatureValuesNormalizesV(t *testing.T) {
	auth := validAuth()
	auth.Signature[64] = 0
	v, _, _, err := auth.RawSignatureValues()
	if err != nil {
		t.Fatal(err)
	}
	if v != 27 {
		t.Errorf("v = %d, want 27", v)
	}
	auth.Signature[64] = 28
	if v, _, _, _ = auth.RawSignatureValues(); v != 28 {
		t.Errorf("v = %d, want 28", v)
	}
}

func TestAuthorizationJSONRoundTrip(t *testing.T) {
	auth := validAuth()
	data, err := json.Marshal(auth)
	if err != nil {
		t.Fatal(err)
	}
	var back PaymentAuthorization
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.From != auth.From || back.To != auth.To || !back.Value.Eq(auth.Value) ||
		back.ValidAfter != auth.ValidAfter || back.ValidBefore != auth.ValidBefore ||
		back.Nonce != auth.Nonce || len(back.Signature) != len(auth.Signature) {
		t.Errorf("round trip mismatch: %+v != %+v", back, auth)
	}
}

// x402 SDKs send amounts either as decimal strings or 0x-hex.
func TestAuthorizationValueFormats(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{`"10000"`, 10000, true},
		{`"0x2710"`, 10000, true},
		{`"0"`, 0, true},
		{`"-5"`, 0, false},
		{`""`, 0, false},
		{`"bogus"`, 0, false},
	}
	for _, tt := range tests {
		blob := []byte(`{"from":"0x1111111111111111111111111111111111111111",
			"to":"0x2222222222222222222222222222222222222222",
			"value":` + tt.in + `,"validAfter":"1","validBefore":"2",
			"nonce":"0x4242424242424242424242424242424242424242424242424242424242424242",
			"signature":"0x"}`)
		var auth PaymentAuthorization
		err := json.Unmarshal(blob, &auth)
		if tt.ok != (err == nil) {
			t.Errorf("value %s: err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && auth.Value.Uint64() != tt.want {
			t.Errorf("value %s parsed to %s, want %d", tt.in, auth.Value, tt.want)
		}
	}
}

func TestNewNonceUnique(t *testing.T) {
	seen := make(map[common.Hash]bool)
	for i := 0; i < 64; i++ {
		n := NewNonce()
		if seen[n] {
			t.Fatalf("duplicate nonce %x", n)
		}
		seen[n] = true
	}
}
