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

package crypto

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/common/hexutil"
)

func TestKeccak256(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"abc", "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"},
	}
	for _, tt := range tests {
		got := Keccak256([]byte(tt.input))
		if want := hexutil.MustDecode(tt.want); !bytes.Equal(got, want) {
			t.Errorf("Keccak256(%q) = %x, want %x", tt.input, got, want)
		}
	}
}

func TestKeccak256HashMultiSegment(t *testing.T) {
	joined := Keccak256Hash([]byte("hello "), []byte("world"))
	whole := Keccak256Hash([]byte("hello world"))
	if joined != whole {
		t.Errorf("segmented hash %x != whole hash %x", joined, whole)
	}
}

func TestPubkeyToAddress(t *testing.T) {
	// The address of private key 1 is a fixed point of the scheme.
	key, err := HexToECDSA("0000000000000000000000000000000000000000000000000000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	want := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	if got := PubkeyToAddress(key.PublicKey); got != want {
		t.Errorf("address = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestSignRecoverRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	digest := Keccak256([]byte("payment authorization digest"))

	sig, err := Sign(digest, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != SignatureLength {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureLength)
	}
	if v := sig[RecoveryIDOffset]; v != 0 && v != 1 {
		t.Fatalf("recovery id = %d, want 0 or 1", v)
	}

	pub, err := SigToPub(digest, sig)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := PubkeyToAddress(*pub), PubkeyToAddress(key.PublicKey); got != want {
		t.Errorf("recovered %s, want %s", got.Hex(), want.Hex())
	}
	if !VerifySignature(CompressPubkey(pub), digest, sig[:64]) {
		t.Error("VerifySignature rejected a valid signature")
	}
}

func TestRecoverWrongDigest(t *testing.T) {
	key, _ := GenerateKey()
	digest := Keccak256([]byte("signed payload"))
	sig, err := Sign(digest, key)
	if err != nil {
		t.Fatal(err)
	}
	other := Keccak256([]byte("different payload"))
	pub, err := SigToPub(other, sig)
	if err == nil && PubkeyToAddress(*pub) == PubkeyToAddress(key.PublicKey) {
		t.Error("recovery against a different digest yielded the signer")
	}
}

func TestValidateSignatureValues(t *testing.T) {
	one := big.NewInt(1)
	zero := new(big.Int)
	halfN := new(big.Int).Rsh(S256().Params().N, 1)
	overHalf := new(big.Int).Add(halfN, big.NewInt(1))

	tests := []struct {
		v               byte
		r, s            *big.Int
		homestead, want bool
	}{
		{0, one, one, true, true},
		{1, one, one, true, true},
		{2, one, one, true, false},
		{0, zero, one, true, false},
		{0, one, zero, true, false},
		// High s values are malleable and rejected under homestead rules.
		{0, one, overHalf, true, false},
		{0, one, overHalf, false, true},
	}
	for i, tt := range tests {
		if got := ValidateSignatureValues(tt.v, tt.r, tt.s, tt.homestead); got != tt.want {
			t.Errorf("test %d: ValidateSignatureValues(%d, %v, %v, %v) = %v, want %v",
				i, tt.v, tt.r, tt.s, tt.homestead, got, tt.want)
		}
	}
}

func TestCompressDecompressPubkey(t *testing.T) {
	key, _ := GenerateKey()
	compressed := CompressPubkey(&key.PublicKey)
	pub, err := DecompressPubkey(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if pub.X.Cmp(key.PublicKey.X) != 0 || pub.Y.Cmp(key.PublicKey.Y) != 0 {
		t.Error("decompressed key differs from original")
	}
}
