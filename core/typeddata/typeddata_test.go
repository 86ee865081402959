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

package typeddata

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/core/types"
	"github.com/probeum/go-glue/crypto"
	"github.com/probeum/go-glue/params"
)

func testDomain() Domain {
	return Domain{
		Name:              "Gasless Ultravioleta DAO Extended Token",
		Version:           "1",
		ChainID:           big.NewInt(43113),
		VerifyingContract: common.HexToAddress("0x3D19A80b3bD5CC3a4E55D4b5B753bC36d6A44743"),
	}
}

func testAuth() *types.PaymentAuthorization {
	return &types.PaymentAuthorization{
		From:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		To:          common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:       uint256.NewInt(10000),
		ValidAfter:  1700000000,
		ValidBefore: 1700003600,
		Nonce:       common.HexToHash("0x4242424242424242424242424242424242424242424242424242424242424242"),
	}
}

// TestSeparatorConstruction recomputes the domain separator from first
// principles so a refactor of Separator cannot silently change the hash.
func TestSeparatorConstruction(t *testing.T) {
	d := testDomain()
	want := crypto.Keccak256Hash(
		crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)")),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		common.BigToHash(d.ChainID).Bytes(),
		common.BytesToHash(d.VerifyingContract.Bytes()).Bytes(),
	)
	if got := d.Separator(); got != want {
		t.Errorf("separator = %x, want %x", got, want)
	}
}

func TestDigestDeterministic(t *testing.T) {
	d := testDomain()
	a, b := AuthorizationDigest(d, testAuth()), AuthorizationDigest(d, testAuth())
	if a != b {
		t.Errorf("same input yielded digests %x and %x", a, b)
	}
}

// TestDigestDomainSensitivity flips each domain field in turn; every flip
// must change the digest, that is the whole replay-protection property.
func TestDigestDomainSensitivity(t *testing.T) {
	base := AuthorizationDigest(testDomain(), testAuth())

	mutations := map[string]func(*Domain){
		"name":     func(d *Domain) { d.Name = "Gasless Ultravioleta DAO Extended token" },
		"version":  func(d *Domain) { d.Version = "2" },
		"chainid":  func(d *Domain) { d.ChainID = big.NewInt(84532) },
		"contract": func(d *Domain) { d.VerifyingContract[19] ^= 1 },
	}
	for name, mutate := range mutations {
		d := testDomain()
		mutate(&d)
		if AuthorizationDigest(d, testAuth()) == base {
			t.Errorf("mutating %s did not change the digest", name)
		}
	}
}

func TestDigestFieldSensitivity(t *testing.T) {
	d := testDomain()
	base := AuthorizationDigest(d, testAuth())

	mutations := map[string]func(*types.PaymentAuthorization){
		"from":        func(a *types.PaymentAuthorization) { a.From[0] ^= 1 },
		"to":          func(a *types.PaymentAuthorization) { a.To[0] ^= 1 },
		"value":       func(a *types.PaymentAuthorization) { a.Value = uint256.NewInt(10001) },
		"validAfter":  func(a *types.PaymentAuthorization) { a.ValidAfter++ },
		"validBefore": func(a *types.PaymentAuthorization) { a.ValidBefore++ },
		"nonce":       func(a *types.PaymentAuthorization) { a.Nonce[31] ^= 1 },
	}
	for name, mutate := range mutations {
		auth := testAuth()
		mutate(auth)
		if AuthorizationDigest(d, auth) == base {
			t.Errorf("mutating %s did not change the digest", name)
		}
	}
}

func TestSignRecoverAgainstDomain(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	auth := testAuth()
	auth.From = crypto.PubkeyToAddress(key.PublicKey)

	digest := AuthorizationDigest(testDomain(), auth)
	auth.Signature, err = crypto.Sign(digest.Bytes(), key)
	if err != nil {
		t.Fatal(err)
	}

	signer, err := auth.RecoverSigner(digest)
	if err != nil {
		t.Fatal(err)
	}
	if signer != auth.From {
		t.Errorf("recovered %s, want %s", signer.Hex(), auth.From.Hex())
	}

	// Recovery against another network's domain must not yield the payer.
	other := testDomain()
	other.ChainID = big.NewInt(84532)
	wrongSigner, err := auth.RecoverSigner(AuthorizationDigest(other, auth))
	if err == nil && wrongSigner == auth.From {
		t.Error("signature verified against a foreign domain")
	}
}

func TestFromChainConfig(t *testing.T) {
	d := FromChainConfig(params.FujiChainConfig)
	if d.Name != params.FujiChainConfig.TokenName ||
		d.Version != params.FujiChainConfig.TokenVersion ||
		d.ChainID.Cmp(params.FujiChainConfig.ChainID) != 0 ||
		d.VerifyingContract != params.FujiChainConfig.Token {
		t.Errorf("domain %+v does not mirror the chain config", d)
	}
	if !d.Equal(FromChainConfig(params.FujiChainConfig)) {
		t.Error("Equal is not reflexive over derived domains")
	}
	if d.Equal(FromChainConfig(params.BaseSepoliaChainConfig)) {
		t.Error("distinct networks yielded equal domains")
	}
}
