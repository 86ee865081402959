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

// Package typeddata implements EIP-712 typed structured data hashing for the
// payment protocol.
//
// The implementation is deliberately specialized: the only primary type the
// facilitator ever verifies is TransferWithAuthorization, so the encoder is
// written out long-hand against that type instead of interpreting a type
// dictionary at runtime. The encoding must match what eth_account and the
// x402 client SDKs produce byte for byte.
package typeddata

import (
	"math/big"

	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/common/math"
	"github.com/probeum/go-glue/core/types"
	"github.com/probeum/go-glue/crypto"
	"github.com/probeum/go-glue/params"
)

var (
	// eip712DomainTypeHash is keccak256 of the canonical EIP712Domain type
	// encoding with the four fields the token contract's domain uses.
	eip712DomainTypeHash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// transferWithAuthorizationTypeHash is keccak256 of the canonical
	// TransferWithAuthorization type encoding from EIP-3009.
	transferWithAuthorizationTypeHash = crypto.Keccak256Hash(
		[]byte("TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"),
	)
)

// Domain is the EIP-712 signing domain a payment authorization is bound to.
// Any single differing field yields a different digest, which is exactly the
// property that stops an authorization signed for one token or network from
// being replayed against another.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// FromChainConfig derives the signing domain of a network's token contract.
// This is the only place in the codebase where a domain is constructed from
// configuration, so the verification and settlement paths cannot drift.
func FromChainConfig(cfg *params.ChainConfig) Domain {
	return Domain{
		Name:              cfg.TokenName,
		Version:           cfg.TokenVersion,
		ChainID:           cfg.ChainID,
		VerifyingContract: cfg.Token,
	}
}

// Equal reports whether two domains are identical in all four fields.
func (d Domain) Equal(other Domain) bool {
	return d.Name == other.Name &&
		d.Version == other.Version &&
		d.ChainID.Cmp(other.ChainID) == 0 &&
		d.VerifyingContract == other.VerifyingContract
}

// Separator returns hashStruct(domain), the domain separator mixed into every
// digest signed under this domain.
func (d Domain) Separator() common.Hash {
	return crypto.Keccak256Hash(
		eip712DomainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		math.U256Bytes(new(big.Int).Set(d.ChainID)),
		common.LeftPadBytes(d.VerifyingContract.Bytes(), 32),
	)
}

// hashAuthorization returns hashStruct(auth) for the TransferWithAuthorization
// primary type.
func hashAuthorization(auth *types.PaymentAuthorization) common.Hash {
	value := common.Hash(auth.Value.Bytes32())
	return crypto.Keccak256Hash(
		transferWithAuthorizationTypeHash.Bytes(),
		common.LeftPadBytes(auth.From.Bytes(), 32),
		common.LeftPadBytes(auth.To.Bytes(), 32),
		value.Bytes(),
		math.U256Bytes(new(big.Int).SetUint64(auth.ValidAfter)),
		math.U256Bytes(new(big.Int).SetUint64(auth.ValidBefore)),
		auth.Nonce.Bytes(),
	)
}

// AuthorizationDigest computes the EIP-712 digest the payer's wallet signed:
// keccak256(0x19 || 0x01 || domainSeparator || hashStruct(authorization)).
func AuthorizationDigest(domain Domain, auth *types.PaymentAuthorization) common.Hash {
	sep := domain.Separator()
	structHash := hashAuthorization(auth)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, sep.Bytes(), structHash.Bytes())
}
