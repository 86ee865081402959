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

package chain

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/crypto"
	"github.com/probeum/go-glue/rlp"
)

// legacyTx holds the fields of a pre-typed contract call transaction. The
// facilitator only ever sends contract calls, so To is mandatory.
type legacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       common.Address
	Value    *big.Int
	Data     []byte
}

// fields returns the RLP items shared by the signing hash and the final
// encoding, in transaction field order.
func (tx *legacyTx) fields() [][]byte {
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	return [][]byte{
		rlp.EncodeUint64(tx.Nonce),
		rlp.EncodeBig(tx.GasPrice),
		rlp.EncodeUint64(tx.Gas),
		rlp.EncodeBytes(tx.To.Bytes()),
		rlp.EncodeBig(value),
		rlp.EncodeBytes(tx.Data),
	}
}

// sigHash computes the EIP-155 signing hash, which commits to the chain id
// through the (chainid, 0, 0) suffix.
func (tx *legacyTx) sigHash(chainID *big.Int) common.Hash {
	items := append(tx.fields(),
		rlp.EncodeBig(chainID),
		rlp.EncodeUint64(0),
		rlp.EncodeUint64(0),
	)
	return crypto.Keccak256Hash(rlp.EncodeList(items...))
}

// signTx signs tx with key under EIP-155 replay protection and returns the
// raw encoded transaction together with its hash.
func signTx(tx *legacyTx, chainID *big.Int, key *ecdsa.PrivateKey) (raw []byte, hash common.Hash, err error) {
	sig, err := crypto.Sign(tx.sigHash(chainID).Bytes(), key)
	if err != nil {
		return nil, common.Hash{}, err
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	// EIP-155: v = recovery id + chainid*2 + 35.
	v := new(big.Int).SetUint64(uint64(sig[64]) + 35)
	v.Add(v, new(big.Int).Lsh(chainID, 1))

	items := append(tx.fields(),
		rlp.EncodeBig(v),
		rlp.EncodeBig(r),
		rlp.EncodeBig(s),
	)
	raw = rlp.EncodeList(items...)
	return raw, crypto.Keccak256Hash(raw), nil
}
