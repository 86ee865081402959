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

// Package types contains the data types of the payment protocol: signed
// payment authorizations, settlement receipts, agent identities and
// reputation records.
package types

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/common/hexutil"
	"github.com/probeum/go-glue/crypto"
)

// NonceLength is the byte length of an authorization nonce (bytes32 on-chain).
const NonceLength = 32

var (
	// ErrMalformedSignature is returned when a signature does not have the
	// 65-byte [R || S || V] shape. It is reported before any curve math runs.
	ErrMalformedSignature = errors.New("malformed signature")

	errMissingValue = errors.New("missing payment value")
	errTimeWindow   = errors.New("validAfter is not before validBefore")
)

// PaymentAuthorization is a signed EIP-3009 transferWithAuthorization payload.
// The payer creates and signs it off-chain; the facilitator consumes it exactly
// once by executing the matching on-chain transfer. It is never mutated.
type PaymentAuthorization struct {
	From        common.Address // payer, must equal the recovered signer
	To          common.Address // payee
	Value       *uint256.Int   // amount in the token's smallest unit
	ValidAfter  uint64         // unix seconds, authorization invalid before this
	ValidBefore uint64         // unix seconds, authorization invalid after this
	Nonce       common.Hash    // single-use random value, unique per payer

	// Signature is the 65-byte [R || S || V] secp256k1 signature over the
	// EIP-712 digest of the above fields, with V in {0, 1} or {27, 28}.
	Signature []byte
}

// NewNonce returns a cryptographically random authorization nonce. Nonces are
// random rather than sequential so multiple authorizations can be pending at
// once and so a nonce can never be predicted from the amount or ordering.
func NewNonce() common.Hash {
	var n common.Hash
	if _, err := rand.Read(n[:]); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return n
}

// SanityCheck validates the structural shape of the authorization without any
// cryptography: value present, time window ordered, signature length correct.
func (a *PaymentAuthorization) SanityCheck() error {
	if a.Value == nil {
		return errMissingValue
	}
	if a.ValidAfter >= a.ValidBefore {
		return errTimeWindow
	}
	if len(a.Signature) != crypto.SignatureLength {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrMalformedSignature, len(a.Signature), crypto.SignatureLength)
	}
	if v := a.Signature[crypto.RecoveryIDOffset]; v >= 2 && v != 27 && v != 28 {
		return fmt.Errorf("%w: invalid recovery id %d", ErrMalformedSignature, v)
	}
	return nil
}

// RawSignatureValues returns the V, R, S components of the signature in the
// form the token contract expects (V in {27, 28}).
func (a *PaymentAuthorization) RawSignatureValues() (v byte, r, s common.Hash, err error) {
	if len(a.Signature) != crypto.SignatureLength {
		return 0, common.Hash{}, common.Hash{}, ErrMalformedSignature
	}
	copy(r[:], a.Signature[:32])
	copy(s[:], a.Signature[32:64])
	v = a.Signature[crypto.RecoveryIDOffset]
	if v < 27 {
		v += 27
	}
	return v, r, s, nil
}

// normalizedSignature returns the signature with the recovery id mapped into
// {0, 1} as required by the recovery code.
func (a *PaymentAuthorization) normalizedSignature() []byte {
	sig := common.CopyBytes(a.Signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	return sig
}

// RecoverSigner recovers the address that signed the given digest. The caller
// is expected to have run SanityCheck first; a recovery failure here means the
// signature bytes are valid in shape but cryptographically wrong.
func (a *PaymentAuthorization) RecoverSigner(digest common.Hash) (common.Address, error) {
	sig := a.normalizedSignature()
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[crypto.RecoveryIDOffset], r, s, true) {
		return common.Address{}, errors.New("invalid signature values")
	}
	pub, err := crypto.Ecrecover(digest[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	var addr common.Address
	copy(addr[:], crypto.Keccak256(pub[1:])[12:])
	return addr, nil
}

// paymentAuthorizationJSON is the wire format of an authorization. Amount and
// timestamps travel as decimal strings for SDK compatibility; amounts may also
// be 0x-prefixed.
type paymentAuthorizationJSON struct {
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Value       string         `json:"value"`
	ValidAfter  string         `json:"validAfter"`
	ValidBefore string         `json:"validBefore"`
	Nonce       common.Hash    `json:"nonce"`
	Signature   hexutil.Bytes  `json:"signature"`
}

// MarshalJSON implements json.Marshaler.
func (a PaymentAuthorization) MarshalJSON() ([]byte, error) {
	value := "0"
	if a.Value != nil {
		value = a.Value.ToBig().String()
	}
	return json.Marshal(&paymentAuthorizationJSON{
		From:        a.From,
		To:          a.To,
		Value:       value,
		ValidAfter:  strconv.FormatUint(a.ValidAfter, 10),
		ValidBefore: strconv.FormatUint(a.ValidBefore, 10),
		Nonce:       a.Nonce,
		Signature:   a.Signature,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *PaymentAuthorization) UnmarshalJSON(input []byte) error {
	var dec paymentAuthorizationJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	value, err := parseAmount(dec.Value)
	if err != nil {
		return fmt.Errorf("invalid value: %v", err)
	}
	validAfter, err := parseUnix(dec.ValidAfter)
	if err != nil {
		return fmt.Errorf("invalid validAfter: %v", err)
	}
	validBefore, err := parseUnix(dec.ValidBefore)
	if err != nil {
		return fmt.Errorf("invalid validBefore: %v", err)
	}
	a.From = dec.From
	a.To = dec.To
	a.Value = value
	a.ValidAfter = validAfter
	a.ValidBefore = validBefore
	a.Nonce = dec.Nonce
	a.Signature = dec.Signature
	return nil
}

// parseAmount parses a token amount given as a decimal or 0x-prefixed string.
func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errMissingValue
	}
	var b *big.Int
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, ok = new(big.Int).SetString(s[2:], 16)
	} else {
		b, ok = new(big.Int).SetString(s, 10)
	}
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("not a valid amount: %q", s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("amount exceeds 256 bits: %q", s)
	}
	return v, nil
}

func parseUnix(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("missing timestamp")
	}
	return strconv.ParseUint(s, 10, 64)
}
