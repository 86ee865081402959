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
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/probeum/go-glue/accounts/abi"
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/core/types"
)

// Backend is the token-side chain access the settlement engine depends on.
// The production implementation talks to an EIP-3009 token contract; tests
// substitute an in-memory fake.
type Backend interface {
	// TokenBalance returns the payment token balance of account.
	TokenBalance(ctx context.Context, account common.Address) (*uint256.Int, error)

	// AuthorizationState reports whether the (authorizer, nonce) pair has
	// already been consumed on chain.
	AuthorizationState(ctx context.Context, authorizer common.Address, nonce common.Hash) (bool, error)

	// SubmitTransfer relays the signed authorization as a
	// transferWithAuthorization call and returns the transaction hash.
	SubmitTransfer(ctx context.Context, auth *types.PaymentAuthorization) (common.Hash, error)

	// WaitMined blocks until the transaction is included in a block or ctx
	// expires, returning the on-chain outcome.
	WaitMined(ctx context.Context, txHash common.Hash) (*types.SettlementReceipt, error)
}

type evmBackend struct {
	wallet *Wallet
}

// NewBackend returns a Backend that relays transfers through client using
// key as the gas-paying sender account.
func NewBackend(client *Client, key *ecdsa.PrivateKey) Backend {
	return &evmBackend{wallet: NewWallet(client, key)}
}

func (b *evmBackend) token() common.Address {
	return b.wallet.client.cfg.Token
}

func (b *evmBackend) TokenBalance(ctx context.Context, account common.Address) (*uint256.Int, error) {
	data, err := abi.PackCall("balanceOf(address)", account)
	if err != nil {
		return nil, err
	}
	ret, err := b.wallet.CallContract(ctx, b.token(), data)
	if err != nil {
		return nil, err
	}
	bal, err := abi.Result(ret).Big(0)
	if err != nil {
		return nil, err
	}
	v, overflow := uint256.FromBig(bal)
	if overflow {
		return nil, fmt.Errorf("chain: balance of %s overflows uint256", account)
	}
	return v, nil
}

func (b *evmBackend) AuthorizationState(ctx context.Context, authorizer common.Address, nonce common.Hash) (bool, error) {
	data, err := abi.PackCall("authorizationState(address,bytes32)", authorizer, nonce)
	if err != nil {
		return false, err
	}
	ret, err := b.wallet.CallContract(ctx, b.token(), data)
	if err != nil {
		return false, err
	}
	return abi.Result(ret).Bool(0)
}

// transferCalldata packs the transferWithAuthorization call from the signed
// authorization, splitting the 65-byte signature into its v, r, s parts.
func transferCalldata(auth *types.PaymentAuthorization) ([]byte, error) {
	v, r, s, err := auth.RawSignatureValues()
	if err != nil {
		return nil, err
	}
	return abi.PackCall(
		"transferWithAuthorization(address,address,uint256,uint256,uint256,bytes32,uint8,bytes32,bytes32)",
		auth.From, auth.To, auth.Value,
		auth.ValidAfter, auth.ValidBefore, auth.Nonce,
		v, r, s,
	)
}

func (b *evmBackend) SubmitTransfer(ctx context.Context, auth *types.PaymentAuthorization) (common.Hash, error) {
	data, err := transferCalldata(auth)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := b.wallet.Transact(ctx, b.token(), nil, data)
	if err != nil {
		return common.Hash{}, err
	}
	b.wallet.log.Info("Submitted transfer", "tx", hash, "payer", auth.From, "value", auth.Value)
	return hash, nil
}

func (b *evmBackend) WaitMined(ctx context.Context, txHash common.Hash) (*types.SettlementReceipt, error) {
	return b.wallet.WaitMined(ctx, txHash)
}
