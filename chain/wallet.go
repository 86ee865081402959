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
	"math/big"
	"time"

	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/core/types"
	"github.com/probeum/go-glue/crypto"
	"github.com/probeum/go-glue/log"
)

// gasMargin is the percentage added on top of the node's gas estimate.
// Contract calls touching cold storage slots occasionally exceed the
// estimate made against the latest state.
const gasMargin = 20

// Wallet binds a chain client to a signing key. It fills in gas price,
// gas limit and account nonce on every transaction, so callers only name
// the target contract and calldata.
type Wallet struct {
	client *Client
	key    *ecdsa.PrivateKey
	sender common.Address
	log    log.Logger
}

// NewWallet returns a wallet sending transactions from the account of key.
func NewWallet(client *Client, key *ecdsa.PrivateKey) *Wallet {
	sender := crypto.PubkeyToAddress(key.PublicKey)
	return &Wallet{
		client: client,
		key:    key,
		sender: sender,
		log:    log.New("network", client.cfg.Name, "sender", sender),
	}
}

// Sender returns the wallet's account address.
func (w *Wallet) Sender() common.Address { return w.sender }

// Client returns the underlying chain client.
func (w *Wallet) Client() *Client { return w.client }

// CallContract executes a read-only call through the underlying client.
func (w *Wallet) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return w.client.CallContract(ctx, to, data)
}

// Transact signs and submits a contract call carrying value native coins.
// Gas settings and the account nonce are fetched from the node per call;
// the wallet keeps no local nonce state.
func (w *Wallet) Transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	gas, err := w.client.EstimateGas(ctx, w.sender, to, value, data)
	if err != nil {
		return common.Hash{}, err
	}
	gas += gas * gasMargin / 100
	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := w.client.PendingNonceAt(ctx, w.sender)
	if err != nil {
		return common.Hash{}, err
	}
	tx := &legacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       to,
		Value:    value,
		Data:     data,
	}
	raw, hash, err := signTx(tx, w.client.cfg.ChainID, w.key)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := w.client.SendRawTransaction(ctx, raw); err != nil {
		return common.Hash{}, err
	}
	w.log.Debug("Submitted transaction", "tx", hash, "to", to, "gas", gas, "gasprice", gasPrice)
	return hash, nil
}

// WaitMined polls for the receipt of txHash until it lands in a block or
// ctx expires. Polling at half the block time keeps the confirmation
// latency within one poll interval of the inclusion block.
func (w *Wallet) WaitMined(ctx context.Context, txHash common.Hash) (*types.SettlementReceipt, error) {
	interval := w.client.cfg.BlockTime / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		r, err := w.client.TransactionReceipt(ctx, txHash)
		if err != nil && !IsTransient(err) {
			return nil, err
		}
		if err != nil {
			w.log.Warn("Receipt poll failed, retrying", "tx", txHash, "err", err)
		}
		if r != nil {
			status := types.ReceiptStatusFailed
			if r.Status == 1 {
				status = types.ReceiptStatusConfirmed
			}
			return &types.SettlementReceipt{
				Network:     w.client.cfg.Name,
				TxHash:      r.TxHash,
				Status:      status,
				BlockNumber: r.BlockNumber,
				GasUsed:     r.GasUsed,
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// NativeBalance returns the native-coin balance of the wallet account,
// used by the health endpoint to flag an underfunded gas tank.
func (w *Wallet) NativeBalance(ctx context.Context) (*big.Int, error) {
	return w.client.BalanceAt(ctx, w.sender)
}
