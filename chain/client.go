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

// Package chain binds the generic JSON-RPC client to the Ethereum node API
// surface the facilitator needs: read-only contract calls, transaction
// submission and receipt polling.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/common/hexutil"
	"github.com/probeum/go-glue/log"
	"github.com/probeum/go-glue/params"
	"github.com/probeum/go-glue/rpc"
)

// Client is a chain-scoped RPC client. All calls go against the node named
// in the chain config, and the remote chain id is checked once at dial time
// so a misconfigured endpoint fails fast instead of producing signatures for
// the wrong chain.
type Client struct {
	cfg *params.ChainConfig
	rpc *rpc.Client
	log log.Logger
}

// DialClient connects to the RPC endpoint of cfg and verifies that the
// remote node reports the configured chain id.
func DialClient(ctx context.Context, cfg *params.ChainConfig) (*Client, error) {
	rc, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dialing %s: %v", cfg.Name, err)
	}
	c := &Client{cfg: cfg, rpc: rc, log: log.New("network", cfg.Name)}
	var raw hexutil.Big
	if err := c.rpc.CallContext(ctx, &raw, "eth_chainId"); err != nil {
		rc.Close()
		return nil, fmt.Errorf("chain: querying chain id of %s: %v", cfg.Name, err)
	}
	if got := (*big.Int)(&raw); got.Cmp(cfg.ChainID) != 0 {
		rc.Close()
		return nil, fmt.Errorf("chain: endpoint %s reports chain id %v, config says %v", cfg.RPCURL, got, cfg.ChainID)
	}
	c.log.Debug("Connected to chain endpoint", "chainid", cfg.ChainID)
	return c, nil
}

// NewClient wraps an existing RPC connection without the chain id handshake.
// Intended for tests that stub the transport.
func NewClient(cfg *params.ChainConfig, rc *rpc.Client) *Client {
	return &Client{cfg: cfg, rpc: rc, log: log.New("network", cfg.Name)}
}

// Config returns the chain config the client was dialed with.
func (c *Client) Config() *params.ChainConfig { return c.cfg }

// Close tears down the underlying RPC connection.
func (c *Client) Close() { c.rpc.Close() }

// callArgs mirrors the transaction object accepted by eth_call and
// eth_estimateGas. Zero-value fields are omitted from the wire form.
type callArgs struct {
	From     *common.Address `json:"from,omitempty"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
}

// CallContract executes a read-only contract call against the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var out hexutil.Bytes
	args := callArgs{To: &to, Data: data}
	if err := c.rpc.CallContext(ctx, &out, "eth_call", args, "latest"); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingNonceAt returns the account nonce including pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var out hexutil.Uint64
	err := c.rpc.CallContext(ctx, &out, "eth_getTransactionCount", account, "pending")
	return uint64(out), err
}

// SuggestGasPrice returns the gas price the node recommends.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var out hexutil.Big
	if err := c.rpc.CallContext(ctx, &out, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return (*big.Int)(&out), nil
}

// EstimateGas asks the node for a gas estimate of the given call.
func (c *Client) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error) {
	args := callArgs{From: &from, To: &to, Data: data}
	if value != nil {
		args.Value = (*hexutil.Big)(value)
	}
	var out hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &out, "eth_estimateGas", args); err != nil {
		return 0, err
	}
	return uint64(out), nil
}

// SendRawTransaction submits a signed, RLP-encoded transaction and returns
// the hash reported by the node.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var out common.Hash
	err := c.rpc.CallContext(ctx, &out, "eth_sendRawTransaction", hexutil.Bytes(raw))
	return out, err
}

// rpcReceipt is the subset of the eth_getTransactionReceipt response the
// facilitator consumes.
type rpcReceipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// TransactionReceipt returns the mined receipt of hash, or nil if the
// transaction is not yet included in a block.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*rpcReceipt, error) {
	var r *rpcReceipt
	err := c.rpc.CallContext(ctx, &r, "eth_getTransactionReceipt", hash)
	if err == rpc.ErrNoResult {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// BalanceAt returns the native-coin balance of account at the latest block.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	var out hexutil.Big
	if err := c.rpc.CallContext(ctx, &out, "eth_getBalance", account, "latest"); err != nil {
		return nil, err
	}
	return (*big.Int)(&out), nil
}
