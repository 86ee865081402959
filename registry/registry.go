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

// Package registry is the client side of the on-chain agent registries:
// identity lookups and registration against the identity registry, and
// feedback submission against the reputation registry.
package registry

import (
	"context"
	"math/big"

	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/core/types"
)

// Backend is the chain access the registry clients need. *chain.Wallet
// implements it; tests use an in-memory fake.
type Backend interface {
	// CallContract executes a read-only contract call.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// Transact signs and submits a state-changing call carrying value
	// native coins, returning the transaction hash.
	Transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error)

	// WaitMined blocks until the transaction lands in a block.
	WaitMined(ctx context.Context, txHash common.Hash) (*types.SettlementReceipt, error)

	// Sender returns the transacting account.
	Sender() common.Address
}
