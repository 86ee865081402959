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
	"github.com/probeum/go-glue/common"
	"github.com/probeum/go-glue/common/hexutil"
)

// Settlement status values reported in receipts.
const (
	ReceiptStatusConfirmed = "confirmed"
	ReceiptStatusFailed    = "failed"
)

// SettlementReceipt is the result of one settlement attempt. It is created
// once and never mutated after the transaction reaches a final state.
type SettlementReceipt struct {
	// Network is the name of the chain the transfer executed on.
	Network string `json:"network"`

	// Payer and Nonce reference the authorization that was consumed.
	Payer common.Address `json:"payer"`
	Nonce common.Hash    `json:"nonce"`

	// TxHash is the hash of the on-chain transferWithAuthorization transaction.
	TxHash common.Hash `json:"txHash"`

	// Status is ReceiptStatusConfirmed or ReceiptStatusFailed.
	Status string `json:"status"`

	// BlockNumber is the block the transaction was included in, zero until
	// confirmed.
	BlockNumber hexutil.Uint64 `json:"blockNumber"`

	// GasUsed is the gas consumed by the transfer, zero until confirmed.
	GasUsed hexutil.Uint64 `json:"gasUsed"`
}

// Confirmed reports whether the settlement reached a confirmed block.
func (r *SettlementReceipt) Confirmed() bool {
	return r.Status == ReceiptStatusConfirmed
}
