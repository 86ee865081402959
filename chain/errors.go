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
	"errors"
	"net"

	"github.com/probeum/go-glue/accounts/abi"
	"github.com/probeum/go-glue/common/hexutil"
	"github.com/probeum/go-glue/rpc"
)

// IsTransient reports whether err is worth retrying: transport failures,
// timeouts and server-side overload. Errors the node returns as JSON-RPC
// error objects describe the request itself and are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(rpc.Error); ok {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Raw transport errors (connection reset, EOF mid-response) surface as
	// plain errors. Anything not recognized above came from dialing or
	// reading the connection, so retrying is the safe default for it.
	return !errors.Is(err, context.Canceled)
}

// RevertReason extracts the solidity revert string from err, if the node
// attached standard Error(string) return data to it.
func RevertReason(err error) (string, bool) {
	var de rpc.DataError
	if !errors.As(err, &de) {
		return "", false
	}
	hexData, ok := de.ErrorData().(string)
	if !ok {
		return "", false
	}
	data, decErr := hexutil.Decode(hexData)
	if decErr != nil {
		return "", false
	}
	return abi.UnpackRevert(data)
}
