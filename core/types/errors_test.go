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
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := NewError(KindNonceAlreadyUsed, "nonce consumed")
	if got := KindOf(err); got != KindNonceAlreadyUsed {
		t.Errorf("KindOf = %s, want %s", got, KindNonceAlreadyUsed)
	}
	wrapped := fmt.Errorf("handling request: %w", err)
	if got := KindOf(wrapped); got != KindNonceAlreadyUsed {
		t.Errorf("KindOf through wrapping = %s, want %s", got, KindNonceAlreadyUsed)
	}
	// Unknown errors default to the retryable kind so callers fail safe.
	if got := KindOf(errors.New("socket closed")); got != KindSettlementUnavailable {
		t.Errorf("KindOf(plain error) = %s, want %s", got, KindSettlementUnavailable)
	}
}

func TestWrapErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindSettlementUnavailable, "balance unavailable", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	if !IsKind(err, KindSettlementUnavailable) {
		t.Error("IsKind missed the wrapped kind")
	}
	if IsKind(err, KindInvalidSignature) {
		t.Error("IsKind matched a foreign kind")
	}
}

func TestRetryable(t *testing.T) {
	if !KindSettlementUnavailable.Retryable() {
		t.Error("SettlementUnavailable must be retryable")
	}
	for _, kind := range []ErrorKind{
		KindInvalidSignature, KindDomainMismatch, KindMalformedSignature,
		KindExpiredAuthorization, KindNonceAlreadyUsed, KindUnsupportedChain,
		KindSettlementFailed, KindUnauthorizedRater,
	} {
		if kind.Retryable() {
			t.Errorf("%s must not be retryable", kind)
		}
	}
}
