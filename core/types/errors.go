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
)

// ErrorKind is a stable, machine-parseable failure class. Calling agents
// branch on the kind (retry on SettlementUnavailable, abandon on
// InvalidSignature); the human-readable message is free-form and may change.
type ErrorKind string

// The failure taxonomy of the facilitator.
const (
	KindInvalidSignature      ErrorKind = "InvalidSignature"
	KindDomainMismatch        ErrorKind = "DomainMismatch"
	KindMalformedSignature    ErrorKind = "MalformedSignature"
	KindExpiredAuthorization  ErrorKind = "ExpiredAuthorization"
	KindNotYetValid           ErrorKind = "NotYetValid"
	KindNonceAlreadyUsed      ErrorKind = "NonceAlreadyUsed"
	KindUnsupportedChain      ErrorKind = "UnsupportedChain"
	KindInsufficientFunds     ErrorKind = "InsufficientFunds"
	KindSettlementFailed      ErrorKind = "SettlementFailed"
	KindSettlementUnavailable ErrorKind = "SettlementUnavailable"
	KindUnauthorizedRater     ErrorKind = "UnauthorizedRater"
	KindAgentNotFound         ErrorKind = "AgentNotFound"
	KindMalformedRequest      ErrorKind = "MalformedRequest"
)

// Retryable reports whether a caller may usefully retry a failure of this kind
// with the same authorization.
func (k ErrorKind) Retryable() bool {
	return k == KindSettlementUnavailable
}

// FacilitatorError couples an ErrorKind with a message and an optional
// underlying cause. It is the only error shape crossing the API boundary.
type FacilitatorError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, not exposed to callers verbatim
}

// Error implements the error interface.
func (e *FacilitatorError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *FacilitatorError) Unwrap() error { return e.Err }

// NewError creates a FacilitatorError with the given kind and message.
func NewError(kind ErrorKind, message string) *FacilitatorError {
	return &FacilitatorError{Kind: kind, Message: message}
}

// WrapError creates a FacilitatorError with the given kind around a cause.
func WrapError(kind ErrorKind, message string, err error) *FacilitatorError {
	return &FacilitatorError{Kind: kind, Message: message, Err: err}
}

// Errorf creates a FacilitatorError with a formatted message.
func Errorf(kind ErrorKind, format string, args ...interface{}) *FacilitatorError {
	return &FacilitatorError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err. Errors that are not
// FacilitatorErrors report as SettlementUnavailable, the conservative class
// for unclassified internal failures.
func KindOf(err error) ErrorKind {
	var fe *FacilitatorError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindSettlementUnavailable
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FacilitatorError
	return errors.As(err, &fe) && fe.Kind == kind
}
