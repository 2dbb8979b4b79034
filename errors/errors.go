// Package errors defines the engine's error taxonomy.
//
// Every failure that reaches a wallet entry point is classified into one of the
// codes below so the caller can tell a flaky network apart from a chain that
// refused the transaction.
package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure class.
type Code int

const (
	CodeInternal Code = iota + 1
	// CodeConnectivity covers unreachable endpoints and malformed responses.
	CodeConnectivity
	// CodeIndexerDegraded means the node accepted the tx but could not confirm it.
	CodeIndexerDegraded
	// CodeChainRejection is a non-zero response code from a well-formed tx.
	CodeChainRejection
	// CodeBusinessRule is a violation detected before any network call.
	CodeBusinessRule
	// CodeCredential is a locked wallet or missing signing material.
	CodeCredential
)

func (c Code) String() string {
	switch c {
	case CodeConnectivity:
		return "connectivity"
	case CodeIndexerDegraded:
		return "indexer_degraded"
	case CodeChainRejection:
		return "chain_rejection"
	case CodeBusinessRule:
		return "business_rule"
	case CodeCredential:
		return "credential"
	default:
		return "internal"
	}
}

// Retryable reports whether the executor may try another endpoint.
func (c Code) Retryable() bool {
	return c == CodeConnectivity
}

// Error is a classified engine error.
type Error struct {
	Code    Code
	Message string
	Cause   error

	// TxCode and TxHash are set for chain rejections and indexer degradation.
	TxCode uint32
	TxHash string
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Rejected builds a chain rejection carrying the on-chain response code.
func Rejected(txCode uint32, hash, rawLog string) *Error {
	return &Error{
		Code:    CodeChainRejection,
		Message: rawLog,
		TxCode:  txCode,
		TxHash:  hash,
	}
}

// Degraded builds an indexer degradation error for an accepted tx.
func Degraded(hash string, cause error) *Error {
	return &Error{
		Code:    CodeIndexerDegraded,
		Message: "transaction submitted but its confirmation could not be looked up",
		Cause:   cause,
		TxHash:  hash,
	}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of err, CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}
