// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrHashMismatch indicates the stored block hash does not match the
	// hash recomputed from the header.
	ErrHashMismatch ErrorCode = iota

	// ErrUnsupportedVersion indicates the block header version is not in
	// the configured allow-list.
	ErrUnsupportedVersion

	// ErrUnexpectedDifficulty indicates the claimed difficulty is out of
	// the valid range.
	ErrUnexpectedDifficulty

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the required target difficulty.
	ErrHighHash

	// ErrLinkageMismatch indicates the block's previous hash does not
	// match the hash of the preceding block.
	ErrLinkageMismatch

	// ErrIndexMismatch indicates the block's index does not follow the
	// preceding block's index, or does not match the chain height.
	ErrIndexMismatch

	// ErrTimeNotAfterPrevious indicates the block timestamp is not
	// strictly after the previous block's timestamp.
	ErrTimeNotAfterPrevious

	// ErrTimeTooNew indicates the block timestamp is too far in the
	// future as compared to the current time.
	ErrTimeTooNew

	// ErrTimeNotPastMedian indicates the block timestamp is not after
	// the median time of the previous several blocks.
	ErrTimeNotPastMedian

	// ErrBadTxRoot indicates the calculated transaction commitment does
	// not match the value committed to in the block header.
	ErrBadTxRoot

	// ErrBadGenesis indicates the first block of a chain is not a valid
	// genesis block.
	ErrBadGenesis

	// ErrTxOrderInvalid indicates the transactions within a block violate
	// the ordering rules: a coinbase outside position zero, a duplicate
	// transaction id, or out-of-order sender nonces.
	ErrTxOrderInvalid

	// ErrBadTxValue indicates a transaction amount, fee, or output value
	// is negative, exceeds the maximum money supply, or sums out of
	// range.
	ErrBadTxValue

	// ErrBadCoinbaseValue indicates the coinbase value claims more than
	// the block subsidy plus collected fees.
	ErrBadCoinbaseValue

	// ErrMissingSignature indicates a transaction that requires a
	// signature carries none.
	ErrMissingSignature

	// ErrInvalidSignature indicates a transaction signature failed
	// verification against the sender public key.
	ErrInvalidSignature

	// ErrSignatureEncoding indicates the signature or public key could
	// not be parsed.
	ErrSignatureEncoding

	// ErrSignatureCheck indicates signature verification failed for a
	// reason other than encoding or mismatch, such as an unavailable
	// balance source.
	ErrSignatureCheck

	// ErrInsufficientBalance indicates the sender balance does not cover
	// the transaction amount plus fee.
	ErrInsufficientBalance

	// ErrDoubleSpend indicates an output is spent more than once within
	// the chain.
	ErrDoubleSpend

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrHashMismatch:         "ErrHashMismatch",
	ErrUnsupportedVersion:   "ErrUnsupportedVersion",
	ErrUnexpectedDifficulty: "ErrUnexpectedDifficulty",
	ErrHighHash:             "ErrHighHash",
	ErrLinkageMismatch:      "ErrLinkageMismatch",
	ErrIndexMismatch:        "ErrIndexMismatch",
	ErrTimeNotAfterPrevious: "ErrTimeNotAfterPrevious",
	ErrTimeTooNew:           "ErrTimeTooNew",
	ErrTimeNotPastMedian:    "ErrTimeNotPastMedian",
	ErrBadTxRoot:            "ErrBadTxRoot",
	ErrBadGenesis:           "ErrBadGenesis",
	ErrTxOrderInvalid:       "ErrTxOrderInvalid",
	ErrBadTxValue:           "ErrBadTxValue",
	ErrBadCoinbaseValue:     "ErrBadCoinbaseValue",
	ErrMissingSignature:     "ErrMissingSignature",
	ErrInvalidSignature:     "ErrInvalidSignature",
	ErrSignatureEncoding:    "ErrSignatureEncoding",
	ErrSignatureCheck:       "ErrSignatureCheck",
	ErrInsufficientBalance:  "ErrInsufficientBalance",
	ErrDoubleSpend:          "ErrDoubleSpend",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block or chain failed due to one of the many validation
// rules.  The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsRuleErrorCode returns whether err is a RuleError with the passed code.
func IsRuleErrorCode(err error, code ErrorCode) bool {
	var rerr RuleError
	return errors.As(err, &rerr) && rerr.ErrorCode == code
}
