// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"errors"
	"fmt"
)

// RejectCode identifies why a transaction was refused admission to the
// memory pool.  Every rejection is an expected outcome surfaced through a
// RuleError; nothing in the admission path panics.
type RejectCode int

const (
	// RejectDuplicate indicates the transaction id is already present in
	// the pool or was recently rejected.
	RejectDuplicate RejectCode = iota

	// RejectBanned indicates the sender is serving a ban and the
	// transaction was refused before validation.
	RejectBanned

	// RejectInsufficientFunds indicates the sender's unspent outputs do
	// not cover the transaction amount plus fee.
	RejectInsufficientFunds

	// RejectValidation indicates the external validator refused the
	// transaction.
	RejectValidation

	// RejectOrphan indicates the transaction references unknown inputs
	// and was moved to the orphan pool instead of the main pool.
	RejectOrphan

	// RejectDoubleSpend indicates an input is already reserved by
	// another transaction in the pool.
	RejectDoubleSpend

	// RejectReplacement indicates the replace-by-fee protocol refused
	// the transaction.
	RejectReplacement

	// RejectSenderLimit indicates the sender already has the maximum
	// allowed number of pending transactions.
	RejectSenderLimit

	// RejectPoolFull indicates the pool is at capacity and the
	// transaction's fee rate does not beat the current minimum.
	RejectPoolFull

	// RejectInvalid indicates the transaction is malformed beyond
	// classification, such as a nil transaction or one that cannot be
	// hashed.
	RejectInvalid
)

// Map of RejectCode values back to their constant names for pretty printing.
var rejectCodeStrings = map[RejectCode]string{
	RejectDuplicate:         "RejectDuplicate",
	RejectBanned:            "RejectBanned",
	RejectInsufficientFunds: "RejectInsufficientFunds",
	RejectValidation:        "RejectValidation",
	RejectOrphan:            "RejectOrphan",
	RejectDoubleSpend:       "RejectDoubleSpend",
	RejectReplacement:       "RejectReplacement",
	RejectSenderLimit:       "RejectSenderLimit",
	RejectPoolFull:          "RejectPoolFull",
	RejectInvalid:           "RejectInvalid",
}

// String returns the RejectCode as a human-readable name.
func (c RejectCode) String() string {
	if s := rejectCodeStrings[c]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown RejectCode (%d)", int(c))
}

// RuleError identifies a mempool admission rule violation.  Callers can
// inspect the RejectCode to learn the specific reason the transaction was
// refused.
type RuleError struct {
	RejectCode  RejectCode
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// txRuleError creates a RuleError given a set of arguments.
func txRuleError(c RejectCode, desc string) RuleError {
	return RuleError{RejectCode: c, Description: desc}
}

// IsRejectCode returns whether err is a RuleError carrying the passed
// reject code.
func IsRejectCode(err error, code RejectCode) bool {
	var rerr RuleError
	return errors.As(err, &rerr) && rerr.RejectCode == code
}
