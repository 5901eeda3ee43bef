package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEntityNotFound   = fmt.Errorf("event %w", ErrNotFound)
	ErrHoldNotFound     = fmt.Errorf("booking %w", ErrNotFound)
	ErrEscrowNotFound   = fmt.Errorf("escrow %w", ErrNotFound)
	ErrTxNotFound       = fmt.Errorf("transaction %w", ErrNotFound)
	ErrNoSeatsLeft      = errors.New("no seats left to hold")
	ErrNoSeatsAvailable = errors.New("no seats available")
	ErrHoldNotHeld      = errors.New("booking is no longer held")
	ErrLedgerTimeRange  = errors.New("time outside the ledger time range")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func MissingField(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

func InvalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// LedgerError wraps a network failure or a non-success transaction result.
// Code holds the ledger result code verbatim when the node returned one.
type LedgerError struct {
	Op   string
	Code string
	Err  error
}

func (e *LedgerError) Error() string {
	switch {
	case e.Code != "" && e.Err != nil:
		return fmt.Sprintf("%s: ledger returned %s: %v", e.Op, e.Code, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s: ledger returned %s", e.Op, e.Code)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}
