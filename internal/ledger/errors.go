package ledger

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrSchemaMissing means the backing tables do not exist yet. Callers
	// should run EnsureSchema and retry once.
	ErrSchemaMissing = errors.New("ledger schema missing")

	// ErrStoreBusy is transient lock or serialization contention. The store
	// does not retry internally; callers decide.
	ErrStoreBusy = errors.New("ledger store busy")

	// ErrAllowanceExhausted means the booking would drive the user's
	// remaining allowance below zero.
	ErrAllowanceExhausted = errors.New("holiday allowance exhausted")
)

// Postgres error codes the booking protocol cares about.
const (
	codeUndefinedTable       = "42P01"
	codeDuplicateTable       = "42P07"
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// classify maps driver errors onto the store's failure taxonomy. Errors it
// does not recognize pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case codeUndefinedTable:
		return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %v", ErrStoreBusy, err)
	}

	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation
}

func isDuplicateTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeDuplicateTable
}
