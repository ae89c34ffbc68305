package feeledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("feeledger: not found")
	ErrInvalidInput = errors.New("feeledger: invalid input")

	// Group errors
	ErrGroupNotFound = errors.New("feeledger: payment group not found")
	ErrGroupExists   = errors.New("feeledger: payment group already exists")
	ErrNoFeesInGroup = errors.New("feeledger: payment group has no fees")
	ErrDuplicateFee  = errors.New("feeledger: fee already in group")
	ErrFeeNotFound   = errors.New("feeledger: fee not found")
	ErrFeeRemoved    = errors.New("feeledger: fee has been removed from group")
	ErrCurrencyMixed = errors.New("feeledger: mixed currencies in payment group")
	ErrGroupMismatch = errors.New("feeledger: fee belongs to a different payment group")

	// Payment errors
	ErrPaymentNotFound      = errors.New("feeledger: payment not found")
	ErrPaymentExists        = errors.New("feeledger: payment already exists")
	ErrPaymentNotSuccessful = errors.New("feeledger: payment has not reached a terminal success status")

	// Apportionment errors
	ErrRefundExceedsAllocated = errors.New("feeledger: refund exceeds allocated amount")
	ErrRecordNotFound         = errors.New("feeledger: apportionment record not found")

	// Store errors
	ErrConcurrentModification = errors.New("feeledger: concurrent modification of payment group")
	ErrStoreNotReady          = errors.New("feeledger: store not ready")
	ErrStoreClosed            = errors.New("feeledger: store is closed")
	ErrMigrationFailed        = errors.New("feeledger: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("feeledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrFeeNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be
// retried. Allocation and readjustment are idempotent, so retrying after a
// concurrent-modification conflict is always safe.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrStoreNotReady)
}
