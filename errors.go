package treasury

import (
	"errors"
	"fmt"

	"github.com/xraph/treasury/book"
	"github.com/xraph/treasury/ratelimit"
	"github.com/xraph/treasury/requestid"
	"github.com/xraph/treasury/revenue"
	"github.com/xraph/treasury/token"
)

// Sentinel errors for common failure scenarios. Every failure is
// synchronous and non-retryable inside the core; a failed call leaves
// state unchanged. Callers match with errors.Is.
//
// Errors defined by the component packages are re-exported here so the
// root package is the only import most callers need.
var (
	// Validation errors
	ErrInvalidTenant     = errors.New("treasury: invalid tenant id")
	ErrInvalidToken      = errors.New("treasury: invalid token id")
	ErrZeroAmount        = book.ErrZeroAmount
	ErrEmptyRecipient    = errors.New("treasury: empty recipient address")
	ErrInvalidFeePercent = revenue.ErrInvalidPercent

	// State errors
	ErrInsufficientBalance    = book.ErrInsufficientBalance
	ErrBalanceOverflow        = book.ErrOverflow
	ErrTokenAlreadyRegistered = token.ErrAlreadyRegistered
	ErrTokenNotRegistered     = token.ErrNotRegistered
	ErrTokenNotAllowed        = errors.New("treasury: token not allowed")
	ErrQueueNotInitialized    = ratelimit.ErrNotInitialized
	ErrEmptyQueue             = ratelimit.ErrEmptyQueue
	ErrIndexOutOfRange        = ratelimit.ErrIndexOutOfRange

	// Limit errors
	ErrTxLimitExceeded    = ratelimit.ErrTxLimitExceeded
	ErrDailyLimitExceeded = ratelimit.ErrDailyLimitExceeded
	ErrInvalidCapOrdering = ratelimit.ErrInvalidCapOrdering

	// Encoding errors
	ErrSequenceTooLarge = requestid.ErrSequenceTooLarge

	// Store errors
	ErrStoreNotReady     = errors.New("treasury: store not ready")
	ErrStoreClosed       = errors.New("treasury: store is closed")
	ErrMigrationFailed   = errors.New("treasury: migration failed")
	ErrTransactionFailed = errors.New("treasury: transaction failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("treasury: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "treasury: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("treasury: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsLimitError returns true if the error is related to disbursement limits.
func IsLimitError(err error) bool {
	return errors.Is(err, ErrTxLimitExceeded) ||
		errors.Is(err, ErrDailyLimitExceeded) ||
		errors.Is(err, ErrInvalidCapOrdering)
}

// IsStateError returns true if the error reflects a ledger or registry
// state conflict rather than bad input.
func IsStateError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrBalanceOverflow) ||
		errors.Is(err, ErrTokenAlreadyRegistered) ||
		errors.Is(err, ErrTokenNotRegistered) ||
		errors.Is(err, ErrQueueNotInitialized) ||
		errors.Is(err, ErrEmptyQueue)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried against the store.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
