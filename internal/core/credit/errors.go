package credit

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("credits amount must be positive")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrTooManyBatches      = errors.New("too many credit batches to consume")
	ErrCreditNotFound      = errors.New("credit not found")
	ErrNotGrant            = errors.New("only grant rows can be changed")
)

// InsufficientCreditsError carries the balance seen when a debit was refused.
type InsufficientCreditsError struct {
	Balance   int
	Requested int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: balance %d, requested %d", e.Balance, e.Requested)
}

func (e *InsufficientCreditsError) Unwrap() error {
	return ErrInsufficientCredits
}

// IsRetryable reports whether retrying the same ledger call can succeed
// without anything else changing. Business rejections never do.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInsufficientCredits),
		errors.Is(err, ErrTooManyBatches),
		errors.Is(err, ErrCreditNotFound),
		errors.Is(err, ErrNotGrant):
		return false
	}
	return true
}
