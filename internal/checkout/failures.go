package checkout

import (
	"errors"
	"fmt"
)

// Validation failures, detected before any unit-of-work is opened.
var (
	ErrEmptyCart       = errors.New("cart must contain at least one line")
	ErrInvalidQuantity = errors.New("line quantity must be a positive integer")
	ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")
	ErrInvalidTax      = errors.New("tax amount must not be negative")
	ErrInvalidPayment  = errors.New("payment amount must be positive")
)

// ErrTimeout means the unit-of-work exceeded its deadline or a row lock could
// not be acquired in time; everything was rolled back.
var ErrTimeout = errors.New("invoice finalization timed out")

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type PaymentInsufficientError struct {
	DueCents  int64
	PaidCents int64
}

func (e *PaymentInsufficientError) Error() string {
	return fmt.Sprintf("payment insufficient: due %d, paid %d", e.DueCents, e.PaidCents)
}

// PersistenceError wraps an infrastructure failure (connection loss,
// constraint violation). The unit-of-work has been rolled back; the cart may
// be retried as a whole, never step by step.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
