package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance is matched by every *InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount reports a non-numeric, non-positive or out-of-range amount.
	ErrInvalidAmount = errors.New("invalid amount")

	ErrNotVerified       = errors.New("wallet is not verified")
	ErrAlreadyVerified   = errors.New("wallet is already verified")
	ErrBonusClaimed      = errors.New("welcome bonus already received")
	ErrCouponUnavailable = errors.New("coupon not found or already used")
)

// InsufficientBalanceError is returned when a debit exceeds the balance. No
// state changes when it is returned.
type InsufficientBalanceError struct {
	Balance  float64
	Required float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %.2f, need %.2f (%.2f more required)",
		e.Balance, e.Required, e.Shortfall())
}

// Shortfall is the amount missing to cover the debit.
func (e *InsufficientBalanceError) Shortfall() float64 {
	return e.Required - e.Balance
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
