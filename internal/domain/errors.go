package domain

import "errors"

// Sentinel errors returned by domain rules and mapped to HTTP statuses by the api package
var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOutOfStock        = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInactiveProduct   = errors.New("product is not available")
	ErrUnknownSize       = errors.New("size not offered for this product")
	ErrOverpayment       = errors.New("repayment exceeds outstanding balance")
	ErrInvalidAmount     = errors.New("amount must be positive")
)
