package domain

import "errors"

var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrCustomerRequired      = errors.New("customer name and email are required")
	ErrEmptyCart             = errors.New("cart must not be empty")
	ErrDiscountExceedsAmount = errors.New("discount exceeds amount")
	ErrTokenNotFound         = errors.New("token not found")
	ErrDuplicateToken        = errors.New("duplicate token")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
)
