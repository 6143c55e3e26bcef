package cartops

import "errors"

var (
	ErrValidation        = errors.New("cartops: validation")
	ErrNotFound          = errors.New("cartops: not found")
	ErrInsufficientStock = errors.New("cartops: insufficient stock")
	ErrMinimumQuantity   = errors.New("cartops: minimum quantity reached")
	ErrEmptyCart         = errors.New("cartops: cart is empty")
)
