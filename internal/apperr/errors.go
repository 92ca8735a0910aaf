package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrEmptyCart             = errors.New("cannot create an order with an empty cart")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrDuplicateUsername     = errors.New("username already exists")
	ErrDuplicateEmail        = errors.New("email already exists")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	ErrForbidden             = errors.New("access denied")
)

// InsufficientStockError tells the caller how many units are actually
// available, unlike the deliberately vague credential errors.
type InsufficientStockError struct {
	ProductID uint
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %d: %d available", e.ProductID, e.Available)
}
