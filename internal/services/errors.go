package services

import "errors"

// Sentinel errors shared across services. Handlers match these with
// errors.Is to pick a status code; the messages are safe to show callers.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock available")
	ErrCartItemNotFound   = errors.New("item not found in cart")
	ErrItemsUnavailable   = errors.New("some products are no longer available")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
)
