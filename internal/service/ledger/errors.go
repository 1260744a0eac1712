package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity indicates the quantity could not be parsed or is out of range.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInsufficientStock indicates a removal asked for more than is on hand.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidItem indicates an empty item name.
	ErrInvalidItem = errors.New("invalid item")
)

// ValidationError reports a rejected ledger request together with the
// quantity on hand, so callers can redisplay the current state.
type ValidationError struct {
	Item      string
	Available int
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Item == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s (available %d)", e.Err, e.Item, e.Available)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err was caused by caller input rather than
// by the ledger's storage.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
