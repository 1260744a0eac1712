package ledger

import (
	"strconv"
	"strings"
)

// ParseRemovalQuantity accepts a non-negative decimal integer made of digits
// only. Signs, decimals and empty input are rejected.
func ParseRemovalQuantity(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if !isDigits(value) {
		return 0, &ValidationError{Err: ErrInvalidQuantity}
	}

	qty, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ValidationError{Err: ErrInvalidQuantity}
	}
	return qty, nil
}

// ParseAddQuantity accepts a positive decimal integer made of digits only.
func ParseAddQuantity(raw string) (int, error) {
	qty, err := ParseRemovalQuantity(raw)
	if err != nil {
		return 0, err
	}
	if qty <= 0 {
		return 0, &ValidationError{Err: ErrInvalidQuantity}
	}
	return qty, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
