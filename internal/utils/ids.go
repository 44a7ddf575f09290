package utils

import (
	"errors"
	"strconv"
)

var ErrInvalidID = errors.New("id must be a positive integer")

// ParseID accepts the store's numeric keys only. Anything else is rejected
// before a lookup is attempted.
func ParseID(raw string) (int64, error) {
	if raw == "" {
		return 0, ErrInvalidID
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, ErrInvalidID
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidID
	}
	return id, nil
}
