package models

import (
	"errors"
	"fmt"
)

// Error taxonomy. NotFound covers "no borrowing history", "no viable
// candidates" and "no embeddings available"; malformed parameters are
// handled upstream by substituting defaults rather than failing.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid request")
)

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
