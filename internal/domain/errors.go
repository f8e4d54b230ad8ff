package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors map 1:1 to HTTP statuses at the boundary.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("access denied")

	// ErrReadOnly marks writes refused because the database file is not
	// writable. Handlers turn it into a 503 with a remediation hint.
	ErrReadOnly = errors.New("database is read-only")
)

// ValidationError reports a malformed request payload (400).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
