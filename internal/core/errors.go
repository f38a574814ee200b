package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the repositories and stores wraps one of these.
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicateID = errors.New("duplicate identifier")
	ErrValidation  = errors.New("validation failed")
	ErrPersistence = errors.New("persistence failed")
	ErrDecode      = errors.New("decode failed")
	ErrReentrant   = errors.New("reentrant mutation")
)

// Field-level validation errors. They all match ErrValidation with errors.Is.
var (
	ErrInvalidAmount     = invalid("invalid amount")
	ErrNegativeAmount    = invalid("amount cannot be negative")
	ErrEmptyName         = invalid("empty name")
	ErrEmptyID           = invalid("empty identifier")
	ErrInvalidDate       = invalid("invalid date")
	ErrInvalidType       = invalid("invalid type")
	ErrInvalidInterval   = invalid("invalid interval")
	ErrInvalidCurrency   = invalid("invalid currency")
	ErrMissingAccount    = invalid("missing account")
	ErrMissingCategory   = invalid("missing category")
	ErrImmutableID       = invalid("identifier cannot change")
	ErrDanglingRef       = invalid("reference to unknown record")
	ErrInvalidPriority   = invalid("invalid priority")
	ErrInvalidLocation   = invalid("invalid location")
	ErrInvalidAttachment = invalid("invalid attachment")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Invalidf builds an ad-hoc validation error.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
