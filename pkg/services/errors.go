package services

import (
	"errors"
	"fmt"
)

// Kind classifies service failures for the HTTP layer
type Kind int

const (
	KindInfrastructure Kind = iota
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "infrastructure"
	}
}

// Error is the error type returned by every service operation
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Details is the underlying cause text, empty when there is none
func (e *Error) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// KindOf returns the kind of err, KindInfrastructure for foreign errors
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInfrastructure
}

func validationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Space with id %d not found", id)}
}

func infraError(message string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Message: message, Err: err}
}
