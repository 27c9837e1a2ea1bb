// Package domain holds the typed errors every layer of the service returns.
// The HTTP layer maps them to status codes in package response.
package domain

import (
	"errors"
	"fmt"
)

// Kind categorizes a domain error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindForbidden
	KindInvalidState
)

// Error is a domain error with a Kind used for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	// Details is rendered alongside the message, e.g. conflicting meetings.
	Details interface{}
}

func (e *Error) Error() string { return e.Message }

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewValidationError reports invalid input.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewConflictError reports a clash with existing state.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewForbiddenError reports an action the caller may not perform.
func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NewInvalidStateError reports an operation the aggregate cannot accept in its current state.
func NewInvalidStateError(current, requested string) *Error {
	return &Error{
		Kind:    KindInvalidState,
		Message: fmt.Sprintf("cannot %s: meeting is %s", requested, current),
	}
}

// WithDetails attaches response details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// PaginatedResult is one page of a listing.
type PaginatedResult[T any] struct {
	Items []T
	Total int64
	Page  int
	Limit int
}

// NewPaginatedResult builds a page.
func NewPaginatedResult[T any](items []T, total int64, page, limit int) *PaginatedResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PaginatedResult[T]{Items: items, Total: total, Page: page, Limit: limit}
}
