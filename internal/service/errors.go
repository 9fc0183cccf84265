// Package service implements the marketplace core: ticket inventory,
// order settlement, the wallet ledger, refund reversal, ticket scanning,
// the catalog and organizer payouts.  Every mutating operation runs in a
// single repository.Store transaction.
package service

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable class of a service error.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidState      Kind = "invalid_state"
	KindOutOfStock        Kind = "out_of_stock"
	KindForbidden         Kind = "forbidden"
	KindTicketAlreadyUsed Kind = "ticket_already_used"
	KindEventStarted      Kind = "event_started"
	KindUpstreamFailure   Kind = "upstream_failure"
	KindNotPaid           Kind = "not_paid"
	KindValidation        Kind = "validation"
	KindInternal          Kind = "internal"
)

// Error is returned by every service operation that fails for a reason
// the caller can act on.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrOutOfStock)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrOutOfStock        = &Error{Kind: KindOutOfStock}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrTicketAlreadyUsed = &Error{Kind: KindTicketAlreadyUsed}
	ErrEventStarted      = &Error{Kind: KindEventStarted}
	ErrUpstreamFailure   = &Error{Kind: KindUpstreamFailure}
	ErrNotPaid           = &Error{Kind: KindNotPaid}
	ErrValidation        = &Error{Kind: KindValidation}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err, or KindInternal for anything that is
// not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
