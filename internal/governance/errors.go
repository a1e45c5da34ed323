package governance

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindTransient Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindNotAllowed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindNotAllowed:
		return "not_allowed"
	}
	return "transient"
}

// GenericMessage is shown when a failed call carries no server message.
const GenericMessage = "Something went wrong. Please try again."

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err. Anything that is not an *Error is transient.
func KindOf(err error) Kind {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr.Kind
	}
	return KindTransient
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrSessionClosed is returned by a duplicate session after Close or a
// successful AcceptAll.
var ErrSessionClosed = newError(KindConflict, "duplicate resolution session is closed", nil)
