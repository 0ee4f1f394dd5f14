package crm

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Kind classifies failures surfaced to the user.
type Kind string

// Error kinds.
const (
	KindValidation  Kind = "validation"
	KindNoRecords   Kind = "no_records"
	KindNotFound    Kind = "not_found"
	KindPersistence Kind = "persistence"
)

// Error is a classified failure. Err carries the underlying detail, which
// for persistence failures includes the backend's message.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// the error is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func validationError(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Err: eris.Errorf(format, args...)}
}

func notFoundError(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: eris.Errorf("client not found: %s", id)}
}

func persistenceError(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}
