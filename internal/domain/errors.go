package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a served file does not exist inside its directory.
var ErrNotFound = errors.New("not found")

// ErrKind classifies failures at the request boundary.
type ErrKind int

const (
	KindValidation ErrKind = iota + 1
	KindStorage
	KindSynthesis
)

func (k ErrKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	case KindSynthesis:
		return "synthesis"
	}
	return "unknown"
}

// Error carries a kind, a client-facing message and an optional cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationError(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func StorageError(msg string, err error) error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

func SynthesisError(msg string, err error) error {
	return &Error{Kind: KindSynthesis, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
