package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInputNotFound     = errors.New("input not found")
	ErrMalformedDocument = errors.New("malformed document")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCycleActive       = errors.New("verification cycle already active")
	ErrNotFound          = errors.New("not found")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// DocumentError is a fatal failure scoped to a single input document.
type DocumentError struct {
	Source DocumentSource
	Type   DocumentType
	Kind   error
	Err    error
}

func NewDocumentError(source DocumentSource, docType DocumentType, kind, err error) *DocumentError {
	return &DocumentError{Source: source, Type: docType, Kind: kind, Err: err}
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s %s document: %v: %v", e.Source, e.Type, e.Kind, e.Err)
}

func (e *DocumentError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// FailureKindOf maps an error to the document failure tag reported on results.
func FailureKindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrInputNotFound):
		return FailureInputNotFound
	case errors.Is(err, ErrMalformedDocument):
		return FailureMalformedDocument
	default:
		return FailureUnknown
	}
}
