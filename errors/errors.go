package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// New builds an error from a format string.
var New = fmt.Errorf

// Errorf is an alias of New.
var Errorf = New

// Wrapf annotates err with a formatted message. If err is nil it behaves
// like Errorf, so it never returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return Errorf(format, args...)
	}
	return errors.WithMessage(err, fmt.Sprintf(format, args...))
}

// WrapfOrNil annotates err with a formatted message, or returns nil if err is nil.
func WrapfOrNil(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(err, fmt.Sprintf(format, args...))
}

// WithStack is re-exported from github.com/pkg/errors
var WithStack = errors.WithStack

// Cause is re-exported from github.com/pkg/errors
var Cause = errors.Cause
